package summarize

import (
	"context"
	"errors"

	"github.com/kalambet/ytbrief/internal/ollama"
	"github.com/kalambet/ytbrief/internal/proxy"
)

// openRouterAdapter adapts a proxy.Client to Chatter, converting ollama
// messages and requesting a JSON object whenever a schema is given.
type openRouterAdapter struct {
	client *proxy.Client
}

// OpenRouterAdapter returns a Chatter backed by the OpenRouter API.
func OpenRouterAdapter(c *proxy.Client) Chatter {
	return &openRouterAdapter{client: c}
}

func (a *openRouterAdapter) Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error) {
	req := proxy.ChatRequest{
		Model:    model,
		Messages: make([]proxy.Message, len(messages)),
	}
	for i, m := range messages {
		req.Messages[i] = proxy.Message{Role: m.Role, Content: m.Content}
	}
	if jsonSchema != nil {
		req.ResponseFormat = &proxy.ResponseFormat{Type: "json_object"}
	}

	resp, err := a.client.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	text, err := resp.Content()
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", errors.New("model returned no content")
	}
	return text, nil
}
