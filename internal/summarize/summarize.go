// Package summarize turns stored transcripts into structured analyses and
// cross-video trend reports using a chat-completion backend.
package summarize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kalambet/ytbrief/internal/ollama"
)

const (
	analyzeTimeout = 2 * time.Minute
	trendTimeout   = 3 * time.Minute
)

// Chatter is the chat completion backend. ollama.Client implements it
// directly; OpenRouter is adapted via OpenRouterAdapter.
type Chatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, jsonSchema *ollama.Schema) (string, error)
}

// Error wraps any failure of a summarization operation.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Summarizer produces analyses and trend reports.
type Summarizer struct {
	client Chatter
	model  string
	logger *slog.Logger
}

// New creates a Summarizer using client and the given model name.
func New(client Chatter, model string) *Summarizer {
	return &Summarizer{client: client, model: model, logger: slog.Default()}
}

// Model returns the configured model name.
func (s *Summarizer) Model() string { return s.model }
