package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/kalambet/ytbrief/internal/ollama"
)

// Analysis is the structured result of analyzing one transcript.
type Analysis struct {
	Summary        string   `json:"summary"`
	KeyTopics      []string `json:"keyTopics"`
	MainInsights   []string `json:"mainInsights"`
	IndustryTrends []string `json:"industryTrends,omitempty"`
}

// Analyze asks the model for a summary, key topics, insights and trends of a
// single video transcript.
func (s *Summarizer) Analyze(ctx context.Context, transcript, title string) (Analysis, error) {
	ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
	defer cancel()

	raw, err := s.client.Chat(ctx, s.model, buildAnalyzePrompt(transcript, title), analysisSchema())
	if err != nil {
		s.logger.Error("transcript analysis failed", "title", title, "error", err)
		return Analysis{}, &Error{Op: "AI analysis", Err: err}
	}

	a, err := parseAnalysis(raw)
	if err != nil {
		s.logger.Warn("unparseable analysis response", "title", title, "error", err, "response", raw)
		return Analysis{}, &Error{Op: "AI analysis", Err: err}
	}
	return a, nil
}

func parseAnalysis(raw string) (Analysis, error) {
	var a Analysis
	if err := json.Unmarshal([]byte(stripFences(raw)), &a); err != nil {
		return Analysis{}, err
	}
	if strings.TrimSpace(a.Summary) == "" {
		return Analysis{}, errors.New("response has no summary")
	}
	if a.KeyTopics == nil {
		a.KeyTopics = []string{}
	}
	if a.MainInsights == nil {
		a.MainInsights = []string{}
	}
	return a, nil
}

// stripFences removes a surrounding markdown code fence such as ```json.
// Prose around a bare JSON object is also dropped.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "```"); ok {
		rest = strings.TrimPrefix(rest, "json")
		rest = strings.TrimPrefix(rest, "JSON")
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rest), "```"))
	}
	if !strings.HasPrefix(s, "{") {
		start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
		if start >= 0 && end > start {
			s = s[start : end+1]
		}
	}
	return s
}

func analysisSchema() *ollama.Schema {
	list := &ollama.SchemaProperty{Type: "string"}
	return &ollama.Schema{
		Type: "object",
		Properties: map[string]ollama.SchemaProperty{
			"summary":        {Type: "string", Description: "Concise summary, 2-3 sentences"},
			"keyTopics":      {Type: "array", Description: "3-5 key topics", Items: list},
			"mainInsights":   {Type: "array", Description: "3-5 main insights and takeaways", Items: list},
			"industryTrends": {Type: "array", Description: "Industry trends mentioned, if any", Items: list},
		},
		Required: []string{"summary", "keyTopics", "mainInsights"},
	}
}
