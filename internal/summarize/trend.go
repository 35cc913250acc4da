package summarize

import (
	"context"
	"errors"
	"strings"
	"time"
)

// TrendInput is one transcript contributing to a trend report.
type TrendInput struct {
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	Date       time.Time `json:"date"`
}

// trendExcerptLen caps each transcript's contribution to the trend prompt.
const trendExcerptLen = 1000

// TrendReport asks the model for a markdown report of trends across inputs.
func (s *Summarizer) TrendReport(ctx context.Context, inputs []TrendInput) (string, error) {
	if len(inputs) == 0 {
		return "", &Error{Op: "trend report generation", Err: errors.New("no transcripts given")}
	}

	ctx, cancel := context.WithTimeout(ctx, trendTimeout)
	defer cancel()

	report, err := s.client.Chat(ctx, s.model, buildTrendPrompt(inputs), nil)
	if err != nil {
		s.logger.Error("trend report failed", "transcripts", len(inputs), "error", err)
		return "", &Error{Op: "trend report generation", Err: err}
	}
	report = strings.TrimSpace(report)
	if report == "" {
		return "", &Error{Op: "trend report generation", Err: errors.New("empty response")}
	}
	return report, nil
}

// excerpt returns at most n runes of s.
func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
