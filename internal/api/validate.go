package api

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kalambet/ytbrief/internal/summarize"
)

const (
	maxTranscriptLength    = 100000
	maxTitleLength         = 500
	maxTranscriptsInReport = 50
)

// ValidationError lists every problem found in a request body.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Issues, ", ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Issues = append(e.Issues, field+": "+fmt.Sprintf(format, args...))
}

func (e *ValidationError) err() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}

type analyzeRequest struct {
	Transcript string `json:"transcript"`
	Title      string `json:"title"`
}

func (req analyzeRequest) validate() error {
	var v ValidationError
	checkText(&v, "transcript", req.Transcript, 1, maxTranscriptLength, "Transcript")
	checkText(&v, "title", req.Title, 1, maxTitleLength, "Title")
	return v.err()
}

type trendItem struct {
	Title      string `json:"title"`
	Transcript string `json:"transcript"`
	Date       string `json:"date"`
}

type trendRequest struct {
	Transcripts []trendItem `json:"transcripts"`
}

// inputs validates the request and converts it for the summarizer.
func (req trendRequest) inputs() ([]summarize.TrendInput, error) {
	var v ValidationError
	switch n := len(req.Transcripts); {
	case n == 0:
		v.add("transcripts", "At least one transcript required")
	case n > maxTranscriptsInReport:
		v.add("transcripts", "Too many transcripts (max %d)", maxTranscriptsInReport)
	}

	out := make([]summarize.TrendInput, 0, len(req.Transcripts))
	for i, item := range req.Transcripts {
		prefix := fmt.Sprintf("transcripts.%d.", i)
		checkText(&v, prefix+"title", item.Title, 0, maxTitleLength, "Title")
		checkText(&v, prefix+"transcript", item.Transcript, 0, maxTranscriptLength, "Transcript")
		date, err := time.Parse(time.RFC3339, item.Date)
		if err != nil {
			v.add(prefix+"date", "Invalid datetime")
		}
		out = append(out, summarize.TrendInput{Title: item.Title, Transcript: item.Transcript, Date: date})
	}
	if err := v.err(); err != nil {
		return nil, err
	}
	return out, nil
}

func checkText(v *ValidationError, field, s string, min, max int, label string) {
	n := utf8.RuneCountInString(s)
	switch {
	case n < min:
		v.add(field, "%s cannot be empty", label)
	case n > max:
		v.add(field, "%s too long (max %d characters)", label, max)
	}
}
