// Package api exposes ingestion, analysis and the transcript library over
// HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ytbrief/internal/channels"
	"github.com/kalambet/ytbrief/internal/ingest"
	"github.com/kalambet/ytbrief/internal/storage"
	"github.com/kalambet/ytbrief/internal/summarize"
)

const maxRequestBodySize = 8 << 20

// Ingester runs one ingestion pass and rebuilds the index.
type Ingester interface {
	RunAndIndex(ctx context.Context, list []channels.Channel, sinceDays int) (ingest.Report, storage.IndexStats, error)
}

// Library reads the stored transcripts.
type Library interface {
	List(ctx context.Context) ([]storage.StoredTranscript, error)
	Get(videoID string) (storage.StoredTranscript, error)
	Body(name string) (string, error)
}

// Analyzer produces LLM analyses and trend reports.
type Analyzer interface {
	Analyze(ctx context.Context, transcript, title string) (summarize.Analysis, error)
	TrendReport(ctx context.Context, inputs []summarize.TrendInput) (string, error)
}

// Deps holds everything the HTTP and MCP surfaces need.
type Deps struct {
	Ingester Ingester
	Library  Library
	Analyzer Analyzer
	Channels []channels.Channel

	SinceDays  int
	RunTimeout time.Duration

	CronSecret string
	APIKey     string
	// Limiter throttles the API-key routes. Nil disables rate limiting.
	Limiter *RateLimiter

	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// NewHandler returns the HTTP handler for the service.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Get("/", handlePage(deps, storage.IndexFile))
	r.Get("/{file}", handleFilePage(deps))

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(deps.CronSecret, "cron secret"))
			r.Get("/cron/fetch-transcripts", handleCronFetch(deps))
			r.Post("/cron/fetch-transcripts", handleCronFetch(deps))
		})

		r.Group(func(r chi.Router) {
			if deps.Limiter != nil {
				r.Use(deps.Limiter.Middleware)
			}
			r.Use(BearerAuth(deps.APIKey, "API key"))
			r.Post("/analyze", handleAnalyze(deps))
			r.Post("/trend-report", handleTrendReport(deps))
			r.Get("/transcripts", handleListTranscripts(deps))
			r.Get("/transcripts/{videoID}", handleGetTranscript(deps))
		})
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encoding response", "error", err)
	}
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"error": errorBody(errType, fmt.Sprintf(format, args...)),
	})
}

// opError is httpError for operation endpoints, which also carry success.
func opError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   errorBody(errType, fmt.Sprintf(format, args...)),
	})
}

func errorBody(errType, msg string) map[string]any {
	return map[string]any{
		"message": msg,
		"type":    errType,
	}
}
