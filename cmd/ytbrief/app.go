package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/kalambet/ytbrief/internal/channels"
	"github.com/kalambet/ytbrief/internal/config"
	"github.com/kalambet/ytbrief/internal/ingest"
	"github.com/kalambet/ytbrief/internal/ollama"
	"github.com/kalambet/ytbrief/internal/proxy"
	"github.com/kalambet/ytbrief/internal/storage"
	"github.com/kalambet/ytbrief/internal/summarize"
	"github.com/kalambet/ytbrief/internal/youtube"
)

// app bundles the components shared by serve and the local commands.
type app struct {
	cfg      config.Config
	store    *storage.Store
	channels []channels.Channel
	pipeline *ingest.Pipeline
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func openApp(cfg config.Config) (*app, error) {
	store, err := storage.Open(cfg.Storage.TranscriptsDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	list, err := channels.Load(cfg.Channels.File)
	if err != nil {
		return nil, fmt.Errorf("loading channels: %w", err)
	}

	yt := youtube.NewClient()
	return &app{
		cfg:      cfg,
		store:    store,
		channels: list,
		pipeline: ingest.NewPipeline(yt, yt, yt, store, cfg.Ingest.DelayDuration()),
	}, nil
}

// newSummarizer builds the summarizer for the configured provider. For
// ollama it makes sure the server is up and the model is pulled.
func newSummarizer(ctx context.Context, cfg config.Config, w io.Writer) (*summarize.Summarizer, error) {
	switch cfg.LLM.Provider {
	case "ollama":
		client := ollama.New(cfg.Ollama.BaseURL)
		client.SetContextWindow(cfg.Ollama.NumCtx)
		if err := ollama.EnsureReady(ctx, client, cfg.Ollama.Model, w); err != nil {
			return nil, err
		}
		return summarize.New(client, cfg.Ollama.Model), nil
	default:
		if cfg.LLM.OpenRouterAPIKey == "" {
			slog.Warn("YTBRIEF_OPENROUTER_API_KEY is not set, analysis requests will fail")
		}
		client := proxy.NewClientWithBaseURL(cfg.LLM.OpenRouterAPIKey, cfg.LLM.BaseURL)
		return summarize.New(summarize.OpenRouterAdapter(client), cfg.LLM.Model), nil
	}
}
