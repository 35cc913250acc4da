package config

import (
	"fmt"
	"path/filepath"
	"time"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Channels  ChannelsConfig
	Ingest    IngestConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	LLM       LLMConfig
	Ollama    OllamaConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
	Bind string
}

type StorageConfig struct {
	DataDir string
	// TranscriptsDir defaults to {DataDir}/transcripts when empty.
	TranscriptsDir string
}

type ChannelsConfig struct {
	File string
}

type IngestConfig struct {
	SinceDays  int
	Delay      string
	Interval   string
	RunTimeout string
}

type RateLimitConfig struct {
	Requests int
	Window   string
}

type AuthConfig struct {
	CronSecret string
	APIKey     string
}

type LLMConfig struct {
	Provider         string
	Model            string
	BaseURL          string
	OpenRouterAPIKey string
}

type OllamaConfig struct {
	BaseURL string
	Model   string
	// NumCtx is the context window requested per chat; 0 keeps the model default.
	NumCtx int
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4000,
			Bind: "127.0.0.1",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Channels: ChannelsConfig{
			File: filepath.Join(filepath.Dir(FilePath()), "channels.yaml"),
		},
		Ingest: IngestConfig{
			SinceDays:  2,
			Delay:      "500ms",
			RunTimeout: "5m",
		},
		RateLimit: RateLimitConfig{
			Requests: 10,
			Window:   "1m",
		},
		LLM: LLMConfig{
			Provider: "openrouter",
			Model:    "anthropic/claude-sonnet-4",
			BaseURL:  "https://openrouter.ai/api/v1",
		},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "mistral-nemo",
			NumCtx:  32768,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON file backend at
// $XDG_CONFIG_HOME/ytbrief/config.json and applies YTBRIEF_* environment
// overrides on top. Secrets are only read from the environment.
func Load() (Config, error) {
	return loadWith(defaultBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Storage.TranscriptsDir == "" {
		cfg.Storage.TranscriptsDir = filepath.Join(cfg.Storage.DataDir, "transcripts")
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	for _, s := range specs {
		if s.typ != kDuration {
			continue
		}
		raw := s.extract(cfg).(string)
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", s.key, err)
		}
	}
	if cfg.Ingest.SinceDays < 1 {
		return fmt.Errorf("ingest.since_days must be at least 1, got %d", cfg.Ingest.SinceDays)
	}
	if cfg.RateLimit.Requests < 1 {
		return fmt.Errorf("ratelimit.requests must be at least 1, got %d", cfg.RateLimit.Requests)
	}
	switch cfg.LLM.Provider {
	case "openrouter", "ollama":
	default:
		return fmt.Errorf("unknown llm.provider %q (want openrouter or ollama)", cfg.LLM.Provider)
	}
	return nil
}

// duration parses a value already checked by validate. Empty means zero.
func duration(raw string) time.Duration {
	d, _ := time.ParseDuration(raw)
	return d
}

// DelayDuration is the pause after every transcript attempt.
func (c IngestConfig) DelayDuration() time.Duration { return duration(c.Delay) }

// IntervalDuration is the scheduler period; zero disables scheduled runs.
func (c IngestConfig) IntervalDuration() time.Duration { return duration(c.Interval) }

func (c IngestConfig) RunTimeoutDuration() time.Duration { return duration(c.RunTimeout) }

func (c RateLimitConfig) WindowDuration() time.Duration { return duration(c.Window) }
