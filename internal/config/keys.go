package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
	// kDuration values are stored as strings and must parse with
	// time.ParseDuration. Empty is allowed and means zero.
	kDuration
)

type keySpec struct {
	key    string
	typ    keyType
	env    string
	secret bool
	// oneOf restricts string values when non-empty.
	oneOf   []string
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "YTBRIEF_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.bind", typ: kString, env: "YTBRIEF_SERVER_BIND",
		apply:   func(cfg *Config, v any) { cfg.Server.Bind = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Bind },
	},
	{
		key: "storage.data_dir", typ: kString, env: "YTBRIEF_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.transcripts_dir", typ: kString, env: "YTBRIEF_TRANSCRIPTS_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.TranscriptsDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.TranscriptsDir },
	},
	{
		key: "channels.file", typ: kString, env: "YTBRIEF_CHANNELS_FILE",
		apply:   func(cfg *Config, v any) { cfg.Channels.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Channels.File },
	},
	{
		key: "ingest.since_days", typ: kInt, env: "YTBRIEF_INGEST_SINCE_DAYS",
		apply:   func(cfg *Config, v any) { cfg.Ingest.SinceDays = v.(int) },
		extract: func(cfg Config) any { return cfg.Ingest.SinceDays },
	},
	{
		key: "ingest.delay", typ: kDuration, env: "YTBRIEF_INGEST_DELAY",
		apply:   func(cfg *Config, v any) { cfg.Ingest.Delay = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.Delay },
	},
	{
		key: "ingest.interval", typ: kDuration, env: "YTBRIEF_INGEST_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Ingest.Interval = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.Interval },
	},
	{
		key: "ingest.run_timeout", typ: kDuration, env: "YTBRIEF_INGEST_RUN_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Ingest.RunTimeout = v.(string) },
		extract: func(cfg Config) any { return cfg.Ingest.RunTimeout },
	},
	{
		key: "ratelimit.requests", typ: kInt, env: "YTBRIEF_RATELIMIT_REQUESTS",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.Requests = v.(int) },
		extract: func(cfg Config) any { return cfg.RateLimit.Requests },
	},
	{
		key: "ratelimit.window", typ: kDuration, env: "YTBRIEF_RATELIMIT_WINDOW",
		apply:   func(cfg *Config, v any) { cfg.RateLimit.Window = v.(string) },
		extract: func(cfg Config) any { return cfg.RateLimit.Window },
	},
	{
		key: "auth.cron_secret", typ: kString, env: "YTBRIEF_CRON_SECRET",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Auth.CronSecret = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.CronSecret },
	},
	{
		key: "auth.api_key", typ: kString, env: "YTBRIEF_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.Auth.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Auth.APIKey },
	},
	{
		key: "llm.provider", typ: kString, env: "YTBRIEF_LLM_PROVIDER",
		oneOf: []string{"openrouter", "ollama"},
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "llm.model", typ: kString, env: "YTBRIEF_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.base_url", typ: kString, env: "YTBRIEF_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.openrouter_api_key", typ: kString, env: "YTBRIEF_OPENROUTER_API_KEY",
		secret: true,
		apply:   func(cfg *Config, v any) { cfg.LLM.OpenRouterAPIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.OpenRouterAPIKey },
	},
	{
		key: "ollama.base_url", typ: kString, env: "YTBRIEF_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", typ: kString, env: "YTBRIEF_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "ollama.num_ctx", typ: kInt, env: "YTBRIEF_OLLAMA_NUM_CTX",
		apply:   func(cfg *Config, v any) { cfg.Ollama.NumCtx = v.(int) },
		extract: func(cfg Config) any { return cfg.Ollama.NumCtx },
	},
	{
		key: "log.level", typ: kString, env: "YTBRIEF_LOG_LEVEL",
		oneOf: []string{"debug", "info", "warn", "error"},
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString, kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString, kDuration:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}
