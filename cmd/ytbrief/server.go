package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/ytbrief/internal/api"
	"github.com/kalambet/ytbrief/internal/config"
	"github.com/kalambet/ytbrief/internal/ingest"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server (foreground)",
	Long: `Run the HTTP server in the foreground.

The server exposes the transcript index at /, the cron trigger at
/api/cron/fetch-transcripts and the analysis API under /api. When
ingest.interval is set, ingestion also runs on that schedule. With --mcp
an MCP server is attached to stdin/stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP over stdio")
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running ytbrief server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ytbrief status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "ytbrief.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func localURL(cfg config.Config) string {
	host := cfg.Server.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(cfg.Server.Port))
}

func runServer(withMCP bool) error {
	fmt.Fprintf(stderr, "ytbrief version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(localURL(cfg) + "/health"); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	if cfg.Auth.CronSecret == "" {
		slog.Warn("YTBRIEF_CRON_SECRET is not set, cron requests will be refused")
	}
	if cfg.Auth.APIKey == "" {
		slog.Warn("YTBRIEF_API_KEY is not set, API requests will be refused")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	summarizer, err := newSummarizer(ctx, cfg, stderr)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Ingester:   a.pipeline,
		Library:    a.store,
		Analyzer:   summarizer,
		Channels:   a.channels,
		SinceDays:  cfg.Ingest.SinceDays,
		RunTimeout: cfg.Ingest.RunTimeoutDuration(),
		CronSecret: cfg.Auth.CronSecret,
		APIKey:     cfg.Auth.APIKey,
		Limiter:    api.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.WindowDuration()),
	}

	addr := net.JoinHostPort(cfg.Server.Bind, strconv.Itoa(cfg.Server.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(stderr, "ytbrief listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if interval := cfg.Ingest.IntervalDuration(); interval > 0 {
		sched := ingest.NewScheduler(a.pipeline, a.channels, cfg.Ingest.SinceDays, interval, cfg.Ingest.RunTimeoutDuration())
		g.Go(func() error {
			sched.Run(gctx)
			return nil
		})
		slog.Info("scheduled ingestion enabled", "interval", interval)
	}

	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(deps, version))
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("ytbrief is not running (no PID file): %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("could not find process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		return fmt.Errorf("could not stop ytbrief (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to ytbrief (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(localURL(cfg) + "/health")
	running := false
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running at %s", localURL(cfg))
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	switch cfg.LLM.Provider {
	case "ollama":
		printStatus("LLM", "ollama %s at %s", cfg.Ollama.Model, cfg.Ollama.BaseURL)
		if ollamaResp, err := client.Get(cfg.Ollama.BaseURL + "/api/version"); err != nil {
			printStatus("Ollama", "not running")
		} else {
			ollamaResp.Body.Close()
			printStatus("Ollama", "running")
		}
	default:
		printStatus("LLM", "openrouter %s", cfg.LLM.Model)
	}

	if interval := cfg.Ingest.IntervalDuration(); interval > 0 {
		printStatus("Schedule", "every %s, last %d days", interval, cfg.Ingest.SinceDays)
	} else {
		printStatus("Schedule", "cron only")
	}

	if running && cfg.Auth.APIKey != "" {
		if c, err := newAPIClient(); err == nil {
			if total, err := countTranscripts(c); err == nil {
				printStatus("Transcripts", "%d", total)
			}
		}
	}

	printStatus("Transcripts dir", "%s", cfg.Storage.TranscriptsDir)
	printStatus("Config file", "%s", config.FilePath())
	return nil
}

func countTranscripts(c *apiClient) (int, error) {
	resp, err := c.get(context.Background(), "/api/transcripts?limit=1")
	if err != nil {
		return 0, err
	}
	var out struct {
		Total int `json:"total"`
	}
	if err := decodeJSON(resp, &out); err != nil {
		return 0, err
	}
	return out.Total, nil
}
