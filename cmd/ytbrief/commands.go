package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/ytbrief/internal/channels"
	"github.com/kalambet/ytbrief/internal/config"
	"github.com/kalambet/ytbrief/internal/ingest"
	"github.com/kalambet/ytbrief/internal/storage"
	"github.com/kalambet/ytbrief/internal/summarize"
)

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch new transcripts locally and rebuild the index",
	Long: `Fetch recent uploads from every enabled channel, store new transcripts
and rebuild INDEX.md without going through the server.

Examples:
  ytbrief ingest
  ytbrief ingest --days 7 --delay 500ms`,
	RunE: func(cmd *cobra.Command, args []string) error {
		days, _ := cmd.Flags().GetInt("days")
		delay, _ := cmd.Flags().GetDuration("delay")
		asJSON, _ := cmd.Flags().GetBool("json")

		if days < 1 {
			return fmt.Errorf("--days must be at least 1")
		}
		if delay < 0 {
			return fmt.Errorf("--delay must not be negative")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)
		cfg.Ingest.Delay = delay.String()

		a, err := openApp(cfg)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printStep("Fetching the last %d days from %d channels", days, len(channels.Enabled(a.channels)))
		report, stats, err := a.pipeline.RunAndIndex(ctx, a.channels, days)
		if asJSON {
			if encErr := writeIndented(cmd.OutOrStdout(), map[string]any{"results": report, "index": stats}); encErr != nil {
				return encErr
			}
		} else {
			printReport(cmd.OutOrStdout(), report)
		}
		if err != nil {
			return err
		}
		printSuccess("Index rebuilt: %d transcripts in %d channels", stats.Entries, stats.Channels)
		return nil
	},
}

func init() {
	// Backfill defaults: a wide window and a gentler pace than scheduled runs.
	ingestCmd.Flags().Int("days", 90, "look-back window in days")
	ingestCmd.Flags().Duration("delay", time.Second, "pause after each transcript")
	ingestCmd.Flags().Bool("json", false, "print the run report as JSON")
}

// --- fetch ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Trigger an ingestion run on the running server",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newCronClient()
		if err != nil {
			return err
		}

		printStep("Triggering ingestion on %s", client.baseURL)
		resp, err := client.post(cmd.Context(), "/api/cron/fetch-transcripts", nil)
		if err != nil {
			return err
		}

		var result struct {
			Results ingest.Report      `json:"results"`
			Index   storage.IndexStats `json:"index"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			if isStatus(err, http.StatusConflict) {
				printWarning("An ingestion run is already in progress")
				return nil
			}
			return err
		}
		if asJSON {
			return writeIndented(cmd.OutOrStdout(), result)
		}
		printReport(cmd.OutOrStdout(), result.Results)
		printSuccess("Index rebuilt: %d transcripts in %d channels", result.Index.Entries, result.Index.Channels)
		return nil
	},
}

func init() {
	fetchCmd.Flags().Bool("json", false, "print the run report as JSON")
}

// --- index ---

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Rebuild INDEX.md from the stored transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		store, err := storage.Open(cfg.Storage.TranscriptsDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		stats, err := store.RebuildIndex(cmd.Context())
		if err != nil {
			return err
		}
		if stats.Dropped > 0 {
			printWarning("Skipped %d files without valid front matter", stats.Dropped)
		}
		printSuccess("Wrote %s: %d transcripts in %d channels", store.IndexPath(), stats.Entries, stats.Channels)
		return nil
	},
}

// --- channels ---

var channelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "List the configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		list, err := channels.Load(cfg.Channels.File)
		if err != nil {
			return err
		}
		printChannels(cmd.OutOrStdout(), list)
		return nil
	},
}

func printChannels(w io.Writer, list []channels.Channel) {
	for _, ch := range list {
		state := colorize(colorGreen, "enabled")
		if !ch.Enabled {
			state = colorize(colorYellow, "disabled")
		}
		id := ch.ChannelID
		if id == "" {
			id = "(resolved at run time)"
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n", colorize(colorCyan, ch.ID), ch.Label(), id, state)
	}
}

// --- transcripts ---

type transcriptInfo struct {
	VideoID     string    `json:"videoId"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
	File        string    `json:"file"`
}

var transcriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "List stored transcripts, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		channel, _ := cmd.Flags().GetString("channel")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", fmt.Sprint(limit))
		if channel != "" {
			q.Set("channel", channel)
		}
		resp, err := client.get(cmd.Context(), "/api/transcripts?"+q.Encode())
		if err != nil {
			return err
		}

		var result struct {
			Total       int              `json:"total"`
			Transcripts []transcriptInfo `json:"transcripts"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if len(result.Transcripts) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No transcripts found.")
			return nil
		}

		for _, t := range result.Transcripts {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %s  %s\n",
				colorize(colorCyan, t.VideoID),
				t.PublishedAt.Format("2006-01-02"),
				t.Channel,
				t.Title,
			)
		}
		if result.Total > len(result.Transcripts) {
			fmt.Fprintf(cmd.OutOrStdout(), "(%d of %d)\n", len(result.Transcripts), result.Total)
		}
		return nil
	},
}

func init() {
	transcriptsCmd.Flags().Int("limit", 20, "maximum number of transcripts to list")
	transcriptsCmd.Flags().String("channel", "", "only list this channel")
}

// --- analyze ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [video-id]",
	Short: "Summarize a stored transcript or a transcript file",
	Long: `Summarize a transcript with the configured LLM.

Examples:
  ytbrief analyze dQw4w9WgXcQ
  ytbrief analyze --file ./talk.txt --title "Keynote"`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		title, _ := cmd.Flags().GetString("title")
		asJSON, _ := cmd.Flags().GetBool("json")

		body := map[string]any{}
		switch {
		case file != "":
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			if title == "" {
				title = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}
			body["transcript"] = string(data)
			body["title"] = title
		case len(args) == 1:
			body["videoId"] = args[0]
			if title != "" {
				body["title"] = title
			}
		default:
			return fmt.Errorf("a video id or --file is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/api/analyze", body)
		if err != nil {
			return err
		}

		var result struct {
			Analysis summarize.Analysis `json:"analysis"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		if asJSON {
			return writeIndented(cmd.OutOrStdout(), result.Analysis)
		}
		printAnalysis(cmd.OutOrStdout(), result.Analysis)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("file", "", "analyze the transcript in this file")
	analyzeCmd.Flags().String("title", "", "video title (default: stored title or file name)")
	analyzeCmd.Flags().Bool("json", false, "print the analysis as JSON")
}

func printAnalysis(w io.Writer, a summarize.Analysis) {
	fmt.Fprintf(w, "%s\n%s\n", colorize(colorBold, "Summary"), a.Summary)
	for _, sec := range []struct {
		title string
		items []string
	}{
		{"Key topics", a.KeyTopics},
		{"Main insights", a.MainInsights},
		{"Industry trends", a.IndustryTrends},
	} {
		if len(sec.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s\n", colorize(colorBold, sec.title))
		for _, item := range sec.items {
			fmt.Fprintf(w, "  - %s\n", item)
		}
	}
}

// --- trend ---

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Write a markdown trend report from the most recent transcripts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		channel, _ := cmd.Flags().GetString("channel")
		output, _ := cmd.Flags().GetString("output")

		if limit < 1 || limit > 50 {
			return fmt.Errorf("--limit must be between 1 and 50")
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		store, err := storage.Open(cfg.Storage.TranscriptsDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		all, err := store.List(cmd.Context())
		if err != nil {
			return err
		}
		inputs := trendInputs(all, channel, limit)
		if len(inputs) == 0 {
			return fmt.Errorf("no stored transcripts to report on")
		}

		s, err := newSummarizer(cmd.Context(), cfg, stderr)
		if err != nil {
			return err
		}
		printStep("Generating a trend report from %d transcripts with %s", len(inputs), s.Model())
		report, err := s.TrendReport(cmd.Context(), inputs)
		if err != nil {
			return err
		}

		if output == "" {
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		}
		if err := os.WriteFile(output, []byte(report+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		printSuccess("Trend report written to %s", output)
		return nil
	},
}

func init() {
	trendCmd.Flags().Int("limit", 10, "number of recent transcripts to include")
	trendCmd.Flags().String("channel", "", "only use this channel")
	trendCmd.Flags().String("output", "", "write the report to a file instead of stdout")
}

// trendInputs picks the newest limit transcripts, optionally from a single
// channel. list must already be sorted newest first.
func trendInputs(list []storage.StoredTranscript, channel string, limit int) []summarize.TrendInput {
	var out []summarize.TrendInput
	for _, st := range list {
		if len(out) == limit {
			break
		}
		if channel != "" && !strings.EqualFold(st.Channel, channel) {
			continue
		}
		out = append(out, summarize.TrendInput{
			Title:      st.Title,
			Transcript: st.Transcript,
			Date:       st.PublishedAt,
		})
	}
	return out
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nValid keys: " +
		strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		if err := config.SetKey(key, value); err != nil {
			return err
		}
		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a configuration value so the default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
