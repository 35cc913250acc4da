package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kalambet/ytbrief/internal/ingest"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// stderr receives status output; stdout is reserved for command results
// and for the MCP stdio transport.
var stderr io.Writer = os.Stderr

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	fmt.Fprintf(stderr, "  %s %s\n", colorize(colorBold, label+":"), fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(stderr, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

// printReport writes a per-channel summary of an ingestion run.
func printReport(w io.Writer, r ingest.Report) {
	for _, ch := range r.Channels {
		name := colorize(colorBold, ch.Channel)
		if ch.Error != "" {
			fmt.Fprintf(w, "  %s %s\n", name, colorize(colorRed, ch.Error))
			continue
		}
		fmt.Fprintf(w, "  %s found %d, saved %d, skipped %d, failed %d",
			name, ch.VideosFound, ch.Successful, ch.Skipped, ch.Failed)
		if ch.Dropped > 0 {
			fmt.Fprintf(w, ", dropped %d", ch.Dropped)
		}
		fmt.Fprintln(w)
	}
	t := r.Totals
	fmt.Fprintf(w, "  %s %d videos, %d saved, %d skipped, %d failed (%s)\n",
		colorize(colorBold, "Total:"), t.Videos, t.Successful, t.Skipped, t.Failed,
		r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond))
}
