package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/ytbrief/internal/ingest"
	"github.com/kalambet/ytbrief/internal/storage"
)

const (
	defaultTrendLimit = 10
	maxMCPLimit       = 50
)

// NewMCPServer creates an MCP server with the ytbrief tools and the index
// resource registered.
func NewMCPServer(deps Deps, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"ytbrief",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("ytbrief keeps a library of YouTube transcripts from tracked AI channels and can summarize them."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("fetch_transcripts",
			mcp.WithDescription("Fetch recent uploads from every enabled channel, store new transcripts and rebuild the index."),
			mcp.WithNumber("days", mcp.Description("Look-back window in days (default: configured since_days)")),
		),
		mcpFetchTranscripts(deps),
	)

	s.AddTool(
		mcp.NewTool("list_transcripts",
			mcp.WithDescription("List stored transcripts, newest first."),
			mcp.WithString("channel", mcp.Description("Only list transcripts from this channel name")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
		),
		mcpListTranscripts(deps),
	)

	s.AddTool(
		mcp.NewTool("analyze_transcript",
			mcp.WithDescription("Summarize a stored transcript: key topics, insights and industry trends."),
			mcp.WithString("video_id", mcp.Description("YouTube video id of a stored transcript"), mcp.Required()),
		),
		mcpAnalyzeTranscript(deps),
	)

	s.AddTool(
		mcp.NewTool("trend_report",
			mcp.WithDescription("Generate a markdown trend report from the most recent stored transcripts."),
			mcp.WithString("channel", mcp.Description("Only use transcripts from this channel name")),
			mcp.WithNumber("limit", mcp.Description("Number of recent transcripts to include (default 10, max 50)")),
		),
		mcpTrendReport(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"transcripts://index",
			"Transcript Index",
			mcp.WithResourceDescription("The generated INDEX.md of all stored transcripts"),
			mcp.WithMIMEType("text/markdown"),
		),
		mcpResourceIndex(deps),
	)

	return s
}

func mcpFetchTranscripts(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		days := req.GetInt("days", deps.SinceDays)
		if days < 1 {
			return mcpError("days must be at least 1"), nil
		}
		if deps.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.RunTimeout)
			defer cancel()
		}

		report, stats, err := deps.Ingester.RunAndIndex(ctx, deps.Channels, days)
		if errors.Is(err, ingest.ErrRunInProgress) {
			return mcpError("an ingestion run is already in progress"), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("ingestion failed: %v", err)), nil
		}

		b, err := json.Marshal(map[string]any{"results": report, "index": stats})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal report: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListTranscripts(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := clampLimit(req.GetInt("limit", 20), 20)

		list, err := listTranscripts(ctx, deps.Library, req.GetString("channel", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("listing transcripts failed: %v", err)), nil
		}
		if len(list) > limit {
			list = list[:limit]
		}

		out := make([]transcriptInfo, len(list))
		for i, st := range list {
			out[i] = toInfo(st, false)
		}
		b, err := json.Marshal(out)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAnalyzeTranscript(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		videoID, err := req.RequireString("video_id")
		if err != nil {
			return mcpError("video_id is required"), nil
		}

		st, err := deps.Library.Get(videoID)
		if errors.Is(err, storage.ErrNotFound) {
			return mcpError(fmt.Sprintf("no stored transcript for video %s", videoID)), nil
		} else if err != nil {
			return mcpError(fmt.Sprintf("reading transcript: %v", err)), nil
		}

		analysis, err := deps.Analyzer.Analyze(ctx, st.Transcript, st.Title)
		if err != nil {
			return mcpError(err.Error()), nil
		}
		b, err := json.Marshal(analysis)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal analysis: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpTrendReport(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := clampLimit(req.GetInt("limit", defaultTrendLimit), defaultTrendLimit)

		list, err := listTranscripts(ctx, deps.Library, req.GetString("channel", ""))
		if err != nil {
			return mcpError(fmt.Sprintf("listing transcripts failed: %v", err)), nil
		}
		if len(list) == 0 {
			return mcpError("no stored transcripts to report on"), nil
		}
		if len(list) > limit {
			list = list[:limit]
		}

		report, err := deps.Analyzer.TrendReport(ctx, trendInputs(list))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpText(report), nil
	}
}

func mcpResourceIndex(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		md, err := deps.Library.Body(storage.IndexFile)
		if errors.Is(err, storage.ErrNotFound) {
			md = emptyIndex
		} else if err != nil {
			return nil, fmt.Errorf("failed to read index: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "text/markdown",
				Text:     md,
			},
		}, nil
	}
}

func clampLimit(n, def int) int {
	if n <= 0 {
		return def
	}
	if n > maxMCPLimit {
		return maxMCPLimit
	}
	return n
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
