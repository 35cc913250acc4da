package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/ytbrief/internal/channels"
	"github.com/kalambet/ytbrief/internal/ingest"
	"github.com/kalambet/ytbrief/internal/storage"
	"github.com/kalambet/ytbrief/internal/summarize"
)

// --- helpers ---

func newTestMCPDeps(t *testing.T) (Deps, *mockIngester, *mockAnalyzer) {
	t.Helper()
	ing := &mockIngester{report: ingest.Report{RunID: "run-mcp"}}
	an := &mockAnalyzer{}
	return Deps{
		Ingester:  ing,
		Library:   testLibrary(),
		Analyzer:  an,
		Channels:  channels.Defaults(),
		SinceDays: 2,
	}, ing, an
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestNewMCPServer(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	if s := NewMCPServer(deps, "test"); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}

func TestMCPTool_FetchTranscripts(t *testing.T) {
	deps, ing, _ := newTestMCPDeps(t)
	ing.stats = storage.IndexStats{Entries: 4, Channels: 1}
	handler := mcpFetchTranscripts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("fetch_transcripts", map[string]interface{}{
		"days": 7,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if ing.sinceDays != 7 {
		t.Errorf("sinceDays = %d, want 7", ing.sinceDays)
	}

	var out struct {
		Results ingest.Report      `json:"results"`
		Index   storage.IndexStats `json:"index"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &out); err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	if out.Results.RunID != "run-mcp" || out.Index.Entries != 4 {
		t.Errorf("result = %+v", out)
	}
}

func TestMCPTool_FetchTranscripts_Defaults(t *testing.T) {
	deps, ing, _ := newTestMCPDeps(t)
	result, _ := mcpFetchTranscripts(deps)(context.Background(), makeCallToolRequest("fetch_transcripts", nil))
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if ing.sinceDays != 2 {
		t.Errorf("sinceDays = %d, want configured default 2", ing.sinceDays)
	}
}

func TestMCPTool_FetchTranscripts_Errors(t *testing.T) {
	deps, ing, _ := newTestMCPDeps(t)
	handler := mcpFetchTranscripts(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("fetch_transcripts", map[string]interface{}{"days": 0}))
	if !result.IsError {
		t.Error("expected error for days = 0")
	}

	ing.err = ingest.ErrRunInProgress
	result, _ = handler(context.Background(), makeCallToolRequest("fetch_transcripts", nil))
	if !result.IsError || !strings.Contains(toolText(t, result), "already in progress") {
		t.Errorf("in-progress result = %+v", result)
	}
}

func TestMCPTool_ListTranscripts(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	handler := mcpListTranscripts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_transcripts", map[string]interface{}{
		"limit": 1,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var list []transcriptInfo
	if err := json.Unmarshal([]byte(toolText(t, result)), &list); err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	if len(list) != 1 || list[0].VideoID != "vid2" {
		t.Errorf("list = %+v, want newest only", list)
	}

	result, _ = handler(context.Background(), makeCallToolRequest("list_transcripts", map[string]interface{}{
		"channel": "ai daily brief",
	}))
	json.Unmarshal([]byte(toolText(t, result)), &list)
	if len(list) != 1 || list[0].Channel != "AI Daily Brief" {
		t.Errorf("channel filter = %+v", list)
	}
}

func TestMCPTool_AnalyzeTranscript(t *testing.T) {
	deps, _, an := newTestMCPDeps(t)
	handler := mcpAnalyzeTranscript(deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_transcript", map[string]interface{}{
		"video_id": "vid2",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	var a summarize.Analysis
	if err := json.Unmarshal([]byte(toolText(t, result)), &a); err != nil {
		t.Fatalf("parsing result: %v", err)
	}
	if a.Summary != "About Agents" || an.transcript != "agents transcript" {
		t.Errorf("analysis = %+v, analyzer transcript = %q", a, an.transcript)
	}
}

func TestMCPTool_AnalyzeTranscript_Errors(t *testing.T) {
	deps, _, an := newTestMCPDeps(t)
	handler := mcpAnalyzeTranscript(deps)

	result, _ := handler(context.Background(), makeCallToolRequest("analyze_transcript", nil))
	if !result.IsError {
		t.Error("expected error without video_id")
	}

	result, _ = handler(context.Background(), makeCallToolRequest("analyze_transcript", map[string]interface{}{"video_id": "nope"}))
	if !result.IsError || !strings.Contains(toolText(t, result), "no stored transcript") {
		t.Errorf("missing video result = %s", toolText(t, result))
	}

	an.err = &summarize.Error{Op: "AI analysis", Err: errors.New("quota")}
	result, _ = handler(context.Background(), makeCallToolRequest("analyze_transcript", map[string]interface{}{"video_id": "vid1"}))
	if !result.IsError || toolText(t, result) != "AI analysis failed: quota" {
		t.Errorf("summarizer failure result = %s", toolText(t, result))
	}
}

func TestMCPTool_TrendReport(t *testing.T) {
	deps, _, an := newTestMCPDeps(t)
	handler := mcpTrendReport(deps)

	result, err := handler(context.Background(), makeCallToolRequest("trend_report", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "# Trends across 2 videos" {
		t.Errorf("report = %q", got)
	}
	if an.inputs[0].Title != "Agents" || an.inputs[0].Transcript != "agents transcript" {
		t.Errorf("inputs = %+v", an.inputs)
	}

	result, _ = handler(context.Background(), makeCallToolRequest("trend_report", map[string]interface{}{"channel": "nobody"}))
	if !result.IsError {
		t.Error("expected error when no transcripts match")
	}
}

func TestMCPResource_Index(t *testing.T) {
	deps, _, _ := newTestMCPDeps(t)
	handler := mcpResourceIndex(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest("transcripts://index"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents, want 1", len(contents))
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.MIMEType != "text/markdown" || !strings.HasPrefix(tc.Text, "# AI Knowledge Hub") {
		t.Errorf("contents = %+v", tc)
	}
}

func TestClampLimit(t *testing.T) {
	for _, tc := range []struct{ in, want int }{{0, 10}, {-3, 10}, {5, 5}, {500, maxMCPLimit}} {
		if got := clampLimit(tc.in, 10); got != tc.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
