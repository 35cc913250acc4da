package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/kalambet/ytbrief/internal/channels"
	"github.com/kalambet/ytbrief/internal/config"
	"github.com/kalambet/ytbrief/internal/ingest"
	"github.com/kalambet/ytbrief/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
	status   map[string]int
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{status: map[string]int{}}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			if code, ok := ts.status[key]; ok {
				w.WriteHeader(code)
			}
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found_error"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// useServer points both API client constructors at ts for the duration of
// the test.
func useServer(t *testing.T, ts *testServer) {
	t.Helper()
	oldAPI, oldCron := newAPIClient, newCronClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	newCronClient = func() (*apiClient, error) {
		c := ts.client()
		c.token = "cron-token"
		return c, nil
	}
	t.Cleanup(func() { newAPIClient, newCronClient = oldAPI, oldCron })
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCmd executes the root command with args and returns stdout and the
// status output.
func runCmd(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, status bytes.Buffer
	oldStderr := stderr
	stderr = &status
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--no-color"}, args...))
	t.Cleanup(func() {
		stderr = oldStderr
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		noColor = false
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), status.String(), err
}

var ctx = context.Background()

const cronJSON = `{"success":true,"timestamp":"2025-03-10T12:00:00Z",
"results":{"runId":"run-1","startedAt":"2025-03-10T12:00:00Z","finishedAt":"2025-03-10T12:00:02Z","sinceDays":2,
"channels":[{"channel":"AI Daily Brief","channelId":"UC1","videosFound":3,"successful":2,"failed":0,"skipped":1,"dropped":0}],
"totals":{"videos":3,"successful":2,"failed":0,"skipped":1,"dropped":0}},
"index":{"entries":12,"channels":1,"dropped":0}}`

func TestFetchCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/cron/fetch-transcripts": cronJSON,
	})
	useServer(t, ts)

	out, status, err := runCmd(t, "fetch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/api/cron/fetch-transcripts" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	if r.Auth != "Bearer cron-token" {
		t.Errorf("auth = %q, want the cron secret", r.Auth)
	}

	if !strings.Contains(out, "AI Daily Brief found 3, saved 2, skipped 1, failed 0") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(status, "12 transcripts in 1 channels") {
		t.Errorf("status = %q", status)
	}
}

func TestFetchCommand_JSON(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/cron/fetch-transcripts": cronJSON,
	})
	useServer(t, ts)

	out, _, err := runCmd(t, "fetch", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var result struct {
		Results ingest.Report      `json:"results"`
		Index   storage.IndexStats `json:"index"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if result.Results.RunID != "run-1" || result.Index.Entries != 12 {
		t.Errorf("result = %+v", result)
	}
}

func TestFetchCommand_InProgress(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/cron/fetch-transcripts": `{"success":false,"error":{"message":"ingestion run already in progress","type":"conflict_error"}}`,
	})
	ts.status["POST /api/cron/fetch-transcripts"] = http.StatusConflict
	useServer(t, ts)

	_, status, err := runCmd(t, "fetch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(status, "already in progress") {
		t.Errorf("status = %q, want in-progress warning", status)
	}
}

func TestAnalyzeCommand_VideoID(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/analyze": `{"success":true,"analysis":{"summary":"Agents everywhere.","keyTopics":["agents"],"mainInsights":["small loops"]}}`,
	})
	useServer(t, ts)

	out, _, err := runCmd(t, "analyze", "vid123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["videoId"] != "vid123" {
		t.Errorf("body.videoId = %v, want vid123", body["videoId"])
	}
	if _, ok := body["transcript"]; ok {
		t.Error("transcript should not be sent with a video id")
	}
	if ts.requests[0].Auth != "Bearer test-token" {
		t.Errorf("auth = %q", ts.requests[0].Auth)
	}

	for _, want := range []string{"Summary\nAgents everywhere.", "Key topics\n  - agents", "Main insights\n  - small loops"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Industry trends") {
		t.Error("empty sections should be omitted")
	}
}

func TestAnalyzeCommand_File(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/analyze": `{"success":true,"analysis":{"summary":"s","keyTopics":[],"mainInsights":[]}}`,
	})
	useServer(t, ts)

	path := filepath.Join(t.TempDir(), "keynote.txt")
	if err := os.WriteFile(path, []byte("hello from the keynote"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runCmd(t, "analyze", "--file", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body map[string]any
	json.Unmarshal([]byte(ts.requests[0].Body), &body)
	if body["transcript"] != "hello from the keynote" {
		t.Errorf("body.transcript = %v", body["transcript"])
	}
	if body["title"] != "keynote" {
		t.Errorf("body.title = %v, want file name without extension", body["title"])
	}
}

func TestAnalyzeCommand_MissingArgs(t *testing.T) {
	_, _, err := runCmd(t, "analyze")
	if err == nil {
		t.Fatal("expected error for missing args")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestAnalyzeCommand_ServerError(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	useServer(t, ts)

	_, _, err := runCmd(t, "analyze", "missing")
	if err == nil {
		t.Fatal("expected error for unknown video")
	}
	if !isStatus(err, http.StatusNotFound) {
		t.Errorf("error = %v, want 404 serverError", err)
	}
}

func TestTranscriptsCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/transcripts": `{"success":true,"total":7,"transcripts":[
			{"videoId":"v2","title":"Agents","channel":"AI Daily Brief","publishedAt":"2025-03-10T08:00:00Z"},
			{"videoId":"v1","title":"Evals","channel":"AI Daily Brief","publishedAt":"2025-03-09T08:00:00Z"}]}`,
	})
	useServer(t, ts)

	out, _, err := runCmd(t, "transcripts", "--limit", "2", "--channel", "AI Daily Brief")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	reqPath := ts.requests[0].Path
	if !strings.Contains(reqPath, "channel=AI+Daily+Brief") || !strings.Contains(reqPath, "limit=2") {
		t.Errorf("unexpected query: %q", reqPath)
	}
	if !strings.Contains(out, "v2  2025-03-10  AI Daily Brief  Agents") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "(2 of 7)") {
		t.Errorf("output should note truncation: %q", out)
	}
}

func TestTranscriptsCommand_Empty(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /api/transcripts": `{"success":true,"total":0,"transcripts":[]}`,
	})
	useServer(t, ts)

	out, _, err := runCmd(t, "transcripts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No transcripts found.") {
		t.Errorf("output = %q", out)
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"ok"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"invalid API key","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var v any
	err = decodeJSON(resp, &v)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if err.Error() != "server returned 401: invalid API key" {
		t.Errorf("error = %q", err.Error())
	}
	if !isStatus(err, http.StatusUnauthorized) {
		t.Error("isStatus(401) = false")
	}
	if isStatus(err, http.StatusNotFound) {
		t.Error("isStatus(404) = true")
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer ts.Close()

	resp, err := http.Get(ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v any
	err = decodeJSON(resp, &v)
	if err == nil || err.Error() != "server returned 502: bad gateway" {
		t.Errorf("error = %v", err)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestPrintReport_ChannelError(t *testing.T) {
	old := noColor
	noColor = true
	defer func() { noColor = old }()

	start := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	printReport(&buf, ingest.Report{
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Channels: []ingest.ChannelReport{
			{Channel: "Broken", Error: "could not resolve channel"},
			{Channel: "Good", VideosFound: 2, Successful: 1, Dropped: 1},
		},
		Totals: ingest.Totals{Videos: 2, Successful: 1, Dropped: 1},
	})

	out := buf.String()
	for _, want := range []string{
		"Broken could not resolve channel",
		"Good found 2, saved 1, skipped 0, failed 0, dropped 1",
		"Total: 2 videos, 1 saved, 0 skipped, 0 failed (1.5s)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestPrintChannels(t *testing.T) {
	old := noColor
	noColor = true
	defer func() { noColor = old }()

	var buf bytes.Buffer
	printChannels(&buf, []channels.Channel{
		{ID: "brief", Handle: "@AIDailyBrief", ChannelID: "UC1", Enabled: true},
		{ID: "other", Name: "Other", Enabled: false},
	})

	out := buf.String()
	if !strings.Contains(out, "brief  @AIDailyBrief  UC1  enabled") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "other  Other  (resolved at run time)  disabled") {
		t.Errorf("output = %q", out)
	}
}

func TestTrendInputs(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2025, 3, d, 0, 0, 0, 0, time.UTC) }
	list := []storage.StoredTranscript{
		{Entry: storage.Entry{Title: "c", Channel: "AI Daily Brief", PublishedAt: day(3)}, Transcript: "tc"},
		{Entry: storage.Entry{Title: "b", Channel: "Other", PublishedAt: day(2)}, Transcript: "tb"},
		{Entry: storage.Entry{Title: "a", Channel: "AI Daily Brief", PublishedAt: day(1)}, Transcript: "ta"},
	}

	got := trendInputs(list, "", 2)
	if len(got) != 2 || got[0].Title != "c" || got[1].Title != "b" {
		t.Errorf("unfiltered = %+v", got)
	}

	got = trendInputs(list, "ai daily brief", 10)
	if len(got) != 2 || got[1].Title != "a" || got[1].Transcript != "ta" || !got[1].Date.Equal(day(1)) {
		t.Errorf("filtered = %+v", got)
	}

	if got := trendInputs(list, "nobody", 10); len(got) != 0 {
		t.Errorf("no match = %+v", got)
	}
}

func TestTrendCommand_InvalidLimit(t *testing.T) {
	_, _, err := runCmd(t, "trend", "--limit", "51")
	if err == nil || !strings.Contains(err.Error(), "between 1 and 50") {
		t.Errorf("error = %v", err)
	}
}

func TestPIDFile(t *testing.T) {
	path := pidFilePath(filepath.Join(t.TempDir(), "data"))
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := readPIDFile(path)
	if err != nil {
		t.Fatalf("readPIDFile: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("pid = %d, want %d", pid, os.Getpid())
	}

	removePIDFile(path)
	if _, err := readPIDFile(path); err == nil {
		t.Error("expected error after removing PID file")
	}
}

func TestLocalURL(t *testing.T) {
	for _, tc := range []struct {
		bind string
		want string
	}{
		{"127.0.0.1", "http://127.0.0.1:4000"},
		{"0.0.0.0", "http://127.0.0.1:4000"},
		{"", "http://127.0.0.1:4000"},
		{"::1", "http://[::1]:4000"},
	} {
		cfg := config.Config{Server: config.ServerConfig{Bind: tc.bind, Port: 4000}}
		if got := localURL(cfg); got != tc.want {
			t.Errorf("localURL(%q) = %q, want %q", tc.bind, got, tc.want)
		}
	}
}

func TestIngestCommand_InvalidFlags(t *testing.T) {
	_, _, err := runCmd(t, "ingest", "--days", "0")
	if err == nil || !strings.Contains(err.Error(), "--days must be at least 1") {
		t.Errorf("error = %v", err)
	}
}
