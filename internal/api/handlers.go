package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/ytbrief/internal/ingest"
	"github.com/kalambet/ytbrief/internal/storage"
	"github.com/kalambet/ytbrief/internal/summarize"
)

type cronResponse struct {
	Success   bool               `json:"success"`
	Timestamp time.Time          `json:"timestamp"`
	Results   ingest.Report      `json:"results"`
	Index     storage.IndexStats `json:"index"`
}

func handleCronFetch(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if deps.RunTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, deps.RunTimeout)
			defer cancel()
		}

		report, stats, err := deps.Ingester.RunAndIndex(ctx, deps.Channels, deps.SinceDays)
		switch {
		case errors.Is(err, ingest.ErrRunInProgress):
			opError(w, http.StatusConflict, "conflict_error", "%v", err)
			return
		case err != nil:
			deps.logger().Error("scheduled transcript fetch failed", "run_id", report.RunID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]any{
				"success": false,
				"error":   errorBody("api_error", err.Error()),
				"results": report,
			})
			return
		}

		writeJSON(w, http.StatusOK, cronResponse{
			Success:   true,
			Timestamp: time.Now().UTC(),
			Results:   report,
			Index:     stats,
		})
	}
}

type analyzeBody struct {
	analyzeRequest
	VideoID string `json:"videoId"`
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body analyzeBody
		if !decodeBody(w, r, &body) {
			return
		}

		req := body.analyzeRequest
		if req.Transcript == "" && body.VideoID != "" {
			st, err := deps.Library.Get(body.VideoID)
			if errors.Is(err, storage.ErrNotFound) {
				opError(w, http.StatusNotFound, "not_found_error", "no stored transcript for video %s", body.VideoID)
				return
			} else if err != nil {
				opError(w, http.StatusInternalServerError, "api_error", "reading transcript: %v", err)
				return
			}
			req.Transcript = st.Transcript
			if req.Title == "" {
				req.Title = st.Title
			}
		}
		if err := req.validate(); err != nil {
			opError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		analysis, err := deps.Analyzer.Analyze(r.Context(), req.Transcript, req.Title)
		if err != nil {
			opError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"analysis": analysis,
		})
	}
}

func handleTrendReport(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req trendRequest
		if !decodeBody(w, r, &req) {
			return
		}
		inputs, err := req.inputs()
		if err != nil {
			opError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		report, err := deps.Analyzer.TrendReport(r.Context(), inputs)
		if err != nil {
			opError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"report":      report,
			"generatedAt": time.Now().UTC(),
		})
	}
}

// transcriptInfo is the public view of a stored transcript.
type transcriptInfo struct {
	VideoID     string    `json:"videoId"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
	File        string    `json:"file"`
	Transcript  string    `json:"transcript,omitempty"`
}

func toInfo(st storage.StoredTranscript, withText bool) transcriptInfo {
	info := transcriptInfo{
		VideoID:     st.VideoID,
		Title:       st.Title,
		Channel:     st.Channel,
		PublishedAt: st.PublishedAt,
		URL:         st.URL,
		File:        st.File,
	}
	if withText {
		info.Transcript = st.Transcript
	}
	return info
}

func handleListTranscripts(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 50, 500)
		offset := parseIntParam(r, "offset", 0, 0)

		all, err := listTranscripts(r.Context(), deps.Library, r.URL.Query().Get("channel"))
		if err != nil {
			opError(w, http.StatusInternalServerError, "api_error", "listing transcripts: %v", err)
			return
		}

		page := []transcriptInfo{}
		for i := offset; i < len(all) && len(page) < limit; i++ {
			page = append(page, toInfo(all[i], false))
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":     true,
			"total":       len(all),
			"transcripts": page,
		})
	}
}

func handleGetTranscript(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := deps.Library.Get(chi.URLParam(r, "videoID"))
		if errors.Is(err, storage.ErrNotFound) {
			opError(w, http.StatusNotFound, "not_found_error", "%v", err)
			return
		} else if err != nil {
			opError(w, http.StatusInternalServerError, "api_error", "%v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"transcript": toInfo(st, true),
		})
	}
}

// listTranscripts returns stored transcripts newest first, optionally
// limited to one channel (case-insensitive).
func listTranscripts(ctx context.Context, lib Library, channel string) ([]storage.StoredTranscript, error) {
	all, err := lib.List(ctx)
	if err != nil {
		return nil, err
	}
	if channel == "" {
		return all, nil
	}
	out := all[:0]
	for _, st := range all {
		if strings.EqualFold(st.Channel, channel) {
			out = append(out, st)
		}
	}
	return out, nil
}

// trendInputs converts stored transcripts for the summarizer.
func trendInputs(list []storage.StoredTranscript) []summarize.TrendInput {
	out := make([]summarize.TrendInput, len(list))
	for i, st := range list {
		out[i] = summarize.TrendInput{Title: st.Title, Transcript: st.Transcript, Date: st.PublishedAt}
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			opError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "request body exceeds %d bytes", tooBig.Limit)
			return false
		}
		opError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return false
	}
	return true
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
