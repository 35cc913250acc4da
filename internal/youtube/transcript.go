package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	playerResponseMarker = "ytInitialPlayerResponse = "
	maxCaptionBytes      = 2 * 1024 * 1024
)

// FetchSegments returns the caption cues of videoID. It scrapes the watch
// page first and falls back to the ANDROID player endpoint.
func (c *Client) FetchSegments(ctx context.Context, videoID string) ([]Segment, error) {
	segs, pageErr := c.segmentsViaWatchPage(ctx, videoID)
	if pageErr == nil {
		return segs, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	c.logger.Debug("watch page captions failed, trying player", "video_id", videoID, "error", pageErr)

	segs, playerErr := c.segmentsViaPlayer(ctx, videoID)
	if playerErr == nil {
		return segs, nil
	}
	return nil, fmt.Errorf("transcript %s: %w", videoID, errors.Join(pageErr, playerErr))
}

// FetchFlatText returns the transcript as a single string with cues joined
// by single spaces.
func (c *Client) FetchFlatText(ctx context.Context, videoID string) (string, error) {
	segs, err := c.FetchSegments(ctx, videoID)
	if err != nil {
		return "", err
	}
	return JoinSegments(segs), nil
}

// JoinSegments concatenates segment texts with single spaces.
func JoinSegments(segs []Segment) string {
	parts := make([]string, 0, len(segs))
	for _, s := range segs {
		if s.Text != "" {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, " ")
}

func (c *Client) segmentsViaWatchPage(ctx context.Context, videoID string) ([]Segment, error) {
	page, _, err := c.get(ctx, c.baseURL+"/watch?v="+url.QueryEscape(videoID), maxPageBytes)
	if err != nil {
		return nil, fmt.Errorf("watch page: %w", err)
	}

	idx := bytes.Index(page, []byte(playerResponseMarker))
	if idx < 0 {
		return nil, errors.New("ytInitialPlayerResponse not found in watch page")
	}
	raw := extractJSON(page[idx+len(playerResponseMarker):])
	if raw == nil {
		return nil, errors.New("truncated ytInitialPlayerResponse")
	}

	var pr playerResponse
	if err := json.Unmarshal(raw, &pr); err != nil {
		return nil, fmt.Errorf("decoding ytInitialPlayerResponse: %w", err)
	}
	return c.segmentsFromPlayer(ctx, pr)
}

func (c *Client) segmentsViaPlayer(ctx context.Context, videoID string) ([]Segment, error) {
	pr, err := c.fetchPlayer(ctx, videoID)
	if err != nil {
		return nil, err
	}
	return c.segmentsFromPlayer(ctx, pr)
}

func (c *Client) segmentsFromPlayer(ctx context.Context, pr playerResponse) ([]Segment, error) {
	tracks, err := pr.tracks()
	if err != nil {
		return nil, err
	}
	track, ok := pickBestTrack(tracks, c.languages)
	if !ok {
		return nil, unavailable("all caption tracks require a PO token")
	}

	body, _, err := c.get(ctx, track.BaseURL, maxCaptionBytes)
	if err != nil {
		return nil, fmt.Errorf("fetching captions: %w", err)
	}
	segs, err := parseTimedText(body)
	if err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return nil, unavailable("caption track is empty")
	}
	return segs, nil
}

// needsPoToken reports whether a caption URL only works in a browser.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

// pickBestTrack prefers a manual track in a preferred language, then an
// auto-generated one, then any English track, then the first usable track.
func pickBestTrack(tracks []captionTrack, langs []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if t.BaseURL != "" && !needsPoToken(t.BaseURL) {
			usable = append(usable, t)
		}
	}
	if len(usable) == 0 {
		return captionTrack{}, false
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang && t.Kind != "asr" {
				return t, true
			}
		}
	}
	for _, lang := range langs {
		for _, t := range usable {
			if t.LanguageCode == lang {
				return t, true
			}
		}
	}
	for _, t := range usable {
		if strings.HasPrefix(t.LanguageCode, "en") {
			return t, true
		}
	}
	return usable[0], true
}

// timedText covers both the legacy <transcript><text start dur> format
// (seconds) and format 3 <timedtext><body><p t d> (milliseconds).
type timedText struct {
	Texts []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
	Paragraphs []struct {
		T    int64  `xml:"t,attr"`
		D    int64  `xml:"d,attr"`
		Text string `xml:",innerxml"`
	} `xml:"body>p"`
}

func parseTimedText(body []byte) ([]Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return nil, fmt.Errorf("parsing timedtext: %w", err)
	}

	segs := make([]Segment, 0, len(tt.Texts)+len(tt.Paragraphs))
	for _, t := range tt.Texts {
		text := cleanCaption(t.Text)
		if text == "" {
			continue
		}
		segs = append(segs, Segment{
			Text:       text,
			OffsetMs:   secondsToMs(t.Start),
			DurationMs: secondsToMs(t.Dur),
		})
	}
	for _, p := range tt.Paragraphs {
		// innerxml is still XML-escaped, so unescape once before cleaning.
		text := cleanCaption(html.UnescapeString(stripTags(p.Text)))
		if text == "" {
			continue
		}
		segs = append(segs, Segment{Text: text, OffsetMs: p.T, DurationMs: p.D})
	}
	return segs, nil
}

func secondsToMs(s string) int64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int64(math.Round(f * 1000))
}

// cleanCaption decodes the entities YouTube double-escapes inside caption
// XML and collapses whitespace. s must already be XML-decoded.
func cleanCaption(s string) string {
	return strings.Join(strings.Fields(unescapeTwice.Replace(s)), " ")
}

// stripTags drops the <s> word-timing elements of format 3 captions.
func stripTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>' && inTag:
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// extractJSON returns the JSON object that starts at b[0] by tracking brace
// depth outside string literals.
func extractJSON(b []byte) []byte {
	if len(b) == 0 || b[0] != '{' {
		return nil
	}
	depth := 0
	inStr := false
	escaped := false
	for i, c := range b {
		if inStr {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inStr = false
			}
			continue
		}
		switch c {
		case '"':
			inStr = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[:i+1]
			}
		}
	}
	return nil
}
