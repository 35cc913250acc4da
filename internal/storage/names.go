package storage

import (
	"regexp"
	"strings"
)

const maxNameLen = 200

var (
	unsafeChars = regexp.MustCompile(`[^a-z0-9_.-]`)
	dashRuns    = regexp.MustCompile(`-{2,}`)
	nonAlnum    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Sanitize maps s onto [a-z0-9-_.] (case-insensitive input), collapses dash
// runs, trims leading and trailing dashes and caps the result at 200 bytes.
// Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(s string) string {
	s = unsafeChars.ReplaceAllString(strings.ToLower(s), "-")
	s = dashRuns.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxNameLen {
		s = strings.TrimRight(s[:maxNameLen], "-")
	}
	return s
}

// Slug lowercases s, replaces every run of non-alphanumerics with a single
// dash, trims dashes and caps the length at max.
func Slug(s string, max int) string {
	s = nonAlnum.ReplaceAllString(strings.ToLower(s), "-")
	s = strings.Trim(s, "-")
	if max > 0 && len(s) > max {
		s = strings.TrimRight(s[:max], "-")
	}
	return s
}

// Filename is {YYYY-MM-DD}_{channel}_{title}.md for t.
func Filename(t Transcript) string {
	date := t.PublishedAt.UTC().Format("2006-01-02")
	channel := Sanitize(t.ChannelName)
	title := Sanitize(Slug(t.Title, 50))
	if channel == "" {
		channel = "unknown"
	}
	if title == "" {
		title = Sanitize(t.VideoID)
	}
	return date + "_" + channel + "_" + title + ".md"
}
