package storage

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested transcript does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoFrontMatter is returned for files that do not start with a --- block.
var ErrNoFrontMatter = errors.New("missing front matter")

// PathTraversalError reports a computed file path that resolves outside the
// storage root.
type PathTraversalError struct {
	Path string
	Root string
}

func (e *PathTraversalError) Error() string {
	return fmt.Sprintf("path %q escapes storage root %q", e.Path, e.Root)
}

// Transcript is a video with its flattened transcript, ready to persist.
type Transcript struct {
	VideoID     string
	Title       string
	ChannelName string
	PublishedAt time.Time
	URL         string
	Text        string
}

// Entry is the front matter of one stored transcript file.
type Entry struct {
	File        string
	Title       string
	VideoID     string
	Channel     string
	PublishedAt time.Time
	URL         string
}

// StoredTranscript is an Entry plus the transcript body.
type StoredTranscript struct {
	Entry
	Transcript string
}

// BatchResult counts the outcome of BatchSave.
type BatchResult struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
}

// IndexStats describes the last RebuildIndex run.
type IndexStats struct {
	Entries  int `json:"entries"`
	Channels int `json:"channels"`
	Dropped  int `json:"dropped"`
}
