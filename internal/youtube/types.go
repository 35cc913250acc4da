// Package youtube talks to public YouTube endpoints: channel pages for id
// resolution, the per-channel Atom feed, and caption tracks.
package youtube

import "time"

// WatchURLPrefix is the canonical watch URL; a video id completes it.
const WatchURLPrefix = "https://www.youtube.com/watch?v="

// ChannelRef is the outcome of resolving a handle.
type ChannelRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Video is one feed entry.
type Video struct {
	VideoID     string    `json:"videoId"`
	Title       string    `json:"title"`
	ChannelID   string    `json:"channelId"`
	ChannelName string    `json:"channelName"`
	PublishedAt time.Time `json:"publishedAt"`
	URL         string    `json:"url"`
}

// Segment is one caption cue.
type Segment struct {
	Text       string `json:"text"`
	OffsetMs   int64  `json:"offsetMs"`
	DurationMs int64  `json:"durationMs"`
}

// VideoTranscript is a Video with its flattened transcript.
type VideoTranscript struct {
	Video
	Transcript string    `json:"transcript"`
	Segments   []Segment `json:"segments,omitempty"`
}
