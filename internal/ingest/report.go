package ingest

import "time"

// ChannelReport is one channel's outcome. Error is set only when the
// channel could not be resolved or its feed could not be listed.
type ChannelReport struct {
	Channel     string `json:"channel"`
	ChannelID   string `json:"channelId,omitempty"`
	VideosFound int    `json:"videosFound"`
	Successful  int    `json:"successful"`
	Failed      int    `json:"failed"`
	Skipped     int    `json:"skipped"`
	// Dropped counts videos whose transcript could not be fetched.
	Dropped int    `json:"dropped"`
	Error   string `json:"error,omitempty"`
}

type Totals struct {
	Videos     int `json:"videos"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
	Skipped    int `json:"skipped"`
	Dropped    int `json:"dropped"`
}

// Report summarises one ingestion run.
type Report struct {
	RunID      string          `json:"runId"`
	StartedAt  time.Time       `json:"startedAt"`
	FinishedAt time.Time       `json:"finishedAt"`
	SinceDays  int             `json:"sinceDays"`
	Channels   []ChannelReport `json:"channels"`
	Totals     Totals          `json:"totals"`
}

func (r *Report) add(cr ChannelReport) {
	r.Channels = append(r.Channels, cr)
	r.Totals.Videos += cr.VideosFound
	r.Totals.Successful += cr.Successful
	r.Totals.Failed += cr.Failed
	r.Totals.Skipped += cr.Skipped
	r.Totals.Dropped += cr.Dropped
}

// Errors returns the channel-level errors in report order.
func (r Report) Errors() []ChannelReport {
	var out []ChannelReport
	for _, c := range r.Channels {
		if c.Error != "" {
			out = append(out, c)
		}
	}
	return out
}
