// Package ingest runs the channel -> feed -> transcript -> storage pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kalambet/ytbrief/internal/channels"
	"github.com/kalambet/ytbrief/internal/storage"
	"github.com/kalambet/ytbrief/internal/youtube"
)

// ErrRunInProgress is returned when another ingestion run holds the pipeline.
var ErrRunInProgress = errors.New("ingestion run already in progress")

// Resolver maps a channel handle to its id and display name.
type Resolver interface {
	Resolve(ctx context.Context, label, knownID string) (youtube.ChannelRef, error)
}

// FeedLister lists a channel's recent uploads.
type FeedLister interface {
	ListRecentVideos(ctx context.Context, channelID, channelName string, sinceDays int) ([]youtube.Video, error)
}

// TranscriptFetcher fetches the flattened transcript of a video.
type TranscriptFetcher interface {
	FetchFlatText(ctx context.Context, videoID string) (string, error)
}

// TranscriptStore persists transcripts and maintains the index.
type TranscriptStore interface {
	Exists(videoID string) bool
	BatchSave(ctx context.Context, batch []storage.Transcript) storage.BatchResult
	RebuildIndex(ctx context.Context) (storage.IndexStats, error)
}

// Pipeline processes channels one at a time and videos one at a time with a
// fixed delay after every transcript attempt. Only one run may be active.
type Pipeline struct {
	resolver    Resolver
	feeds       FeedLister
	transcripts TranscriptFetcher
	store       TranscriptStore
	delay       time.Duration
	logger      *slog.Logger
	now         func() time.Time

	running sync.Mutex
}

// NewPipeline creates a Pipeline. A negative delay is treated as zero.
func NewPipeline(resolver Resolver, feeds FeedLister, transcripts TranscriptFetcher, store TranscriptStore, delay time.Duration) *Pipeline {
	if delay < 0 {
		delay = 0
	}
	return &Pipeline{
		resolver:    resolver,
		feeds:       feeds,
		transcripts: transcripts,
		store:       store,
		delay:       delay,
		logger:      slog.Default(),
		now:         time.Now,
	}
}

// Run ingests every enabled channel. Per-channel and per-video failures are
// folded into the report; only cancellation or a concurrent run is returned
// as an error, together with the partial report.
func (p *Pipeline) Run(ctx context.Context, list []channels.Channel, sinceDays int) (Report, error) {
	if !p.running.TryLock() {
		return Report{}, ErrRunInProgress
	}
	defer p.running.Unlock()

	report := Report{
		RunID:     uuid.New().String(),
		StartedAt: p.now().UTC(),
		SinceDays: sinceDays,
		Channels:  []ChannelReport{},
	}
	log := p.logger.With("run_id", report.RunID)
	log.Info("ingestion run started", "channels", len(list), "since_days", sinceDays)

	var runErr error
	for _, ch := range channels.Enabled(list) {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		cr, err := p.runChannel(ctx, log, ch, sinceDays)
		report.add(cr)
		if err != nil {
			runErr = err
			break
		}
	}

	report.FinishedAt = p.now().UTC()
	log.Info("ingestion run finished",
		"videos", report.Totals.Videos,
		"successful", report.Totals.Successful,
		"failed", report.Totals.Failed,
		"skipped", report.Totals.Skipped,
		"dropped", report.Totals.Dropped,
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return report, runErr
}

// RunAndIndex runs the pipeline and then rebuilds the index. The index is
// rebuilt even when the run was cut short so it matches what reached disk.
func (p *Pipeline) RunAndIndex(ctx context.Context, list []channels.Channel, sinceDays int) (Report, storage.IndexStats, error) {
	report, runErr := p.Run(ctx, list, sinceDays)
	if errors.Is(runErr, ErrRunInProgress) {
		return report, storage.IndexStats{}, runErr
	}
	stats, err := p.store.RebuildIndex(context.WithoutCancel(ctx))
	if err != nil {
		return report, stats, errors.Join(runErr, fmt.Errorf("rebuilding index: %w", err))
	}
	return report, stats, runErr
}

// runChannel returns a non-nil error only on cancellation.
func (p *Pipeline) runChannel(ctx context.Context, log *slog.Logger, ch channels.Channel, sinceDays int) (ChannelReport, error) {
	cr := ChannelReport{Channel: ch.Name}
	if cr.Channel == "" {
		cr.Channel = ch.ID
	}
	log = log.With("channel", ch.ID)

	ref, err := p.resolver.Resolve(ctx, ch.Label(), ch.ChannelID)
	if err != nil {
		if ctx.Err() != nil {
			return cr, ctx.Err()
		}
		log.Warn("channel resolution failed", "error", err)
		cr.Error = err.Error()
		return cr, nil
	}
	cr.ChannelID = ref.ID

	name := ch.Name
	if name == "" {
		name = ref.Name
	}

	videos, err := p.feeds.ListRecentVideos(ctx, ref.ID, name, sinceDays)
	if err != nil {
		if ctx.Err() != nil {
			return cr, ctx.Err()
		}
		log.Warn("listing videos failed", "error", err)
		cr.Error = err.Error()
		return cr, nil
	}
	cr.VideosFound = len(videos)
	log.Info("found recent videos", "count", len(videos))

	var batch []storage.Transcript
	var cancelled error
	for _, v := range videos {
		if p.store.Exists(v.VideoID) {
			cr.Skipped++
			continue
		}

		text, err := p.transcripts.FetchFlatText(ctx, v.VideoID)
		if err != nil {
			if ctx.Err() != nil {
				cancelled = ctx.Err()
				break
			}
			log.Warn("transcript unavailable", "video_id", v.VideoID, "title", v.Title, "error", err)
			cr.Dropped++
		} else {
			batch = append(batch, toTranscript(v, text))
		}

		if err := sleep(ctx, p.delay); err != nil {
			cancelled = err
			break
		}
	}

	// Whatever was fetched before a cancellation is still worth keeping.
	if len(batch) > 0 {
		res := p.store.BatchSave(context.WithoutCancel(ctx), batch)
		cr.Successful += res.Successful
		cr.Failed += res.Failed
		cr.Skipped += res.Skipped
	}
	return cr, cancelled
}

func toTranscript(v youtube.Video, text string) storage.Transcript {
	return storage.Transcript{
		VideoID:     v.VideoID,
		Title:       v.Title,
		ChannelName: v.ChannelName,
		PublishedAt: v.PublishedAt,
		URL:         v.URL,
		Text:        text,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
