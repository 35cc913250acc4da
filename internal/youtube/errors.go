package youtube

import (
	"errors"
	"fmt"
)

var (
	// ErrResolution is matched by every *ResolutionError.
	ErrResolution = errors.New("channel resolution failed")
	// ErrFeed is matched by every *FeedError.
	ErrFeed = errors.New("feed unavailable")
	// ErrTranscriptUnavailable means the video has no fetchable captions.
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
)

// ResolutionError reports a handle that could not be mapped to a channel id.
type ResolutionError struct {
	Handle string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolving channel %s: %v", e.Handle, e.Err)
	}
	return fmt.Sprintf("resolving channel %s: no channel id found", e.Handle)
}

func (e *ResolutionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrResolution}
	}
	return []error{ErrResolution, e.Err}
}

// FeedError reports a feed that could not be fetched or parsed.
type FeedError struct {
	ChannelID string
	Err       error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("feed for channel %s: %v", e.ChannelID, e.Err)
}

func (e *FeedError) Unwrap() []error { return []error{ErrFeed, e.Err} }

// unavailable wraps a reason so that errors.Is(err, ErrTranscriptUnavailable)
// holds.
func unavailable(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrTranscriptUnavailable, fmt.Sprintf(format, args...))
}
