package youtube

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	channelIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`"channelId":"([^"]+)"`),
		regexp.MustCompile(`channel_id=([^"&]+)`),
	}
	authorPattern = regexp.MustCompile(`"author":"([^"]+)"`)
)

// Resolve maps a handle to a channel id and display name. A non-empty
// knownID is returned as is with label as the name and no network call.
// Successful lookups are cached for the life of the Client.
func (c *Client) Resolve(ctx context.Context, label, knownID string) (ChannelRef, error) {
	if knownID != "" {
		return ChannelRef{ID: knownID, Name: label}, nil
	}

	c.mu.Lock()
	ref, ok := c.resolved[label]
	c.mu.Unlock()
	if ok {
		return ref, nil
	}

	handle := label
	if !strings.HasPrefix(handle, "@") {
		handle = "@" + handle
	}

	body, _, err := c.get(ctx, c.baseURL+"/"+url.PathEscape(handle), maxPageBytes)
	if err != nil {
		return ChannelRef{}, &ResolutionError{Handle: label, Err: err}
	}

	id := matchChannelID(body)
	if id == "" {
		return ChannelRef{}, &ResolutionError{Handle: label}
	}

	ref = ChannelRef{ID: id, Name: displayName(body, label)}
	c.mu.Lock()
	c.resolved[label] = ref
	c.mu.Unlock()

	c.logger.Info("resolved channel", "handle", label, "channel_id", ref.ID, "name", ref.Name)
	return ref, nil
}

// matchChannelID tries each pattern in order; the first match wins.
func matchChannelID(page []byte) string {
	for _, re := range channelIDPatterns {
		if m := re.FindSubmatch(page); len(m) >= 2 {
			return string(m[1])
		}
	}
	return ""
}

func displayName(page []byte, fallback string) string {
	if m := authorPattern.FindSubmatch(page); len(m) >= 2 {
		if s, err := strconv.Unquote(`"` + string(m[1]) + `"`); err == nil && s != "" {
			return s
		}
		return string(m[1])
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err == nil {
		if title, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			if title = strings.TrimSpace(title); title != "" {
				return title
			}
		}
	}
	return fallback
}
