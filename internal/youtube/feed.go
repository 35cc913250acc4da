package youtube

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/net/html/charset"
)

const maxFeedBytes = 2 * 1024 * 1024

// unescapeTwice decodes the entities YouTube escapes a second time in feed
// titles and caption text. It runs after the XML decoder, in a single pass.
var unescapeTwice = strings.NewReplacer("&amp;", "&", "&quot;", `"`, "&#39;", "'")

// ListRecentVideos returns the channel's feed entries published within the
// last sinceDays days, newest first. A well-formed feed with no entries
// yields an empty slice.
func (c *Client) ListRecentVideos(ctx context.Context, channelID, channelName string, sinceDays int) ([]Video, error) {
	feedURL := c.baseURL + "/feeds/videos.xml?channel_id=" + url.QueryEscape(channelID)

	body, header, err := c.get(ctx, feedURL, maxFeedBytes)
	if err != nil {
		return nil, &FeedError{ChannelID: channelID, Err: err}
	}

	feed, err := parseFeed(body, header.Get("Content-Type"))
	if err != nil {
		return nil, &FeedError{ChannelID: channelID, Err: err}
	}

	if channelName == "" {
		channelName = feedAuthor(feed)
	}

	cutoff := c.now().Add(-time.Duration(sinceDays) * 24 * time.Hour)
	videos := make([]Video, 0, len(feed.Items))
	for _, item := range feed.Items {
		id := videoID(item)
		if id == "" || item.PublishedParsed == nil {
			c.logger.Warn("skipping feed entry without id or date", "channel_id", channelID, "guid", item.GUID)
			continue
		}
		published := item.PublishedParsed.UTC()
		if published.Before(cutoff) {
			continue
		}
		videos = append(videos, Video{
			VideoID:     id,
			Title:       unescapeTwice.Replace(strings.TrimSpace(item.Title)),
			ChannelID:   channelID,
			ChannelName: channelName,
			PublishedAt: published,
			URL:         WatchURLPrefix + id,
		})
	}

	sort.SliceStable(videos, func(i, j int) bool {
		return videos[i].PublishedAt.After(videos[j].PublishedAt)
	})

	c.logger.Debug("listed feed", "channel_id", channelID, "entries", len(feed.Items), "recent", len(videos))
	return videos, nil
}

func parseFeed(body []byte, contentType string) (*gofeed.Feed, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty feed body")
	}
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("decoding feed charset: %w", err)
	}
	feed, err := gofeed.NewParser().Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return feed, nil
}

// videoID prefers the yt:videoId extension and falls back to the
// "yt:video:" GUID.
func videoID(item *gofeed.Item) string {
	if yt, ok := item.Extensions["yt"]; ok {
		if ids := yt["videoId"]; len(ids) > 0 && ids[0].Value != "" {
			return strings.TrimSpace(ids[0].Value)
		}
	}
	if id, ok := strings.CutPrefix(item.GUID, "yt:video:"); ok {
		return id
	}
	return ""
}

func feedAuthor(feed *gofeed.Feed) string {
	if len(feed.Authors) > 0 && feed.Authors[0].Name != "" {
		return feed.Authors[0].Name
	}
	return feed.Title
}
