package youtube

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns:media="http://search.yahoo.com/mrss/" xmlns="http://www.w3.org/2005/Atom">
 <id>yt:channel:UC123</id>
 <yt:channelId>UC123</yt:channelId>
 <title>AI Daily Brief</title>
 <author><name>AI Daily Brief</name><uri>https://www.youtube.com/channel/UC123</uri></author>
 <entry>
  <id>yt:video:vid2</id>
  <yt:videoId>vid2</yt:videoId>
  <yt:channelId>UC123</yt:channelId>
  <title>Q&amp;amp;A: Agents</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=vid2"/>
  <published>2025-03-09T10:00:00+00:00</published>
  <updated>2025-03-09T11:00:00+00:00</updated>
 </entry>
 <entry>
  <id>yt:video:vid1</id>
  <yt:videoId>vid1</yt:videoId>
  <yt:channelId>UC123</yt:channelId>
  <title>Newest &amp; Best</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=vid1"/>
  <published>2025-03-10T08:00:00+00:00</published>
 </entry>
 <entry>
  <id>yt:video:vid3</id>
  <yt:videoId>vid3</yt:videoId>
  <yt:channelId>UC123</yt:channelId>
  <title>Old News</title>
  <link rel="alternate" href="https://www.youtube.com/watch?v=vid3"/>
  <published>2025-03-01T08:00:00+00:00</published>
 </entry>
</feed>`

const emptyFeedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015" xmlns="http://www.w3.org/2005/Atom">
 <id>yt:channel:UCempty</id>
 <title>Quiet Channel</title>
</feed>`

const timedTextFixture = `<?xml version="1.0" encoding="utf-8" ?><transcript>
<text start="0.5" dur="2.25">Hello and welcome</text>
<text start="2.75" dur="3">it&amp;#39;s   the
daily brief</text>
<text start="5.75" dur="1"> </text>
</transcript>`

// fakeYouTube serves a minimal subset of YouTube for one channel and a few
// videos. Handlers read their behavior from the struct fields.
type fakeYouTube struct {
	srv *httptest.Server

	// watchHasCaptions controls whether the watch page embeds caption tracks.
	watchHasCaptions bool
	// playerHasCaptions controls the ANDROID player response.
	playerHasCaptions bool

	channelPageHits atomic.Int32
	playerHits      atomic.Int32
	feedStatus      int
	feedBody        string
}

func newFakeYouTube(t *testing.T) *fakeYouTube {
	t.Helper()
	f := &fakeYouTube{watchHasCaptions: true, playerHasCaptions: true, feedStatus: http.StatusOK, feedBody: feedFixture}

	mux := http.NewServeMux()
	mux.HandleFunc("/@AIDailyBrief", func(w http.ResponseWriter, r *http.Request) {
		f.channelPageHits.Add(1)
		fmt.Fprint(w, `<html><script>var ytInitialData = {"metadata":{"channelMetadataRenderer":{"title":"x"}},"header":{"channelId":"UC123"},"author":"AI Daily Brief"};</script></html>`)
	})
	mux.HandleFunc("/@MetaOnly", func(w http.ResponseWriter, r *http.Request) {
		f.channelPageHits.Add(1)
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Meta Channel"><link rel="alternate" href="https://www.youtube.com/feeds/videos.xml?channel_id=UC999&amp;x=1"></head></html>`)
	})
	mux.HandleFunc("/@NoID", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>nothing to see</body></html>`)
	})
	mux.HandleFunc("/feeds/videos.xml", func(w http.ResponseWriter, r *http.Request) {
		if f.feedStatus != http.StatusOK {
			w.WriteHeader(f.feedStatus)
			return
		}
		w.Header().Set("Content-Type", "text/xml; charset=UTF-8")
		fmt.Fprint(w, f.feedBody)
	})
	mux.HandleFunc("/watch", func(w http.ResponseWriter, r *http.Request) {
		if !f.watchHasCaptions {
			fmt.Fprint(w, `<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"}};</script></html>`)
			return
		}
		fmt.Fprintf(w, `<html><script>var ytInitialPlayerResponse = {"playabilityStatus":{"status":"OK"},"videoDetails":{"title":"brace } in \"title\" {"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[`+
			`{"baseUrl":"%[1]s/api/timedtext?v=%[2]s&exp=xpe","languageCode":"en"},`+
			`{"baseUrl":"%[1]s/api/timedtext?v=%[2]s&kind=asr","languageCode":"en","kind":"asr"},`+
			`{"baseUrl":"%[1]s/api/timedtext?v=%[2]s&lang=en","languageCode":"en"}`+
			`]}}};var meta = {};</script></html>`, f.srv.URL, r.URL.Query().Get("v"))
	})
	mux.HandleFunc("/youtubei/v1/player", func(w http.ResponseWriter, r *http.Request) {
		f.playerHits.Add(1)
		if !f.playerHasCaptions {
			fmt.Fprint(w, `{"playabilityStatus":{"status":"OK"}}`)
			return
		}
		fmt.Fprintf(w, `{"playabilityStatus":{"status":"OK"},"captions":{"playerCaptionsTracklistRenderer":{"captionTracks":[{"baseUrl":"%s/api/timedtext?v=player&lang=en","languageCode":"en","kind":"asr"}]}}}`, f.srv.URL)
	})
	mux.HandleFunc("/api/timedtext", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("exp") == "xpe" {
			http.Error(w, "po token required", http.StatusForbidden)
			return
		}
		if r.URL.Query().Get("kind") == "asr" && r.URL.Query().Get("v") != "player" {
			fmt.Fprint(w, `<transcript><text start="0" dur="1">auto track</text></transcript>`)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, timedTextFixture)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeYouTube) client() *Client {
	c := NewClientWithBaseURL(f.srv.URL)
	c.SetRetry(RetryConfig{MaxRetries: 1, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1})
	c.now = func() time.Time { return testNow }
	return c
}
