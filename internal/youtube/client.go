package youtube

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://www.youtube.com"
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	maxPageBytes   = 6 * 1024 * 1024
)

// Client fetches channel pages, feeds and captions. It is safe for
// concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retry      RetryConfig
	languages  []string
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.Mutex
	resolved map[string]ChannelRef
}

// NewClient creates a Client for www.youtube.com.
func NewClient() *Client {
	return NewClientWithBaseURL(defaultBaseURL)
}

// NewClientWithBaseURL creates a Client against a custom base URL (for tests).
func NewClientWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry:      DefaultRetryConfig,
		languages:  []string{"en"},
		logger:     slog.Default(),
		now:        time.Now,
		resolved:   make(map[string]ChannelRef),
	}
}

// SetRetry overrides the retry policy.
func (c *Client) SetRetry(rc RetryConfig) { c.retry = rc }

// SetLanguages sets caption language preference, most preferred first.
func (c *Client) SetLanguages(langs []string) {
	if len(langs) > 0 {
		c.languages = langs
	}
}

// get fetches url and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url string, limit int64) ([]byte, http.Header, error) {
	resp, err := retryHTTP(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		req.Header.Set("Cookie", "CONSENT=YES+1")
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", url, err)
	}
	return body, resp.Header, nil
}
