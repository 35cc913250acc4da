package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kalambet/ytbrief/internal/config"
)

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// newAPIClient returns a client for the local server authenticated with
// the API key.
var newAPIClient = func() (*apiClient, error) {
	return clientFromConfig(func(a config.AuthConfig) (string, string) {
		return a.APIKey, "YTBRIEF_API_KEY"
	})
}

// newCronClient returns a client authenticated with the cron secret.
var newCronClient = func() (*apiClient, error) {
	return clientFromConfig(func(a config.AuthConfig) (string, string) {
		return a.CronSecret, "YTBRIEF_CRON_SECRET"
	})
}

func clientFromConfig(secret func(config.AuthConfig) (token, env string)) (*apiClient, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	token, env := secret(cfg.Auth)
	if token == "" {
		return nil, fmt.Errorf("%s is not set", env)
	}

	// Cron-triggered runs hold the request open for the whole run.
	timeout := 10 * time.Minute
	if rt := cfg.Ingest.RunTimeoutDuration(); rt > 0 {
		timeout = rt + 30*time.Second
	}

	return &apiClient{
		baseURL:    localURL(cfg),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is ytbrief running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// apiErrorBody matches the server's error envelope.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// decodeJSON decodes a successful response into v. Error responses are
// turned into errors carrying the server's message when one is present.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var env apiErrorBody
		if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
			return &serverError{StatusCode: resp.StatusCode, Message: env.Error.Message, Type: env.Error.Type}
		}
		return &serverError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(body))}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type serverError struct {
	StatusCode int
	Message    string
	Type       string
}

func (e *serverError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

func isStatus(err error, code int) bool {
	var se *serverError
	return errors.As(err, &se) && se.StatusCode == code
}
