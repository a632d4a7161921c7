// Package client is a Go client for the dispatchd HTTP API.
//
// Usage:
//
//	c := client.New("http://localhost:8000")
//
//	// Submit a download and wait for it to finish.
//	res, err := c.CreateJob(ctx, "download_video", map[string]string{"url": url})
//	j, err := c.Wait(ctx, res.JobID, nil)
//	fmt.Println(j.Status, j.FilePath)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/viralclips/dispatch"
)

// Client talks to a dispatchd server.
type Client struct {
	baseURL   string
	http      *http.Client
	logger    *slog.Logger
	userAgent string
}

// DefaultUserAgent is sent unless WithUserAgent overrides it.
const DefaultUserAgent = "dispatch-client/1"

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: 30 * time.Second},
		logger:    slog.Default(),
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dispatch/client: %d: %s", e.StatusCode, e.Message)
}

// Is maps reply codes onto the dispatch sentinels a caller can act on.
func (e *APIError) Is(target error) bool {
	switch e.StatusCode {
	case http.StatusNotFound:
		return target == dispatch.ErrJobNotFound
	case http.StatusServiceUnavailable:
		return target == dispatch.ErrStorageUnavailable
	}
	return false
}

// Temporary reports whether retrying the request later may succeed.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode == http.StatusServiceUnavailable
}

// do sends a request and decodes a JSON reply into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("dispatch/client: marshal request: %w", err)
		}
		r = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("dispatch/client: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dispatch/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("dispatch/client: read reply: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &msg) != nil || msg.Message == "" {
			msg.Message = strings.TrimSpace(string(data))
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("dispatch/client: decode reply: %w", err)
	}
	return nil
}
