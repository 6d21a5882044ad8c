package mdstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPFeedRequest configures FeedHTTP.
type HTTPFeedRequest struct {
	URL       string
	Client    *http.Client
	Target    Appender
	ChunkSize int
	Delay     time.Duration
	Strict    bool
}

// FeedHTTP fetches markdown over HTTP(S), appends the body to Target as it
// arrives and finishes Target once the body ends.
func FeedHTTP(ctx context.Context, req HTTPFeedRequest) error {
	if req.URL == "" {
		return fmt.Errorf("feed http: URL is required")
	}
	if req.Target == nil {
		return fmt.Errorf("feed http: Target is nil")
	}
	body, err := OpenHTTP(ctx, req.Client, req.URL)
	if err != nil {
		return fmt.Errorf("feed http: %w", err)
	}
	defer body.Close()
	chunk := req.ChunkSize
	if chunk <= 0 {
		chunk = 4096
	}
	if err := Feed(ctx, FeedRequest{
		Reader:    body,
		Target:    req.Target,
		ChunkSize: chunk,
		Delay:     req.Delay,
		Strict:    req.Strict,
		Finish:    true,
	}); err != nil {
		return fmt.Errorf("feed http: %w", err)
	}
	return nil
}

// OpenHTTP issues a GET for a markdown document and returns the response body
// once the server answered with a 2xx status. Only http and https URLs are
// accepted. A nil client uses http.DefaultClient.
func OpenHTTP(ctx context.Context, client *http.Client, rawURL string) (io.ReadCloser, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme %q", req.URL.Scheme)
	}
	req.Header.Set("Accept", "text/markdown, text/plain;q=0.9, */*;q=0.1")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("status %s", resp.Status)
	}
	return resp.Body, nil
}
