// Package providers implements the HTTP clients behind the engine's
// Embedder and Completer ports, speaking the Ollama-style local inference
// API.
package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cinefind/cinefind/reco/engine"
)

// Client is the shared HTTP plumbing for both provider clients. Requests
// optionally pass through a rate limiter keyed by endpoint path.
type Client struct {
	baseURL string
	http    *http.Client
	limiter engine.RateLimiter
}

func NewClient(baseURL string, timeout time.Duration, limiter engine.RateLimiter) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

// postJSON sends payload to path and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	if c.limiter != nil {
		release, err := c.limiter.Acquire(ctx, path)
		if err != nil {
			return fmt.Errorf("rate limit %s: %w", path, err)
		}
		defer release()
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+strings.TrimLeft(path, "/"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post %s: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
