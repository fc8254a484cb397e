package providers

import (
	"context"
	"errors"
	"fmt"

	"github.com/cinefind/cinefind/reco/engine"
)

// AttemptError records one failed endpoint attempt so callers can see which
// paths were tried and why each failed.
type AttemptError struct {
	Endpoint string
	Err      error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("endpoint %s: %v", e.Endpoint, e.Err)
}

func (e *AttemptError) Unwrap() error { return e.Err }

// CompletionClient implements engine.Completer. Some server builds expose
// the generate endpoint under different paths, so the client walks the
// configured list in order and takes the first success.
type CompletionClient struct {
	client    *Client
	endpoints []string
}

func NewCompletionClient(client *Client, endpoints []string) *CompletionClient {
	if len(endpoints) == 0 {
		endpoints = []string{"api/generate", "generate"}
	}
	return &CompletionClient{client: client, endpoints: endpoints}
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Response string `json:"response"`
}

func (c *CompletionClient) Complete(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	req := generateRequest{
		Model:   model,
		Prompt:  prompt,
		Options: generateOptions{Temperature: temperature},
	}

	var attempts []error
	for _, endpoint := range c.endpoints {
		var resp generateResponse
		err := c.client.postJSON(ctx, endpoint, req, &resp)
		if err == nil {
			return resp.Response, nil
		}
		attempts = append(attempts, &AttemptError{Endpoint: endpoint, Err: err})
		if ctx.Err() != nil {
			break
		}
	}
	return "", fmt.Errorf("all completion endpoints failed: %w", errors.Join(attempts...))
}

var _ engine.Completer = (*CompletionClient)(nil)
