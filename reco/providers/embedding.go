package providers

import (
	"context"
	"fmt"

	"github.com/cinefind/cinefind/reco/engine"
)

// EmbeddingClient implements engine.Embedder over the /api/embeddings
// endpoint.
type EmbeddingClient struct {
	client *Client
	model  string
}

func NewEmbeddingClient(client *Client, model string) *EmbeddingClient {
	return &EmbeddingClient{client: client, model: model}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float64, error) {
	var resp embeddingResponse
	if err := c.client.postJSON(ctx, "api/embeddings", embeddingRequest{Model: c.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("model %s returned empty embedding", c.model)
	}
	return resp.Embedding, nil
}

func (c *EmbeddingClient) Model() string { return c.model }

var _ engine.Embedder = (*EmbeddingClient)(nil)
