// Package embeddings turns text into vectors through an HTTP embedding
// endpoint. Both the plain {"vector": [...]} shape and the OpenAI
// {"data": [{"embedding": [...]}]} shape are understood.
package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"contract_workflow_backend/platform/config"
)

// ErrEmptyVector is returned when the endpoint answers without a vector.
var ErrEmptyVector = errors.New("embeddings: empty vector")

const defaultTimeout = 20 * time.Second

// Client calls one embedding endpoint with one model.
type Client struct {
	url    string
	apiKey string
	model  string
	http   *http.Client
}

// NewClient builds a client from the embedding settings.
func NewClient(cfg config.EmbeddingConfig) *Client {
	return &Client{
		url:    cfg.GetEmbeddingAPIURL(),
		apiKey: cfg.GetEmbeddingAPIKey(),
		model:  cfg.GetEmbeddingModel(),
		http:   &http.Client{Timeout: defaultTimeout},
	}
}

type request struct {
	Text  string `json:"text"`
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

type response struct {
	Vector []float32 `json:"vector"`
	Data   []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(request{Text: text, Input: text, Model: c.model})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embeddings: decode: %w", err)
	}
	switch {
	case len(out.Vector) > 0:
		return out.Vector, nil
	case len(out.Data) > 0 && len(out.Data[0].Embedding) > 0:
		return out.Data[0].Embedding, nil
	}
	return nil, ErrEmptyVector
}
