package embeddings

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/chatlake/chatlake/internal/config"
)

// embedRequest is the body sent to the embedding-model service.
type embedRequest struct {
	Model string `json:"model"`
	Text  string `json:"text"`
}

// embedResponse is the service's response shape.
type embedResponse struct {
	Vector []float32 `json:"vector"`
}

// HTTPModelClient calls an external embedding-model HTTP service. It
// satisfies ComputeFunc via Embed, bound to one model name.
type HTTPModelClient struct {
	client *resty.Client
	model  string
}

// NewHTTPModelClient builds a client against cfg's embedding service,
// retrying server errors with the same backoff window the teacher's RAG
// client uses.
func NewHTTPModelClient(cfg config.EmbeddingServiceConfig) *HTTPModelClient {
	client := resty.New()
	client.SetTimeout(120 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(1 * time.Second)
	client.SetRetryMaxWaitTime(10 * time.Second)

	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")

	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = "http://embedding-service:8500"
	}
	client.SetBaseURL(baseURL)

	client.AddRetryCondition(func(r *resty.Response, err error) bool {
		if err != nil {
			return true
		}
		return r.StatusCode() >= 500
	})

	return &HTTPModelClient{client: client, model: cfg.Model}
}

// Embed requests a vector for text from the embedding service. Its
// signature matches ComputeFunc so it can be passed straight to
// Cache.GetOrCompute.
func (c *HTTPModelClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: c.model, Text: text}).
		SetResult(&embedResponse{}).
		Post("/embed")

	if err != nil {
		slog.Error("embedding service request failed", "error", err)
		return nil, fmt.Errorf("embedding service request failed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		slog.Error("embedding service returned error", "status", resp.StatusCode(), "body", string(resp.Body()))
		return nil, fmt.Errorf("embedding service error: status %d, body: %s", resp.StatusCode(), string(resp.Body()))
	}

	result := resp.Result().(*embedResponse)
	return result.Vector, nil
}
