// Package embedding provides the text embedding gateway backed by an
// OpenAI-compatible API.
package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/cartly-ai/shopsearch/internal/domain"
	"github.com/cartly-ai/shopsearch/internal/metrics"
)

// Compile-time check: Client implements domain.Embedder.
var _ domain.Embedder = (*Client)(nil)

// DefaultDimensions matches the default embedding model output size.
const DefaultDimensions = 384

// Client is an embedding provider using the OpenAI-compatible API.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	user       string
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int
	User       string
	Logger     *zap.Logger
}

// NewClient creates an OpenAI-compatible embedding provider.
func NewClient(cfg *Config) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: dims,
		user:       cfg.User,
		logger:     logger,
	}
}

// Dimensions implements domain.Embedder.
func (c *Client) Dimensions() int { return c.dimensions }

// EmbedBatch implements domain.Embedder. Vectors come back in input order,
// one per text.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          c.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
		User:           c.user,
	}
	if c.dimensions > 0 {
		req.Dimensions = c.dimensions
	}

	start := time.Now()
	resp, err := c.client.CreateEmbeddings(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(c.model), "error").Inc()
		return nil, parseAPIError(err)
	}

	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(c.model), "error").Inc()
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs: %w",
			len(resp.Data), len(texts), domain.ErrEmbeddingProvider)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(c.model), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(c.model)).Observe(duration.Seconds())
	metrics.EmbeddingTextsTotal.WithLabelValues(string(c.model)).Add(float64(len(texts)))

	vectors := make([][]float32, len(resp.Data))
	for i, d := range resp.Data {
		vectors[i] = d.Embedding
	}

	c.logger.Debug("embedded batch",
		zap.Int("texts", len(texts)),
		zap.Duration("duration", duration))

	return vectors, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProvider for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProvider

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, detail, wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
