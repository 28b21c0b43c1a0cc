package embeddings

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sashabaranov/go-openai"
)

const defaultDimensions = 1536

// OpenAIClient implements Client using OpenAI's embedding API
// (text-embedding-3-small by default).
type OpenAIClient struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

var _ Client = (*OpenAIClient)(nil)

// OpenAIOption configures the OpenAIClient.
type OpenAIOption func(*OpenAIClient)

// WithModel sets a custom embedding model.
func WithModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.model = openai.EmbeddingModel(model)
	}
}

// WithDimensions sets the requested embedding dimension (must match the DB vector columns).
func WithDimensions(dim int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.dimensions = dim
	}
}

// NewOpenAIClient creates a new OpenAI embedding client. Outbound calls go through a
// retrying HTTP client so transient 429/5xx responses are retried below the SDK.
// Panics if apiKey is empty.
func NewOpenAIClient(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	if apiKey == "" {
		panic("embeddings: OpenAI API key cannot be empty")
	}

	retryClient := retryablehttp.NewClient()
	retryClient.Logger = nil

	cfg := openai.DefaultConfig(apiKey)
	cfg.HTTPClient = retryClient.StandardClient()

	client := &OpenAIClient{
		client:     openai.NewClientWithConfig(cfg),
		model:      openai.SmallEmbedding3,
		dimensions: defaultDimensions,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GetEmbedding generates an embedding vector for the given text.
func (c *OpenAIClient) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      []string{text},
		Model:      c.model,
		Dimensions: c.dimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned from API")
	}

	emb := resp.Data[0].Embedding
	if len(emb) != c.dimensions {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(emb), c.dimensions)
	}

	return emb, nil
}

// Dimensions returns the configured embedding dimension.
func (c *OpenAIClient) Dimensions() int {
	return c.dimensions
}
