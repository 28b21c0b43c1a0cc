package embeddings

import (
	"context"
	"crypto/sha256"
	"strings"

	vecmath "github.com/devconnect/matchcore/pkg/embeddings"
)

// MockClient implements the Client interface for testing purposes.
// It generates deterministic embeddings based on the input text hash, so the same
// text always maps to the same unit vector and identical texts score 1.0.
type MockClient struct {
	dimensions int
}

var _ Client = (*MockClient)(nil)

// NewMockClient creates a mock embedding client with the default dimension (1536).
func NewMockClient() *MockClient {
	return &MockClient{dimensions: defaultDimensions}
}

// NewMockClientWithDimensions creates a mock client with custom dimensions.
func NewMockClientWithDimensions(dimensions int) *MockClient {
	return &MockClient{dimensions: dimensions}
}

// GetEmbedding generates a deterministic embedding based on the text hash.
func (c *MockClient) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	hash := sha256.Sum256([]byte(text))
	embedding := make([]float32, c.dimensions)

	// Use hash bytes cyclically, mapped into [-1, 1].
	for i := 0; i < c.dimensions; i++ {
		byteIdx := i % len(hash)
		embedding[i] = (float32(hash[byteIdx]) / 127.5) - 1.0
	}

	vecmath.NormalizeL2(embedding)

	return embedding, nil
}

// Dimensions returns the configured embedding dimension.
func (c *MockClient) Dimensions() int {
	return c.dimensions
}
