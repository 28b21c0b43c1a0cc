// Package embeddings provides the text-to-vector provider clients. The rest of the
// service treats the provider as an opaque function with latency and failure modes;
// provider state (SDK client, model handle) lives only here.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmptyInput is returned when an embedding is requested for empty text.
var ErrEmptyInput = errors.New("embeddings: input text is empty")

// ErrDimensionMismatch is returned when the provider returns a vector whose length
// does not match the configured dimension. Such vectors are never persisted.
var ErrDimensionMismatch = errors.New("embeddings: dimension mismatch")

// Client defines the interface for generating text embeddings.
type Client interface {
	// GetEmbedding generates an embedding vector for the given text.
	// The returned slice length equals the configured dimension.
	GetEmbedding(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector length this client produces. Stored vectors of a
	// different length are treated as unusable by callers.
	Dimensions() int
}
