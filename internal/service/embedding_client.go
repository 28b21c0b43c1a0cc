package service

import "context"

// EmbeddingClient generates embedding vectors for text.
// Implemented by provider-specific clients (OpenAI in production, a deterministic
// mock in tests). The model cache behind it is process-wide and initialized on
// first use; nothing outside the client touches provider state.
type EmbeddingClient interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}
