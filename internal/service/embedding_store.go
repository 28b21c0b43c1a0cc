package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/observability"
	"github.com/devconnect/matchcore/internal/repository"
	"github.com/devconnect/matchcore/pkg/cache"
)

const sourceEmbeddingCacheName = "source_embedding"

// ErrEmbeddingNotFound is re-exported so callers don't import the repository package.
var ErrEmbeddingNotFound = repository.ErrEmbeddingNotFound

// EmbeddingsRepositoryForStore provides the embedding persistence operations the store needs.
type EmbeddingsRepositoryForStore interface {
	GetUserEmbedding(ctx context.Context, userID int64, field models.EmbeddingField, model string) ([]float32, error)
	UpsertUserEmbedding(ctx context.Context, userID int64, field models.EmbeddingField, model string, embedding []float32) error
	DeleteUserEmbedding(ctx context.Context, userID int64, field models.EmbeddingField, model string) error
	GetPostEmbedding(ctx context.Context, postID int64, model string) ([]float32, error)
	UpsertPostEmbedding(ctx context.Context, postID int64, model string, embedding []float32) error
	DeletePostEmbedding(ctx context.Context, postID int64, model string) error
}

// EmbeddingStore maps an entity's text field to a durable vector, regenerating it when
// the text changes. It is the only component that talks to the embedding provider; the
// ranking engine reads vectors exclusively through it.
type EmbeddingStore struct {
	client       EmbeddingClient
	repo         EmbeddingsRepositoryForStore
	model        string
	sourceCache  *cache.LoaderCache[string, []float32]
	cacheMetrics observability.CacheMetrics
	logger       *slog.Logger
}

// EmbeddingStoreParams configures EmbeddingStore. SourceCache and CacheMetrics may be
// nil (no caching). Client may be nil when the provider is not configured; generation
// then fails with ErrProviderUnavailable and reads still work.
type EmbeddingStoreParams struct {
	Client       EmbeddingClient
	Repo         EmbeddingsRepositoryForStore
	Model        string
	SourceCache  *cache.LoaderCache[string, []float32]
	CacheMetrics observability.CacheMetrics
	Logger       *slog.Logger
}

// ErrProviderUnavailable is returned when embedding generation is requested but no
// provider client is configured.
var ErrProviderUnavailable = errors.New("embedding provider not configured")

// NewEmbeddingStore creates an EmbeddingStore.
func NewEmbeddingStore(p EmbeddingStoreParams) *EmbeddingStore {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &EmbeddingStore{
		client:       p.Client,
		repo:         p.Repo,
		model:        p.Model,
		sourceCache:  p.SourceCache,
		cacheMetrics: p.CacheMetrics,
		logger:       logger,
	}
}

// Model returns the embedding model this store reads and writes.
func (s *EmbeddingStore) Model() string {
	return s.model
}

// Dimensions returns the provider's vector length, or 0 when no provider is configured.
func (s *EmbeddingStore) Dimensions() int {
	if s.client == nil {
		return 0
	}

	return s.client.Dimensions()
}

// GetOrCreateUserEmbedding returns the stored vector for (userID, field), generating
// and persisting one from text when absent. Empty/whitespace text yields (nil, nil):
// "no embedding" is the recorded state, not an embedding of the empty string.
func (s *EmbeddingStore) GetOrCreateUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, text string,
) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	vec, err := s.repo.GetUserEmbedding(ctx, userID, field, s.model)
	if err == nil {
		return vec, nil
	}

	if !errors.Is(err, repository.ErrEmbeddingNotFound) {
		return nil, fmt.Errorf("get user embedding: %w", err)
	}

	generated, err := s.generate(ctx, text)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertUserEmbedding(ctx, userID, field, s.model, generated); err != nil {
		return nil, fmt.Errorf("persist user embedding: %w", err)
	}

	return generated, nil
}

// GetOrCreatePostEmbedding returns the stored vector for postID, generating and
// persisting one from content when absent. Uses the loader cache so a burst of related-
// post queries for the same source post triggers at most one load.
func (s *EmbeddingStore) GetOrCreatePostEmbedding(ctx context.Context, postID int64, content string) ([]float32, error) {
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}

	if s.sourceCache == nil {
		return s.loadOrCreatePostEmbedding(ctx, postID, content)
	}

	key := "post:" + strconv.FormatInt(postID, 10)

	vec, hit, err := s.sourceCache.GetWithStats(ctx, key, func(ctx context.Context, _ string) ([]float32, error) {
		return s.loadOrCreatePostEmbedding(ctx, postID, content)
	})
	if err != nil {
		return nil, err
	}

	if s.cacheMetrics != nil {
		if hit {
			s.cacheMetrics.RecordHit(ctx, sourceEmbeddingCacheName)
		} else {
			s.cacheMetrics.RecordMiss(ctx, sourceEmbeddingCacheName)
		}
	}

	return vec, nil
}

func (s *EmbeddingStore) loadOrCreatePostEmbedding(ctx context.Context, postID int64, content string) ([]float32, error) {
	vec, err := s.repo.GetPostEmbedding(ctx, postID, s.model)
	if err == nil {
		return vec, nil
	}

	if !errors.Is(err, repository.ErrEmbeddingNotFound) {
		return nil, fmt.Errorf("get post embedding: %w", err)
	}

	generated, err := s.generate(ctx, content)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpsertPostEmbedding(ctx, postID, s.model, generated); err != nil {
		return nil, fmt.Errorf("persist post embedding: %w", err)
	}

	return generated, nil
}

// GetUserEmbedding is a read-only lookup; no generation. Returns ErrEmbeddingNotFound
// when no record exists.
func (s *EmbeddingStore) GetUserEmbedding(ctx context.Context, userID int64, field models.EmbeddingField) ([]float32, error) {
	return s.repo.GetUserEmbedding(ctx, userID, field, s.model)
}

// GetPostEmbedding is a read-only lookup; no generation.
func (s *EmbeddingStore) GetPostEmbedding(ctx context.Context, postID int64) ([]float32, error) {
	return s.repo.GetPostEmbedding(ctx, postID, s.model)
}

// RefreshUserEmbedding regenerates the vector for (userID, field) from text and
// overwrites the stored record. Empty text deletes the record instead: the vector must
// always reflect the latest saved text. Used by the embedding worker.
func (s *EmbeddingStore) RefreshUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, text string,
) error {
	if strings.TrimSpace(text) == "" {
		if err := s.repo.DeleteUserEmbedding(ctx, userID, field, s.model); err != nil {
			return fmt.Errorf("clear user embedding: %w", err)
		}

		return nil
	}

	vec, err := s.generate(ctx, text)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertUserEmbedding(ctx, userID, field, s.model, vec); err != nil {
		return fmt.Errorf("persist user embedding: %w", err)
	}

	return nil
}

// RefreshPostEmbedding regenerates the vector for postID from content and overwrites
// the stored record. Empty content deletes the record. Invalidates the source cache.
func (s *EmbeddingStore) RefreshPostEmbedding(ctx context.Context, postID int64, content string) error {
	if s.sourceCache != nil {
		s.sourceCache.Invalidate("post:" + strconv.FormatInt(postID, 10))
	}

	if strings.TrimSpace(content) == "" {
		if err := s.repo.DeletePostEmbedding(ctx, postID, s.model); err != nil {
			return fmt.Errorf("clear post embedding: %w", err)
		}

		return nil
	}

	vec, err := s.generate(ctx, content)
	if err != nil {
		return err
	}

	if err := s.repo.UpsertPostEmbedding(ctx, postID, s.model, vec); err != nil {
		return fmt.Errorf("persist post embedding: %w", err)
	}

	return nil
}

// generate calls the provider and validates the result. A malformed result (zero or
// wrong length) is surfaced as an error and never persisted.
func (s *EmbeddingStore) generate(ctx context.Context, text string) ([]float32, error) {
	if s.client == nil {
		return nil, ErrProviderUnavailable
	}

	vec, err := s.client.GetEmbedding(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding provider: %w", err)
	}

	if len(vec) == 0 || len(vec) != s.client.Dimensions() {
		s.logger.Error("embedding provider returned malformed vector",
			"got_len", len(vec), "want_len", s.client.Dimensions())

		return nil, fmt.Errorf("embedding provider: malformed vector (len %d)", len(vec))
	}

	return vec, nil
}
