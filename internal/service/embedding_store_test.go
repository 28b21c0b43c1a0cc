package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devconnect/matchcore/internal/embeddings"
	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/repository"
	"github.com/devconnect/matchcore/pkg/cache"
)

type mockEmbeddingsRepo struct {
	getUserFunc    func(ctx context.Context, userID int64, field models.EmbeddingField, model string) ([]float32, error)
	upsertUserFunc func(ctx context.Context, userID int64, field models.EmbeddingField, model string, embedding []float32) error
	deleteUserFunc func(ctx context.Context, userID int64, field models.EmbeddingField, model string) error
	getPostFunc    func(ctx context.Context, postID int64, model string) ([]float32, error)
	upsertPostFunc func(ctx context.Context, postID int64, model string, embedding []float32) error
	deletePostFunc func(ctx context.Context, postID int64, model string) error
}

func (m *mockEmbeddingsRepo) GetUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, model string,
) ([]float32, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID, field, model)
	}

	return nil, repository.ErrEmbeddingNotFound
}

func (m *mockEmbeddingsRepo) UpsertUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, model string, embedding []float32,
) error {
	if m.upsertUserFunc != nil {
		return m.upsertUserFunc(ctx, userID, field, model, embedding)
	}

	return nil
}

func (m *mockEmbeddingsRepo) DeleteUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, model string,
) error {
	if m.deleteUserFunc != nil {
		return m.deleteUserFunc(ctx, userID, field, model)
	}

	return nil
}

func (m *mockEmbeddingsRepo) GetPostEmbedding(ctx context.Context, postID int64, model string) ([]float32, error) {
	if m.getPostFunc != nil {
		return m.getPostFunc(ctx, postID, model)
	}

	return nil, repository.ErrEmbeddingNotFound
}

func (m *mockEmbeddingsRepo) UpsertPostEmbedding(
	ctx context.Context, postID int64, model string, embedding []float32,
) error {
	if m.upsertPostFunc != nil {
		return m.upsertPostFunc(ctx, postID, model, embedding)
	}

	return nil
}

func (m *mockEmbeddingsRepo) DeletePostEmbedding(ctx context.Context, postID int64, model string) error {
	if m.deletePostFunc != nil {
		return m.deletePostFunc(ctx, postID, model)
	}

	return nil
}

const testDimensions = 8

func TestEmbeddingStore_GetOrCreatePostEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("empty content yields nil without provider call", func(t *testing.T) {
		store := NewEmbeddingStore(EmbeddingStoreParams{
			Client: embeddings.NewMockClientWithDimensions(testDimensions),
			Repo:   &mockEmbeddingsRepo{},
			Model:  "test-model",
		})

		vec, err := store.GetOrCreatePostEmbedding(ctx, 1, "   ")
		require.NoError(t, err)
		assert.Nil(t, vec)
	})

	t.Run("stored vector is returned as-is", func(t *testing.T) {
		stored := []float32{0.5, 0.5}
		repo := &mockEmbeddingsRepo{
			getPostFunc: func(_ context.Context, postID int64, model string) ([]float32, error) {
				assert.Equal(t, int64(7), postID)
				assert.Equal(t, "test-model", model)

				return stored, nil
			},
		}
		store := NewEmbeddingStore(EmbeddingStoreParams{Repo: repo, Model: "test-model"})

		vec, err := store.GetOrCreatePostEmbedding(ctx, 7, "some content")
		require.NoError(t, err)
		assert.Equal(t, stored, vec)
	})

	t.Run("missing vector is generated and persisted", func(t *testing.T) {
		client := embeddings.NewMockClientWithDimensions(testDimensions)

		var persisted []float32

		repo := &mockEmbeddingsRepo{
			upsertPostFunc: func(_ context.Context, postID int64, model string, embedding []float32) error {
				assert.Equal(t, int64(7), postID)
				assert.Equal(t, "test-model", model)

				persisted = embedding

				return nil
			},
		}
		store := NewEmbeddingStore(EmbeddingStoreParams{Client: client, Repo: repo, Model: "test-model"})

		vec, err := store.GetOrCreatePostEmbedding(ctx, 7, "go concurrency patterns")
		require.NoError(t, err)
		require.Len(t, vec, testDimensions)
		assert.Equal(t, vec, persisted)

		// The mock client is deterministic: the same text maps to the same vector.
		again, err := client.GetEmbedding(ctx, "go concurrency patterns")
		require.NoError(t, err)
		assert.Equal(t, again, vec)
	})

	t.Run("no provider configured returns ErrProviderUnavailable", func(t *testing.T) {
		store := NewEmbeddingStore(EmbeddingStoreParams{Repo: &mockEmbeddingsRepo{}, Model: "test-model"})

		vec, err := store.GetOrCreatePostEmbedding(ctx, 7, "some content")
		assert.Nil(t, vec)
		assert.ErrorIs(t, err, ErrProviderUnavailable)
	})

	t.Run("loader cache serves repeated lookups without reloading", func(t *testing.T) {
		sourceCache, err := cache.NewLoaderCache[string, []float32](16, func(k string) string { return k })
		require.NoError(t, err)

		loads := 0
		repo := &mockEmbeddingsRepo{
			getPostFunc: func(_ context.Context, _ int64, _ string) ([]float32, error) {
				loads++

				return []float32{0.1, 0.2}, nil
			},
		}
		store := NewEmbeddingStore(EmbeddingStoreParams{Repo: repo, Model: "test-model", SourceCache: sourceCache})

		for range 3 {
			vec, err := store.GetOrCreatePostEmbedding(ctx, 7, "some content")
			require.NoError(t, err)
			assert.Equal(t, []float32{0.1, 0.2}, vec)
		}

		assert.Equal(t, 1, loads)
	})
}

func TestEmbeddingStore_GetOrCreateUserEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("empty text yields nil", func(t *testing.T) {
		store := NewEmbeddingStore(EmbeddingStoreParams{Repo: &mockEmbeddingsRepo{}, Model: "test-model"})

		vec, err := store.GetOrCreateUserEmbedding(ctx, 1, models.FieldBio, "")
		require.NoError(t, err)
		assert.Nil(t, vec)
	})

	t.Run("missing vector is generated for the right field", func(t *testing.T) {
		var gotField models.EmbeddingField

		repo := &mockEmbeddingsRepo{
			upsertUserFunc: func(_ context.Context, userID int64, field models.EmbeddingField, _ string, embedding []float32) error {
				assert.Equal(t, int64(3), userID)
				require.Len(t, embedding, testDimensions)

				gotField = field

				return nil
			},
		}
		store := NewEmbeddingStore(EmbeddingStoreParams{
			Client: embeddings.NewMockClientWithDimensions(testDimensions),
			Repo:   repo,
			Model:  "test-model",
		})

		vec, err := store.GetOrCreateUserEmbedding(ctx, 3, models.FieldLookingFor, "a mentor")
		require.NoError(t, err)
		require.Len(t, vec, testDimensions)
		assert.Equal(t, models.FieldLookingFor, gotField)
	})

	t.Run("repository read error surfaces", func(t *testing.T) {
		repo := &mockEmbeddingsRepo{
			getUserFunc: func(_ context.Context, _ int64, _ models.EmbeddingField, _ string) ([]float32, error) {
				return nil, errors.New("connection reset")
			},
		}
		store := NewEmbeddingStore(EmbeddingStoreParams{Repo: repo, Model: "test-model"})

		vec, err := store.GetOrCreateUserEmbedding(ctx, 3, models.FieldBio, "some bio")
		assert.Nil(t, vec)
		assert.ErrorContains(t, err, "get user embedding")
	})
}

type malformedClient struct {
	dims int
	vec  []float32
}

func (c *malformedClient) GetEmbedding(context.Context, string) ([]float32, error) { return c.vec, nil }
func (c *malformedClient) Dimensions() int                                         { return c.dims }

func TestEmbeddingStore_MalformedProviderVector(t *testing.T) {
	ctx := context.Background()
	upserted := false
	repo := &mockEmbeddingsRepo{
		upsertPostFunc: func(context.Context, int64, string, []float32) error {
			upserted = true

			return nil
		},
	}
	store := NewEmbeddingStore(EmbeddingStoreParams{
		Client: &malformedClient{dims: 8, vec: []float32{0.1, 0.2}},
		Repo:   repo,
		Model:  "test-model",
	})

	vec, err := store.GetOrCreatePostEmbedding(ctx, 7, "some content")
	assert.Nil(t, vec)
	assert.ErrorContains(t, err, "malformed vector")
	assert.False(t, upserted, "malformed vectors must never be persisted")
}

func TestEmbeddingStore_RefreshUserEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("empty text clears the stored record", func(t *testing.T) {
		deleted := false
		repo := &mockEmbeddingsRepo{
			deleteUserFunc: func(_ context.Context, userID int64, field models.EmbeddingField, _ string) error {
				assert.Equal(t, int64(3), userID)
				assert.Equal(t, models.FieldBio, field)

				deleted = true

				return nil
			},
		}
		store := NewEmbeddingStore(EmbeddingStoreParams{
			Client: embeddings.NewMockClientWithDimensions(testDimensions),
			Repo:   repo,
			Model:  "test-model",
		})

		require.NoError(t, store.RefreshUserEmbedding(ctx, 3, models.FieldBio, "  "))
		assert.True(t, deleted)
	})

	t.Run("non-empty text overwrites the stored record", func(t *testing.T) {
		var persisted []float32

		repo := &mockEmbeddingsRepo{
			upsertUserFunc: func(_ context.Context, _ int64, _ models.EmbeddingField, _ string, embedding []float32) error {
				persisted = embedding

				return nil
			},
		}
		store := NewEmbeddingStore(EmbeddingStoreParams{
			Client: embeddings.NewMockClientWithDimensions(testDimensions),
			Repo:   repo,
			Model:  "test-model",
		})

		require.NoError(t, store.RefreshUserEmbedding(ctx, 3, models.FieldBio, "backend engineer"))
		assert.Len(t, persisted, testDimensions)
	})
}

func TestEmbeddingStore_RefreshPostEmbedding_InvalidatesCache(t *testing.T) {
	ctx := context.Background()

	sourceCache, err := cache.NewLoaderCache[string, []float32](16, func(k string) string { return k })
	require.NoError(t, err)

	loads := 0
	repo := &mockEmbeddingsRepo{
		getPostFunc: func(_ context.Context, _ int64, _ string) ([]float32, error) {
			loads++

			return []float32{float32(loads)}, nil
		},
	}
	store := NewEmbeddingStore(EmbeddingStoreParams{
		Client:      embeddings.NewMockClientWithDimensions(testDimensions),
		Repo:        repo,
		Model:       "test-model",
		SourceCache: sourceCache,
	})

	first, err := store.GetOrCreatePostEmbedding(ctx, 7, "old content")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, first)

	require.NoError(t, store.RefreshPostEmbedding(ctx, 7, "new content"))

	second, err := store.GetOrCreatePostEmbedding(ctx, 7, "new content")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, second, "refresh must invalidate the source cache entry")
}
