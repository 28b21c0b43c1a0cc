package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/repository"
	"github.com/devconnect/matchcore/internal/service"
)

type mockMissingUsers struct {
	missing []repository.MissingUserEmbedding
	err     error
}

func (m *mockMissingUsers) ListMissingEmbeddings(
	_ context.Context, _ string,
) ([]repository.MissingUserEmbedding, error) {
	return m.missing, m.err
}

type mockMissingPosts struct {
	missing []repository.MissingPostEmbedding
	err     error
}

func (m *mockMissingPosts) ListMissingEmbeddings(
	_ context.Context, _ string,
) ([]repository.MissingPostEmbedding, error) {
	return m.missing, m.err
}

type mockBackfillInserter struct {
	failFor  map[int64]bool
	inserted []service.EntityEmbeddingArgs
	opts     []*river.InsertOpts
}

func (m *mockBackfillInserter) Insert(
	_ context.Context, args river.JobArgs, opts *river.InsertOpts,
) (*rivertype.JobInsertResult, error) {
	embArgs, ok := args.(service.EntityEmbeddingArgs)
	if !ok {
		return nil, errors.New("unexpected args type")
	}

	if m.failFor[embArgs.EntityID] {
		return nil, errors.New("insert failed")
	}

	m.inserted = append(m.inserted, embArgs)
	m.opts = append(m.opts, opts)

	return &rivertype.JobInsertResult{}, nil
}

func TestBackfill(t *testing.T) {
	ctx := context.Background()

	t.Run("enqueues one job per missing user field and post", func(t *testing.T) {
		inserter := &mockBackfillInserter{}
		stats, err := Backfill(ctx, BackfillParams{
			Users: &mockMissingUsers{missing: []repository.MissingUserEmbedding{
				{UserID: 1, Field: models.FieldBio},
				{UserID: 1, Field: models.FieldLookingFor},
			}},
			Posts: &mockMissingPosts{missing: []repository.MissingPostEmbedding{
				{PostID: 10},
			}},
			Inserter:    inserter,
			Model:       "test-model",
			Queue:       service.EmbeddingsQueueName,
			MaxAttempts: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.UserFieldsEnqueued)
		assert.Equal(t, 1, stats.PostsEnqueued)
		assert.Zero(t, stats.Errors)

		require.Len(t, inserter.inserted, 3)
		assert.Equal(t, service.EntityTypeUser, inserter.inserted[0].EntityType)
		assert.Equal(t, string(models.FieldBio), inserter.inserted[0].Field)
		assert.Equal(t, service.EntityTypePost, inserter.inserted[2].EntityType)
		assert.Equal(t, int64(10), inserter.inserted[2].EntityID)

		for _, opts := range inserter.opts {
			assert.Equal(t, service.EmbeddingsQueueName, opts.Queue)
			assert.Equal(t, 5, opts.MaxAttempts)
			assert.True(t, opts.UniqueOpts.ByArgs, "backfill must not duplicate pending jobs")
		}
	})

	t.Run("per-entity enqueue failures are counted and skipped", func(t *testing.T) {
		inserter := &mockBackfillInserter{failFor: map[int64]bool{2: true}}
		stats, err := Backfill(ctx, BackfillParams{
			Users: &mockMissingUsers{missing: []repository.MissingUserEmbedding{
				{UserID: 1, Field: models.FieldBio},
				{UserID: 2, Field: models.FieldBio},
				{UserID: 3, Field: models.FieldBio},
			}},
			Posts:       &mockMissingPosts{},
			Inserter:    inserter,
			Model:       "test-model",
			Queue:       service.EmbeddingsQueueName,
			MaxAttempts: 5,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, stats.UserFieldsEnqueued)
		assert.Equal(t, 1, stats.Errors)
	})

	t.Run("user listing failure aborts the run", func(t *testing.T) {
		stats, err := Backfill(ctx, BackfillParams{
			Users:    &mockMissingUsers{err: errors.New("query failed")},
			Posts:    &mockMissingPosts{},
			Inserter: &mockBackfillInserter{},
			Model:    "test-model",
			Queue:    service.EmbeddingsQueueName,
		})
		assert.Nil(t, stats)
		assert.ErrorContains(t, err, "list users missing embeddings")
	})

	t.Run("post listing failure keeps the user stats", func(t *testing.T) {
		stats, err := Backfill(ctx, BackfillParams{
			Users: &mockMissingUsers{missing: []repository.MissingUserEmbedding{
				{UserID: 1, Field: models.FieldBio},
			}},
			Posts:    &mockMissingPosts{err: errors.New("query failed")},
			Inserter: &mockBackfillInserter{},
			Model:    "test-model",
			Queue:    service.EmbeddingsQueueName,
		})
		require.Error(t, err)
		require.NotNil(t, stats)
		assert.Equal(t, 1, stats.UserFieldsEnqueued)
	})
}
