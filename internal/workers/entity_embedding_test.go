package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/service"
)

type mockUserSource struct {
	user *models.User
	err  error
}

func (m *mockUserSource) GetByID(context.Context, int64) (*models.User, error) {
	return m.user, m.err
}

type mockPostSource struct {
	post *models.Post
	err  error
}

func (m *mockPostSource) GetByID(context.Context, int64) (*models.Post, error) {
	return m.post, m.err
}

type mockRefresher struct {
	err error

	userRefreshes []string
	postRefreshes []string
}

func (m *mockRefresher) RefreshUserEmbedding(
	_ context.Context, _ int64, _ models.EmbeddingField, text string,
) error {
	m.userRefreshes = append(m.userRefreshes, text)

	return m.err
}

func (m *mockRefresher) RefreshPostEmbedding(_ context.Context, _ int64, content string) error {
	m.postRefreshes = append(m.postRefreshes, content)

	return m.err
}

func embeddingJob(args service.EntityEmbeddingArgs, attempt, maxAttempts int) *river.Job[service.EntityEmbeddingArgs] {
	return &river.Job[service.EntityEmbeddingArgs]{
		JobRow: &rivertype.JobRow{Attempt: attempt, MaxAttempts: maxAttempts},
		Args:   args,
	}
}

func TestEntityEmbeddingWorker_Work(t *testing.T) {
	ctx := context.Background()

	t.Run("refreshes a post embedding from current content", func(t *testing.T) {
		store := &mockRefresher{}
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{},
			&mockPostSource{post: &models.Post{ID: 7, Content: "latest content"}},
			store, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypePost,
			EntityID:   7,
		}, 1, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"latest content"}, store.postRefreshes)
		assert.Empty(t, store.userRefreshes)
	})

	t.Run("refreshes the requested user field", func(t *testing.T) {
		store := &mockRefresher{}
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{user: &models.User{ID: 3, Bio: "bio text", LookingFor: "looking text"}},
			&mockPostSource{},
			store, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypeUser,
			EntityID:   3,
			Field:      string(models.FieldLookingFor),
		}, 1, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"looking text"}, store.userRefreshes)
	})

	t.Run("empty text still refreshes so the stale vector is cleared", func(t *testing.T) {
		store := &mockRefresher{}
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{user: &models.User{ID: 3, Bio: "   "}},
			&mockPostSource{},
			store, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypeUser,
			EntityID:   3,
			Field:      string(models.FieldBio),
		}, 1, 3))
		require.NoError(t, err)
		assert.Equal(t, []string{"   "}, store.userRefreshes)
	})

	t.Run("missing entity returns nil so the job is not retried", func(t *testing.T) {
		store := &mockRefresher{}
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{},
			&mockPostSource{err: service.ErrPostNotFound},
			store, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypePost,
			EntityID:   99,
		}, 1, 3))
		require.NoError(t, err)
		assert.Empty(t, store.postRefreshes)
	})

	t.Run("transient load failure before the last attempt returns the error for retry", func(t *testing.T) {
		store := &mockRefresher{}
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{err: errors.New("connection refused")},
			&mockPostSource{},
			store, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypeUser,
			EntityID:   3,
			Field:      string(models.FieldBio),
		}, 1, 3))
		assert.ErrorContains(t, err, "load entity")
		assert.Empty(t, store.userRefreshes)
	})

	t.Run("transient load failure on the last attempt returns nil", func(t *testing.T) {
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{err: errors.New("connection refused")},
			&mockPostSource{},
			&mockRefresher{}, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypeUser,
			EntityID:   3,
			Field:      string(models.FieldBio),
		}, 3, 3))
		assert.NoError(t, err)
	})

	t.Run("unknown entity type returns nil", func(t *testing.T) {
		worker := NewEntityEmbeddingWorker(&mockUserSource{}, &mockPostSource{}, &mockRefresher{}, nil, nil)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: "organization",
			EntityID:   1,
		}, 1, 3))
		assert.NoError(t, err)
	})

	t.Run("unknown user field returns nil", func(t *testing.T) {
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{user: &models.User{ID: 3}},
			&mockPostSource{},
			&mockRefresher{}, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypeUser,
			EntityID:   3,
			Field:      "pronouns",
		}, 1, 3))
		assert.NoError(t, err)
	})

	t.Run("refresh failure before the last attempt returns the error for retry", func(t *testing.T) {
		store := &mockRefresher{err: errors.New("provider timeout")}
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{},
			&mockPostSource{post: &models.Post{ID: 7, Content: "content"}},
			store, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypePost,
			EntityID:   7,
		}, 1, 3))
		assert.ErrorContains(t, err, "refresh embedding")
	})

	t.Run("refresh failure on the last attempt returns nil", func(t *testing.T) {
		store := &mockRefresher{err: errors.New("provider timeout")}
		worker := NewEntityEmbeddingWorker(
			&mockUserSource{},
			&mockPostSource{post: &models.Post{ID: 7, Content: "content"}},
			store, nil, nil,
		)

		err := worker.Work(ctx, embeddingJob(service.EntityEmbeddingArgs{
			EntityType: service.EntityTypePost,
			EntityID:   7,
		}, 3, 3))
		assert.NoError(t, err)
	})
}
