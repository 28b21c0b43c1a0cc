package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/devconnect/matchcore/internal/models"
)

// ErrEmbeddingNotFound is returned when no embedding row exists for the requested key.
var ErrEmbeddingNotFound = errors.New("embedding not found")

// EmbeddingsRepository handles data access for the user_embeddings and post_embeddings
// tables. Rows are keyed (entity id, field, model) for users and (post id, model) for
// posts; writes are upserts, so concurrent writers for the same key race harmlessly to
// last-write-wins.
type EmbeddingsRepository struct {
	db *pgxpool.Pool
}

// NewEmbeddingsRepository creates a new embeddings repository.
func NewEmbeddingsRepository(db *pgxpool.Pool) *EmbeddingsRepository {
	return &EmbeddingsRepository{db: db}
}

// UpsertUserEmbedding inserts or overwrites the embedding for (user_id, field, model).
// Uses halfvec storage (2 bytes per dimension); pgvector-go converts on encode.
func (r *EmbeddingsRepository) UpsertUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, model string, embedding []float32,
) error {
	vec := pgvector.NewHalfVector(embedding)
	now := time.Now()

	_, err := r.db.Exec(ctx, `
		INSERT INTO user_embeddings (user_id, field, model, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (user_id, field, model)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = $5`,
		userID, field, model, vec, now,
	)
	if err != nil {
		return fmt.Errorf("user embedding upsert: %w", err)
	}

	return nil
}

// DeleteUserEmbedding removes the embedding row for (user_id, field, model).
// Called when the owning text field is cleared; entity deletion cascades via FK.
func (r *EmbeddingsRepository) DeleteUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, model string,
) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM user_embeddings WHERE user_id = $1 AND field = $2 AND model = $3`,
		userID, field, model,
	)
	if err != nil {
		return fmt.Errorf("user embedding delete: %w", err)
	}

	return nil
}

// GetUserEmbedding returns the stored embedding for (user_id, field, model).
// Returns ErrEmbeddingNotFound when no row exists.
func (r *EmbeddingsRepository) GetUserEmbedding(
	ctx context.Context, userID int64, field models.EmbeddingField, model string,
) ([]float32, error) {
	var vec pgvector.HalfVector

	err := r.db.QueryRow(ctx,
		`SELECT embedding FROM user_embeddings WHERE user_id = $1 AND field = $2 AND model = $3`,
		userID, field, model,
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmbeddingNotFound
		}

		return nil, fmt.Errorf("get user embedding: %w", err)
	}

	return vec.Slice(), nil
}

// UpsertPostEmbedding inserts or overwrites the embedding for (post_id, model).
func (r *EmbeddingsRepository) UpsertPostEmbedding(
	ctx context.Context, postID int64, model string, embedding []float32,
) error {
	vec := pgvector.NewHalfVector(embedding)
	now := time.Now()

	_, err := r.db.Exec(ctx, `
		INSERT INTO post_embeddings (post_id, model, embedding, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (post_id, model)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = $4`,
		postID, model, vec, now,
	)
	if err != nil {
		return fmt.Errorf("post embedding upsert: %w", err)
	}

	return nil
}

// DeletePostEmbedding removes the embedding row for (post_id, model).
func (r *EmbeddingsRepository) DeletePostEmbedding(ctx context.Context, postID int64, model string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM post_embeddings WHERE post_id = $1 AND model = $2`,
		postID, model,
	)
	if err != nil {
		return fmt.Errorf("post embedding delete: %w", err)
	}

	return nil
}

// GetPostEmbedding returns the stored embedding for (post_id, model).
// Returns ErrEmbeddingNotFound when no row exists.
func (r *EmbeddingsRepository) GetPostEmbedding(ctx context.Context, postID int64, model string) ([]float32, error) {
	var vec pgvector.HalfVector

	err := r.db.QueryRow(ctx,
		`SELECT embedding FROM post_embeddings WHERE post_id = $1 AND model = $2`,
		postID, model,
	).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEmbeddingNotFound
		}

		return nil, fmt.Errorf("get post embedding: %w", err)
	}

	return vec.Slice(), nil
}
