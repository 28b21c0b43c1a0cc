package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/devconnect/matchcore/internal/models"
)

// ErrPostNotFound is returned when no post row exists for the given id.
var ErrPostNotFound = errors.New("post not found")

// PostsRepository handles data access for the posts table.
type PostsRepository struct {
	db *pgxpool.Pool
}

// NewPostsRepository creates a new posts repository.
func NewPostsRepository(db *pgxpool.Pool) *PostsRepository {
	return &PostsRepository{db: db}
}

// GetByID returns the post with the given id. Returns ErrPostNotFound when absent.
func (r *PostsRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var p models.Post

	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, content, created_at
		FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}

		return nil, fmt.Errorf("get post: %w", err)
	}

	return &p, nil
}

// Create inserts a new post and returns it with id and created_at set.
func (r *PostsRepository) Create(ctx context.Context, userID int64, content string) (*models.Post, error) {
	var p models.Post

	err := r.db.QueryRow(ctx, `
		INSERT INTO posts (user_id, content)
		VALUES ($1, $2)
		RETURNING id, user_id, content, created_at`,
		userID, content,
	).Scan(&p.ID, &p.UserID, &p.Content, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	return &p, nil
}

// ListCandidates returns every post except excludeID together with its stored embedding
// for the given model when present. Posts without embeddings stay in the pool and score 0.
// Ordered by id so ranking input order is deterministic.
func (r *PostsRepository) ListCandidates(ctx context.Context, excludeID int64, model string) ([]models.PostCandidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.user_id, p.content, p.created_at, e.embedding
		FROM posts p
		LEFT JOIN post_embeddings e ON e.post_id = p.id AND e.model = $2
		WHERE p.id != $1
		ORDER BY p.id`, excludeID, model)
	if err != nil {
		return nil, fmt.Errorf("list post candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.PostCandidate

	for rows.Next() {
		var (
			c   models.PostCandidate
			vec *pgvector.HalfVector
		)

		if err := rows.Scan(&c.Post.ID, &c.Post.UserID, &c.Post.Content, &c.Post.CreatedAt, &vec); err != nil {
			return nil, fmt.Errorf("scan post candidate: %w", err)
		}

		if vec != nil {
			c.Vector = vec.Slice()
		}

		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating post candidates: %w", err)
	}

	return candidates, nil
}

// MissingPostEmbedding identifies one post that has non-empty content but no stored
// embedding for a model.
type MissingPostEmbedding struct {
	PostID int64
	Text   string
}

// ListMissingEmbeddings returns posts that have non-empty content and no embedding row
// for the given model. Used by the backfill job.
func (r *PostsRepository) ListMissingEmbeddings(ctx context.Context, model string) ([]MissingPostEmbedding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT p.id, p.content
		FROM posts p
		WHERE trim(p.content) != ''
		  AND NOT EXISTS (
		    SELECT 1 FROM post_embeddings e
		    WHERE e.post_id = p.id AND e.model = $1
		  )
		ORDER BY p.id`, model)
	if err != nil {
		return nil, fmt.Errorf("list missing post embeddings: %w", err)
	}
	defer rows.Close()

	var missing []MissingPostEmbedding

	for rows.Next() {
		var m MissingPostEmbedding
		if err := rows.Scan(&m.PostID, &m.Text); err != nil {
			return nil, fmt.Errorf("scan missing post embedding: %w", err)
		}

		missing = append(missing, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating missing post embeddings: %w", err)
	}

	return missing, nil
}
