// Package repository handles data access for users, posts, and their embeddings.
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

// ErrUserNotFound is returned when no user row exists for the given id.
var ErrUserNotFound = errors.New("user not found")

// UsersRepository handles data access for the users table.
type UsersRepository struct {
	db *pgxpool.Pool
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *pgxpool.Pool) *UsersRepository {
	return &UsersRepository{db: db}
}

// GetByID returns the user with the given id. Returns ErrUserNotFound when absent.
func (r *UsersRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User

	err := r.db.QueryRow(ctx, `
		SELECT id, username, avatar_url, bio, looking_for, created_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.AvatarURL, &u.Bio, &u.LookingFor, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// UpdateProfile updates the embeddable profile text fields. The text write commits
// independently of embedding regeneration (which runs async). Returns ErrUserNotFound
// when the user does not exist.
func (r *UsersRepository) UpdateProfile(ctx context.Context, id int64, bio, lookingFor string) (*models.User, error) {
	var u models.User

	err := r.db.QueryRow(ctx, `
		UPDATE users SET bio = $2, looking_for = $3
		WHERE id = $1
		RETURNING id, username, avatar_url, bio, looking_for, created_at`,
		id, bio, lookingFor,
	).Scan(&u.ID, &u.Username, &u.AvatarURL, &u.Bio, &u.LookingFor, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		return nil, fmt.Errorf("update profile: %w", err)
	}

	return &u, nil
}

// ListCandidates returns every user except excludeID together with whatever embeddings
// are stored for the given model. LEFT JOINs keep users without embeddings in the pool;
// the engine scores those via the keyword fallback. Ordered by id so ranking input
// order (and therefore tie-breaking) is deterministic.
func (r *UsersRepository) ListCandidates(ctx context.Context, excludeID int64, model string) ([]models.UserCandidate, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, u.username, u.avatar_url, u.bio, u.looking_for, u.created_at,
		       eb.embedding, el.embedding
		FROM users u
		LEFT JOIN user_embeddings eb ON eb.user_id = u.id AND eb.field = 'bio' AND eb.model = $2
		LEFT JOIN user_embeddings el ON el.user_id = u.id AND el.field = 'looking_for' AND el.model = $2
		WHERE u.id != $1
		ORDER BY u.id`, excludeID, model)
	if err != nil {
		return nil, fmt.Errorf("list user candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.UserCandidate

	for rows.Next() {
		var (
			c       models.UserCandidate
			bioVec  *pgvector.HalfVector
			lookVec *pgvector.HalfVector
		)

		if err := rows.Scan(
			&c.User.ID, &c.User.Username, &c.User.AvatarURL, &c.User.Bio, &c.User.LookingFor,
			&c.User.CreatedAt, &bioVec, &lookVec,
		); err != nil {
			return nil, fmt.Errorf("scan user candidate: %w", err)
		}

		if bioVec != nil {
			c.BioVector = bioVec.Slice()
		}

		if lookVec != nil {
			c.LookingVector = lookVec.Slice()
		}

		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating user candidates: %w", err)
	}

	return candidates, nil
}

// MissingUserEmbedding identifies one user text field that has non-empty text but no
// stored embedding for a model.
type MissingUserEmbedding struct {
	UserID int64
	Field  models.EmbeddingField
	Text   string
}

// ListMissingEmbeddings returns (user, field) pairs that have non-empty text and no
// embedding row for the given model. Used by the backfill job.
func (r *UsersRepository) ListMissingEmbeddings(ctx context.Context, model string) ([]MissingUserEmbedding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT u.id, f.field, f.text
		FROM users u
		CROSS JOIN LATERAL (VALUES ('bio', u.bio), ('looking_for', u.looking_for)) AS f(field, text)
		WHERE trim(f.text) != ''
		  AND NOT EXISTS (
		    SELECT 1 FROM user_embeddings e
		    WHERE e.user_id = u.id AND e.field = f.field AND e.model = $1
		  )
		ORDER BY u.id, f.field`, model)
	if err != nil {
		return nil, fmt.Errorf("list missing user embeddings: %w", err)
	}
	defer rows.Close()

	var missing []MissingUserEmbedding

	for rows.Next() {
		var m MissingUserEmbedding
		if err := rows.Scan(&m.UserID, &m.Field, &m.Text); err != nil {
			return nil, fmt.Errorf("scan missing user embedding: %w", err)
		}

		missing = append(missing, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating missing user embeddings: %w", err)
	}

	return missing, nil
}
