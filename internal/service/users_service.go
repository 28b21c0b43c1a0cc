package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/devconnect/matchcore/internal/models"
)

// UsersRepositoryForService provides the user writes/reads the service needs.
type UsersRepositoryForService interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, bio, lookingFor string) (*models.User, error)
}

// UsersService handles profile updates and lookups. A profile update commits the text
// first and then enqueues embedding regeneration for the fields that changed —
// including fields that are now empty, so the worker clears their stale vectors.
type UsersService struct {
	repo     UsersRepositoryForService
	provider *EmbeddingProvider
	logger   *slog.Logger
}

// NewUsersService creates a UsersService. provider may be nil when the embedding
// pipeline is disabled.
func NewUsersService(repo UsersRepositoryForService, provider *EmbeddingProvider, logger *slog.Logger) *UsersService {
	if logger == nil {
		logger = slog.Default()
	}

	return &UsersService{repo: repo, provider: provider, logger: logger}
}

// UpdateProfile saves the user's embeddable text fields. Embedding regeneration is
// async and non-fatal: the text write is the primary operation and always wins.
func (s *UsersService) UpdateProfile(ctx context.Context, id int64, bio, lookingFor string) (*models.User, error) {
	before, err := s.repo.GetByID(ctx, id)
	if err != nil {
		//nolint:wrapcheck // ErrUserNotFound passes through for handler status mapping
		return nil, err
	}

	updated, err := s.repo.UpdateProfile(ctx, id, bio, lookingFor)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	if s.provider != nil {
		if before.Bio != updated.Bio {
			s.provider.EnqueueUserEmbedding(ctx, id, models.FieldBio)
		}

		if before.LookingFor != updated.LookingFor {
			s.provider.EnqueueUserEmbedding(ctx, id, models.FieldLookingFor)
		}
	}

	return updated, nil
}

// GetByID returns the user with the given id. Returns ErrUserNotFound when absent.
func (s *UsersService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	//nolint:wrapcheck // sentinel passes through for handler status mapping
	return s.repo.GetByID(ctx, id)
}
