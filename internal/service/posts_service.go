package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/devconnect/matchcore/internal/models"
)

// ErrEmptyContent is returned when a post is created with empty content.
var ErrEmptyContent = errors.New("post content is required and must be non-empty")

// PostsRepositoryForService provides the post writes/reads the service needs.
type PostsRepositoryForService interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	Create(ctx context.Context, userID int64, content string) (*models.Post, error)
}

// PostsService handles post creation and lookups. Creating a post enqueues embedding
// generation; the post write commits regardless of the embedding pipeline's health.
type PostsService struct {
	repo     PostsRepositoryForService
	provider *EmbeddingProvider
	logger   *slog.Logger
}

// NewPostsService creates a PostsService. provider may be nil when the embedding
// pipeline is disabled.
func NewPostsService(repo PostsRepositoryForService, provider *EmbeddingProvider, logger *slog.Logger) *PostsService {
	if logger == nil {
		logger = slog.Default()
	}

	return &PostsService{repo: repo, provider: provider, logger: logger}
}

// Create inserts a new post and enqueues embedding generation for its content.
func (s *PostsService) Create(ctx context.Context, userID int64, content string) (*models.Post, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}

	post, err := s.repo.Create(ctx, userID, content)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if s.provider != nil {
		s.provider.EnqueuePostEmbedding(ctx, post.ID)
	}

	return post, nil
}

// GetByID returns the post with the given id. Returns ErrPostNotFound when absent.
func (s *PostsService) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	//nolint:wrapcheck // sentinel passes through for handler status mapping
	return s.repo.GetByID(ctx, id)
}
