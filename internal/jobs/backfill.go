// Package jobs provides the embedding backfill and River error handling.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/devconnect/matchcore/internal/repository"
	"github.com/devconnect/matchcore/internal/service"
)

// BackfillStats holds statistics from a backfill run.
type BackfillStats struct {
	UserFieldsEnqueued int
	PostsEnqueued      int
	Errors             int
}

// missingUserEmbeddings lists user text fields without a stored embedding.
type missingUserEmbeddings interface {
	ListMissingEmbeddings(ctx context.Context, model string) ([]repository.MissingUserEmbedding, error)
}

// missingPostEmbeddings lists posts without a stored embedding.
type missingPostEmbeddings interface {
	ListMissingEmbeddings(ctx context.Context, model string) ([]repository.MissingPostEmbedding, error)
}

// BackfillParams configures a backfill run.
type BackfillParams struct {
	Users       missingUserEmbeddings
	Posts       missingPostEmbeddings
	Inserter    service.EntityEmbeddingInserter
	Model       string
	Queue       string
	MaxAttempts int
	Logger      *slog.Logger
}

// Backfill enqueues one embedding job per user field and per post that has non-empty
// text but no stored vector for the model. Writers enqueue on every text change, so
// this only catches entities that predate the pipeline or whose enqueue was lost.
func Backfill(ctx context.Context, p BackfillParams) (*BackfillStats, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stats := &BackfillStats{}

	users, err := p.Users.ListMissingEmbeddings(ctx, p.Model)
	if err != nil {
		return nil, fmt.Errorf("list users missing embeddings: %w", err)
	}

	for _, m := range users {
		args := service.EntityEmbeddingArgs{
			EntityType: service.EntityTypeUser,
			EntityID:   m.UserID,
			Field:      string(m.Field),
		}
		if err := insertJob(ctx, p, args); err != nil {
			logger.Error("backfill: enqueue user field failed",
				"user_id", m.UserID, "field", m.Field, "error", err)

			stats.Errors++

			continue
		}

		stats.UserFieldsEnqueued++
	}

	posts, err := p.Posts.ListMissingEmbeddings(ctx, p.Model)
	if err != nil {
		return stats, fmt.Errorf("list posts missing embeddings: %w", err)
	}

	for _, m := range posts {
		args := service.EntityEmbeddingArgs{
			EntityType: service.EntityTypePost,
			EntityID:   m.PostID,
		}
		if err := insertJob(ctx, p, args); err != nil {
			logger.Error("backfill: enqueue post failed", "post_id", m.PostID, "error", err)

			stats.Errors++

			continue
		}

		stats.PostsEnqueued++
	}

	logger.Info("backfill: done",
		"user_fields_enqueued", stats.UserFieldsEnqueued,
		"posts_enqueued", stats.PostsEnqueued,
		"errors", stats.Errors,
	)

	return stats, nil
}

// insertJob enqueues one job with the same uniqueness policy as the write-path
// provider, so a backfill run never duplicates a pending job.
func insertJob(ctx context.Context, p BackfillParams, args service.EntityEmbeddingArgs) error {
	_, err := p.Inserter.Insert(ctx, args, &river.InsertOpts{
		Queue:       p.Queue,
		MaxAttempts: p.MaxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true},
	})
	if err != nil {
		return fmt.Errorf("insert embedding job: %w", err)
	}

	return nil
}
