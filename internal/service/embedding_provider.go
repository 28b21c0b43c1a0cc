package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/riverqueue/river"

	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/observability"
)

// uniqueByPeriodEmbedding collapses duplicate embedding jobs for the same entity/field
// enqueued within the window (e.g. a user saving their profile repeatedly).
const uniqueByPeriodEmbedding = time.Minute

// EmbeddingProvider enqueues one River job per entity text-field write so the worker
// regenerates (or clears) the stored embedding. Enqueue failures are logged and
// counted but never propagate: the primary write has already committed and the
// embedding stays absent until retried (backfill catches stragglers).
type EmbeddingProvider struct {
	inserter    EntityEmbeddingInserter
	queueName   string
	maxAttempts int
	metrics     observability.EmbeddingMetrics
	logger      *slog.Logger
}

// NewEmbeddingProvider creates a provider that enqueues entity_embedding jobs.
// metrics may be nil when metrics are disabled.
func NewEmbeddingProvider(
	inserter EntityEmbeddingInserter,
	queueName string,
	maxAttempts int,
	metrics observability.EmbeddingMetrics,
	logger *slog.Logger,
) *EmbeddingProvider {
	if logger == nil {
		logger = slog.Default()
	}

	return &EmbeddingProvider{
		inserter:    inserter,
		queueName:   queueName,
		maxAttempts: maxAttempts,
		metrics:     metrics,
		logger:      logger,
	}
}

// EnqueueUserEmbedding enqueues a job regenerating the embedding for one user field.
// Enqueue even when the field is now empty, so the worker clears the stale record.
func (p *EmbeddingProvider) EnqueueUserEmbedding(ctx context.Context, userID int64, field models.EmbeddingField) {
	p.enqueue(ctx, EntityEmbeddingArgs{
		EntityType: EntityTypeUser,
		EntityID:   userID,
		Field:      string(field),
	})
}

// EnqueuePostEmbedding enqueues a job generating the embedding for a post's content.
func (p *EmbeddingProvider) EnqueuePostEmbedding(ctx context.Context, postID int64) {
	p.enqueue(ctx, EntityEmbeddingArgs{
		EntityType: EntityTypePost,
		EntityID:   postID,
	})
}

func (p *EmbeddingProvider) enqueue(ctx context.Context, args EntityEmbeddingArgs) {
	if p.inserter == nil {
		return
	}

	opts := &river.InsertOpts{
		Queue:       p.queueName,
		MaxAttempts: p.maxAttempts,
		UniqueOpts:  river.UniqueOpts{ByArgs: true, ByPeriod: uniqueByPeriodEmbedding},
	}

	_, err := p.inserter.Insert(ctx, args, opts)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordProviderError(ctx, "enqueue_failed")
		}

		p.logger.Error("embedding: enqueue failed",
			"entity_type", args.EntityType,
			"entity_id", args.EntityID,
			"field", args.Field,
			"error", err,
		)

		return
	}

	p.logger.Info("embedding: job enqueued",
		"entity_type", args.EntityType,
		"entity_id", args.EntityID,
		"field", args.Field,
	)

	if p.metrics != nil {
		p.metrics.RecordJobsEnqueued(ctx, 1)
	}
}
