// Package workers provides River job workers (e.g. entity embedding generation).
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/riverqueue/river"
	"golang.org/x/time/rate"

	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/observability"
	"github.com/devconnect/matchcore/internal/service"
)

// EntityEmbeddingWorker regenerates the stored embedding for one entity text field.
// It re-reads the current text at run time, so the vector always reflects the latest
// committed write regardless of how many edits collapsed into this job.
type EntityEmbeddingWorker struct {
	river.WorkerDefaults[service.EntityEmbeddingArgs]

	users   userTextSource
	posts   postTextSource
	store   embeddingRefresher
	limiter *rate.Limiter
	metrics observability.EmbeddingMetrics
}

// userTextSource is the minimal user lookup the worker needs.
type userTextSource interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// postTextSource is the minimal post lookup the worker needs.
type postTextSource interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
}

// embeddingRefresher regenerates or clears the stored vector for an entity field.
type embeddingRefresher interface {
	RefreshUserEmbedding(ctx context.Context, userID int64, field models.EmbeddingField, text string) error
	RefreshPostEmbedding(ctx context.Context, postID int64, content string) error
}

// NewEntityEmbeddingWorker creates a worker that loads the entity's current text and
// refreshes its embedding. limiter throttles provider calls across all job slots;
// limiter and metrics may be nil.
func NewEntityEmbeddingWorker(
	users userTextSource,
	posts postTextSource,
	store embeddingRefresher,
	limiter *rate.Limiter,
	metrics observability.EmbeddingMetrics,
) *EntityEmbeddingWorker {
	return &EntityEmbeddingWorker{
		users:   users,
		posts:   posts,
		store:   store,
		limiter: limiter,
		metrics: metrics,
	}
}

const entityEmbeddingTimeout = 30 * time.Second

// Timeout limits how long a single embedding job can run.
func (w *EntityEmbeddingWorker) Timeout(*river.Job[service.EntityEmbeddingArgs]) time.Duration {
	return entityEmbeddingTimeout
}

// Work loads the entity, waits for rate-limit headroom, and refreshes the embedding.
func (w *EntityEmbeddingWorker) Work(ctx context.Context, job *river.Job[service.EntityEmbeddingArgs]) error {
	args := job.Args
	start := time.Now()

	text, empty, err := w.loadText(ctx, args)
	if err != nil {
		return w.handleLoadError(ctx, job, err, start)
	}

	if !empty && w.limiter != nil {
		if err := w.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	if err := w.refresh(ctx, args, text); err != nil {
		isLastAttempt := job.Attempt >= job.MaxAttempts

		if w.metrics != nil {
			w.metrics.RecordWorkerError(ctx, "refresh_failed")

			if isLastAttempt {
				w.metrics.RecordEmbeddingOutcome(ctx, "failed")
				w.metrics.RecordEmbeddingDuration(ctx, time.Since(start), "failed")
			} else {
				w.metrics.RecordEmbeddingOutcome(ctx, "retry")
				w.metrics.RecordEmbeddingDuration(ctx, time.Since(start), "retry")
			}
		}

		if isLastAttempt {
			slog.Error("embedding: refresh failed (final attempt)",
				"entity_type", args.EntityType,
				"entity_id", args.EntityID,
				"field", args.Field,
				"error", err,
			)

			return nil
		}

		return fmt.Errorf("refresh embedding: %w", err)
	}

	status := "success"
	if empty {
		status = "cleared"
	}

	slog.Info("embedding: refreshed",
		"entity_type", args.EntityType,
		"entity_id", args.EntityID,
		"field", args.Field,
		"status", status,
	)

	if w.metrics != nil {
		w.metrics.RecordEmbeddingOutcome(ctx, status)
		w.metrics.RecordEmbeddingDuration(ctx, time.Since(start), status)
	}

	return nil
}

var errUnknownEntity = errors.New("unknown entity type or field")

// handleLoadError decides whether a loadText failure is worth retrying. A vanished
// entity or a malformed payload is discarded; anything else is treated as transient
// (a failed DB read must not orphan a stale vector) and retried until the attempts
// run out.
func (w *EntityEmbeddingWorker) handleLoadError(
	ctx context.Context, job *river.Job[service.EntityEmbeddingArgs], err error, start time.Time,
) error {
	args := job.Args

	discard := errors.Is(err, errUnknownEntity) ||
		errors.Is(err, service.ErrUserNotFound) ||
		errors.Is(err, service.ErrPostNotFound)
	isLastAttempt := job.Attempt >= job.MaxAttempts

	if w.metrics != nil {
		reason := "load_entity_failed"
		if errors.Is(err, errUnknownEntity) {
			reason = "unknown_entity"
		}

		w.metrics.RecordWorkerError(ctx, reason)

		outcome := "retry"
		if discard || isLastAttempt {
			outcome = "failed"
		}

		w.metrics.RecordEmbeddingOutcome(ctx, outcome)
		w.metrics.RecordEmbeddingDuration(ctx, time.Since(start), outcome)
	}

	if discard {
		slog.Error("embedding: load entity failed",
			"entity_type", args.EntityType,
			"entity_id", args.EntityID,
			"field", args.Field,
			"error", err,
		)

		return nil // entity gone or payload malformed: retrying cannot help
	}

	if isLastAttempt {
		slog.Error("embedding: load entity failed (final attempt)",
			"entity_type", args.EntityType,
			"entity_id", args.EntityID,
			"field", args.Field,
			"error", err,
		)

		return nil
	}

	return fmt.Errorf("load entity: %w", err)
}

// loadText resolves the current text for the job's entity field. empty reports whether
// the refresh will clear the stored vector rather than regenerate it.
func (w *EntityEmbeddingWorker) loadText(ctx context.Context, args service.EntityEmbeddingArgs) (string, bool, error) {
	switch args.EntityType {
	case service.EntityTypeUser:
		user, err := w.users.GetByID(ctx, args.EntityID)
		if err != nil {
			return "", false, fmt.Errorf("get user %d: %w", args.EntityID, err)
		}

		switch models.EmbeddingField(args.Field) {
		case models.FieldBio:
			return user.Bio, strings.TrimSpace(user.Bio) == "", nil
		case models.FieldLookingFor:
			return user.LookingFor, strings.TrimSpace(user.LookingFor) == "", nil
		default:
			return "", false, fmt.Errorf("%w: user field %q", errUnknownEntity, args.Field)
		}
	case service.EntityTypePost:
		post, err := w.posts.GetByID(ctx, args.EntityID)
		if err != nil {
			return "", false, fmt.Errorf("get post %d: %w", args.EntityID, err)
		}

		return post.Content, strings.TrimSpace(post.Content) == "", nil
	default:
		return "", false, fmt.Errorf("%w: %q", errUnknownEntity, args.EntityType)
	}
}

func (w *EntityEmbeddingWorker) refresh(ctx context.Context, args service.EntityEmbeddingArgs, text string) error {
	if args.EntityType == service.EntityTypeUser {
		//nolint:wrapcheck // wrapped by the caller with job context
		return w.store.RefreshUserEmbedding(ctx, args.EntityID, models.EmbeddingField(args.Field), text)
	}

	//nolint:wrapcheck // wrapped by the caller with job context
	return w.store.RefreshPostEmbedding(ctx, args.EntityID, text)
}
