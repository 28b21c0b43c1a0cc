package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RankingMetrics records ranking query metrics (related posts, user matches).
type RankingMetrics interface {
	RecordRankingQuery(ctx context.Context, mode, outcome string, duration time.Duration)
	RecordFallbackUsed(ctx context.Context)
	RecordMalformedVector(ctx context.Context, entityType string)
}

// rankingMetrics implements RankingMetrics.
type rankingMetrics struct {
	queries          metric.Int64Counter
	duration         metric.Float64Histogram
	fallbackUsed     metric.Int64Counter
	malformedVectors metric.Int64Counter
}

// NewRankingMetrics creates RankingMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewRankingMetrics(meter metric.Meter) (RankingMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	queries, err := meter.Int64Counter(
		MetricNameRankingQueries,
		metric.WithDescription("Total ranking queries by mode (post, user) and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ranking queries counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameRankingDuration,
		metric.WithDescription("Ranking query duration (seconds) by mode"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ranking duration histogram: %w", err)
	}

	fallbackUsed, err := meter.Int64Counter(
		MetricNameRankingFallback,
		metric.WithDescription("User match pairs scored by the keyword fallback instead of embeddings"),
	)
	if err != nil {
		return nil, fmt.Errorf("create ranking fallback counter: %w", err)
	}

	malformedVectors, err := meter.Int64Counter(
		MetricNameMalformedVectors,
		metric.WithDescription("Stored vectors skipped because their dimension did not match the model"),
	)
	if err != nil {
		return nil, fmt.Errorf("create malformed vectors counter: %w", err)
	}

	return &rankingMetrics{
		queries:          queries,
		duration:         duration,
		fallbackUsed:     fallbackUsed,
		malformedVectors: malformedVectors,
	}, nil
}

func (r *rankingMetrics) RecordRankingQuery(ctx context.Context, mode, outcome string, duration time.Duration) {
	mode = NormalizeReason(mode, AllowedRankingModes)
	outcome = NormalizeReason(outcome, AllowedRankingOutcomes)

	r.queries.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrMode, mode),
		attribute.String(AttrOutcome, outcome),
	))
	r.duration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(AttrMode, mode)))
}

func (r *rankingMetrics) RecordFallbackUsed(ctx context.Context) {
	r.fallbackUsed.Add(ctx, 1)
}

func (r *rankingMetrics) RecordMalformedVector(ctx context.Context, entityType string) {
	entityType = NormalizeReason(entityType, AllowedEntityTypes)
	r.malformedVectors.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrEntityType, entityType)))
}
