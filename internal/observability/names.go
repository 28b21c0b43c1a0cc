// Package observability provides OpenTelemetry metrics (Prometheus exporter) and
// logging helpers for the matching API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameRequestCount            = "http.server.request_count"
	MetricNameRequestDuration         = "http.server.duration"
	MetricNameRequestBodyTooLarge     = "matchcore_request_body_too_large_total"
	MetricNameRankingQueries          = "matchcore_ranking_queries_total"
	MetricNameRankingDuration         = "matchcore_ranking_duration_seconds"
	MetricNameRankingFallback         = "matchcore_ranking_fallback_total"
	MetricNameMalformedVectors        = "matchcore_malformed_vectors_total"
	MetricNameEmbeddingJobsEnqueued   = "matchcore_embedding_jobs_enqueued_total"
	MetricNameEmbeddingProviderErrors = "matchcore_embedding_provider_errors_total"
	MetricNameEmbeddingOutcomes       = "matchcore_embedding_outcomes_total"
	MetricNameEmbeddingWorkerErrors   = "matchcore_embedding_worker_errors_total"
	MetricNameEmbeddingDuration       = "matchcore_embedding_duration_seconds"
	MetricNameCacheHits               = "matchcore_cache_hits_total"
	MetricNameCacheMisses             = "matchcore_cache_misses_total"
)

// Attribute keys.
const (
	AttrMode       = "mode"
	AttrOutcome    = "outcome"
	AttrReason     = "reason"
	AttrStatus     = "status"
	AttrEntityType = "entity_type"
)

// AllowedRankingModes for matchcore_ranking_queries_total and matchcore_ranking_duration_seconds.
var AllowedRankingModes = map[string]bool{
	"post": true,
	"user": true,
}

// AllowedRankingOutcomes for matchcore_ranking_queries_total.
var AllowedRankingOutcomes = map[string]bool{
	"success": true,
	"error":   true,
}

// AllowedEntityTypes for matchcore_malformed_vectors_total.
var AllowedEntityTypes = map[string]bool{
	"user": true,
	"post": true,
}

// AllowedEmbeddingProviderReason for matchcore_embedding_provider_errors_total.
var AllowedEmbeddingProviderReason = map[string]bool{
	"enqueue_failed": true,
}

// AllowedEmbeddingWorkerReason for matchcore_embedding_worker_errors_total.
var AllowedEmbeddingWorkerReason = map[string]bool{
	"load_entity_failed": true,
	"refresh_failed":     true,
	"unknown_entity":     true,
}

// allowedEmbeddingOutcomeStatus for matchcore_embedding_outcomes_total and
// matchcore_embedding_duration_seconds.
var allowedEmbeddingOutcomeStatus = map[string]bool{
	"success": true,
	"cleared": true,
	"retry":   true,
	"failed":  true,
}

// AllowedEmbeddingOutcomeStatus reports whether status is a known embedding job outcome.
func AllowedEmbeddingOutcomeStatus(status string) bool {
	return allowedEmbeddingOutcomeStatus[status]
}

// allowedCacheNames for matchcore_cache_hits_total / matchcore_cache_misses_total.
var allowedCacheNames = map[string]bool{
	"source_embedding": true,
}

// NormalizeCacheName returns name if allowed, otherwise "other".
func NormalizeCacheName(name string) string {
	if allowedCacheNames[name] {
		return name
	}

	return "other"
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}
