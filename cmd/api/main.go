package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/devconnect/matchcore/internal/api/handlers"
	"github.com/devconnect/matchcore/internal/api/middleware"
	"github.com/devconnect/matchcore/internal/config"
	"github.com/devconnect/matchcore/internal/embeddings"
	"github.com/devconnect/matchcore/internal/jobs"
	"github.com/devconnect/matchcore/internal/observability"
	"github.com/devconnect/matchcore/internal/repository"
	"github.com/devconnect/matchcore/internal/service"
	"github.com/devconnect/matchcore/internal/workers"
	"github.com/devconnect/matchcore/pkg/cache"
	"github.com/devconnect/matchcore/pkg/database"
)

const (
	sourceCacheEntries  = 1024
	maxRequestBodyBytes = 1 << 20 // 1 MiB
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogging(cfg.LogLevel)

	// Metrics: Prometheus pull via /metrics.
	meterProvider, metricsHandler, meter, err := observability.NewMeterProvider(ctx, observability.MeterProviderConfig{})
	if err != nil {
		slog.Error("Failed to create meter provider", "error", err)
		os.Exit(1)
	}

	apiMetrics, rankingMetrics, embeddingMetrics, cacheMetrics, err := buildMetrics(meter)
	if err != nil {
		slog.Error("Failed to create metrics instruments", "error", err)
		os.Exit(1)
	}

	// pgvector types must be registered on every pooled connection.
	db, err := database.NewPostgresPool(ctx, cfg.DatabaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var embeddingClient embeddings.Client
	if cfg.OpenAIAPIKey != "" {
		embeddingClient = embeddings.NewOpenAIClient(cfg.OpenAIAPIKey,
			embeddings.WithModel(cfg.EmbeddingModel),
			embeddings.WithDimensions(cfg.EmbeddingDimensions),
		)
		slog.Info("Embeddings enabled", "model", cfg.EmbeddingModel, "dimensions", cfg.EmbeddingDimensions)
	} else {
		slog.Info("Embeddings disabled (OPENAI_API_KEY not set); matching uses the keyword fallback")
	}

	usersRepo := repository.NewUsersRepository(db)
	postsRepo := repository.NewPostsRepository(db)
	embeddingsRepo := repository.NewEmbeddingsRepository(db)

	sourceCache, err := cache.NewLoaderCache[string, []float32](sourceCacheEntries, func(k string) string { return k })
	if err != nil {
		slog.Error("Failed to create source embedding cache", "error", err)
		os.Exit(1)
	}

	store := service.NewEmbeddingStore(service.EmbeddingStoreParams{
		Client:       embeddingClient,
		Repo:         embeddingsRepo,
		Model:        cfg.EmbeddingModel,
		SourceCache:  sourceCache,
		CacheMetrics: cacheMetrics,
	})

	// River processes embedding regeneration jobs; without a provider there is
	// nothing to run, so the queue stays down and writes skip enqueueing.
	var riverClient *river.Client[pgx.Tx]

	var provider *service.EmbeddingProvider

	if embeddingClient != nil {
		riverClient, err = initRiver(ctx, cfg, db, usersRepo, postsRepo, store, embeddingMetrics)
		if err != nil {
			slog.Error("Failed to initialize River job queue", "error", err)
			os.Exit(1)
		}

		provider = service.NewEmbeddingProvider(
			riverClient, service.EmbeddingsQueueName, cfg.EmbeddingMaxAttempts, embeddingMetrics, nil)
	}

	rankingService := service.NewRankingService(service.RankingServiceParams{
		PostsRepo:      postsRepo,
		UsersRepo:      usersRepo,
		Store:          store,
		WeightWant:     cfg.MatchWeightWant,
		WeightTheyWant: cfg.MatchWeightTheyWant,
		LowConfidence:  cfg.MatchLowConfidence,
		ResultCap:      cfg.ResultCap,
		Metrics:        rankingMetrics,
	})
	postsService := service.NewPostsService(postsRepo, provider, nil)
	usersService := service.NewUsersService(usersRepo, provider, nil)

	postsHandler := handlers.NewPostsHandler(postsService, rankingService, cfg.RelatedMinScore)
	usersHandler := handlers.NewUsersHandler(usersService, rankingService)
	healthHandler := handlers.NewHealthHandler(db)

	// Public endpoints (no authentication).
	publicMux := http.NewServeMux()
	publicMux.HandleFunc("GET /health", healthHandler.Check)
	publicMux.Handle("GET /metrics", metricsHandler)

	// Protected endpoints (bearer API key).
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /v1/posts", postsHandler.Create)
	protectedMux.HandleFunc("GET /v1/posts/{id}", postsHandler.Get)
	protectedMux.HandleFunc("GET /v1/posts/{id}/related", postsHandler.Related)
	protectedMux.HandleFunc("GET /v1/users/{id}", usersHandler.Get)
	protectedMux.HandleFunc("PUT /v1/users/{id}/profile", usersHandler.UpdateProfile)
	protectedMux.HandleFunc("GET /v1/users/{id}/matches", usersHandler.Matches)

	var protectedHandler http.Handler = protectedMux
	protectedHandler = middleware.MaxBody(maxRequestBodyBytes, apiMetrics)(protectedHandler)
	protectedHandler = middleware.Auth(cfg.APIKey)(protectedHandler)

	mainMux := http.NewServeMux()
	mainMux.Handle("/v1/", protectedHandler)
	mainMux.Handle("/", publicMux)

	// Metrics outermost so duration covers the whole chain; RequestID inside it so
	// every log line (and problem response) carries the id.
	handler := middleware.Metrics(apiMetrics)(middleware.RequestID(mainMux))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Stop accepting new HTTP requests.
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	// 2. Stop River (waits for in-flight jobs to complete).
	if riverClient != nil {
		slog.Info("Stopping River job queue...")

		if err := riverClient.Stop(shutdownCtx); err != nil {
			slog.Error("River forced to shutdown", "error", err)
		}

		slog.Info("River job queue stopped")
	}

	// 3. Flush metrics.
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		slog.Error("Meter provider shutdown failed", "error", err)
	}

	slog.Info("Server exited")
}

// setupLogging configures slog with the specified log level. The trace context
// handler adds request_id (and trace/span ids when tracing is wired) to every record.
func setupLogging(level string) {
	var logLevel slog.Level

	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	inner := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(observability.NewTraceContextHandler(inner)))
}

func buildMetrics(meter metric.Meter) (
	observability.APIMetrics,
	observability.RankingMetrics,
	observability.EmbeddingMetrics,
	observability.CacheMetrics,
	error,
) {
	apiMetrics, err := observability.NewAPIMetrics(meter)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	rankingMetrics, err := observability.NewRankingMetrics(meter)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	embeddingMetrics, err := observability.NewEmbeddingMetrics(meter)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cacheMetrics, err := observability.NewCacheMetrics(meter)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	return apiMetrics, rankingMetrics, embeddingMetrics, cacheMetrics, nil
}

const embeddingQueueWorkers = 4

// initRiver registers the embedding worker and starts the queue.
func initRiver(
	ctx context.Context,
	cfg *config.Config,
	db *pgxpool.Pool,
	usersRepo *repository.UsersRepository,
	postsRepo *repository.PostsRepository,
	store *service.EmbeddingStore,
	metrics observability.EmbeddingMetrics,
) (*river.Client[pgx.Tx], error) {
	// One limiter shared by all job slots caps provider QPS.
	limiter := rate.NewLimiter(rate.Limit(cfg.EmbeddingRateLimit), 1)

	riverWorkers := river.NewWorkers()
	river.AddWorker(riverWorkers, workers.NewEntityEmbeddingWorker(usersRepo, postsRepo, store, limiter, metrics))

	riverClient, err := river.NewClient(riverpgxv5.New(db), &river.Config{
		Queues: map[string]river.QueueConfig{
			service.EmbeddingsQueueName: {MaxWorkers: embeddingQueueWorkers},
		},
		Workers:      riverWorkers,
		ErrorHandler: &jobs.ErrorHandler{},
		MaxAttempts:  cfg.EmbeddingMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("start river client: %w", err)
	}

	slog.Info("River job queue started",
		"queue", service.EmbeddingsQueueName,
		"workers", embeddingQueueWorkers,
		"max_attempts", cfg.EmbeddingMaxAttempts,
		"rate_limit", cfg.EmbeddingRateLimit,
	)

	return riverClient, nil
}
