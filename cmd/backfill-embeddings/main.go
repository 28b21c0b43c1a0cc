// backfill-embeddings enqueues River embedding jobs for users and posts that have
// non-empty text and no stored vector for the configured model. Run it one-off or
// scheduled; workers in the API process enqueue and run the jobs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"

	"github.com/devconnect/matchcore/internal/config"
	"github.com/devconnect/matchcore/internal/jobs"
	"github.com/devconnect/matchcore/internal/repository"
	"github.com/devconnect/matchcore/internal/service"
	"github.com/devconnect/matchcore/pkg/database"
)

const (
	exitSuccess = 0
	exitFailure = 1
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env for consistency with the main API server (godotenv.Load() there).
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		slog.Error("DATABASE_URL is required")

		return exitFailure
	}

	model := os.Getenv("EMBEDDING_MODEL")
	if model == "" {
		model = config.DefaultEmbeddingModel
	}

	maxAttempts := getEnvAsInt("EMBEDDING_MAX_ATTEMPTS", config.DefaultEmbeddingAttempts)
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultEmbeddingAttempts
	}

	ctx := context.Background()

	db, err := database.NewPostgresPool(ctx, databaseURL, database.WithAfterConnect(pgxvec.RegisterTypes))
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)

		return exitFailure
	}
	defer db.Close()

	riverClient, err := newInsertOnlyClient(db)
	if err != nil {
		slog.Error("Failed to create River client", "error", err)

		return exitFailure
	}

	stats, err := jobs.Backfill(ctx, jobs.BackfillParams{
		Users:       repository.NewUsersRepository(db),
		Posts:       repository.NewPostsRepository(db),
		Inserter:    riverClient,
		Model:       model,
		Queue:       service.EmbeddingsQueueName,
		MaxAttempts: maxAttempts,
	})
	if err != nil {
		slog.Error("Backfill failed", "error", err)

		return exitFailure
	}

	fmt.Printf("Enqueued %d user field(s) and %d post(s); %d error(s).\n",
		stats.UserFieldsEnqueued, stats.PostsEnqueued, stats.Errors)

	return exitSuccess
}

// newInsertOnlyClient builds a River client that only inserts jobs. River rejects
// configured queues without workers, so no queues are declared here; the API process
// owns the embeddings queue and runs the jobs.
func newInsertOnlyClient(db *pgxpool.Pool) (*river.Client[pgx.Tx], error) {
	client, err := river.NewClient(riverpgxv5.New(db), &river.Config{})
	if err != nil {
		return nil, fmt.Errorf("create river client: %w", err)
	}

	return client, nil
}

func getEnvAsInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}

	return n
}
