package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/observability"
	"github.com/devconnect/matchcore/internal/repository"
	vecmath "github.com/devconnect/matchcore/pkg/embeddings"
)

// Sentinel errors for ranking queries (used by handlers for status mapping).
var (
	ErrPostNotFound = repository.ErrPostNotFound
	ErrUserNotFound = repository.ErrUserNotFound

	// ErrNoSourceEmbedding is returned by RelatedPosts when the source post has no
	// embeddable content; no ranking is possible without a source vector.
	ErrNoSourceEmbedding = errors.New("source post has no embeddable content")
)

// defaultMatchScore and defaultMatchReason are the floor every candidate receives when
// neither scoring path produced a result; a candidate is never dropped or left unscored.
const (
	defaultMatchScore  = 0.1
	defaultMatchReason = "new user or incomplete profile"
)

// PostsRepositoryForRanking provides the post reads the engine needs.
type PostsRepositoryForRanking interface {
	GetByID(ctx context.Context, id int64) (*models.Post, error)
	ListCandidates(ctx context.Context, excludeID int64, model string) ([]models.PostCandidate, error)
}

// UsersRepositoryForRanking provides the user reads the engine needs.
type UsersRepositoryForRanking interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	ListCandidates(ctx context.Context, excludeID int64, model string) ([]models.UserCandidate, error)
}

// RankingService produces a total ordering over a candidate pool for a source entity,
// combining embedding similarity with the keyword fallback. Within one invocation
// results are a deterministic function of the inputs; ties keep candidate input order
// (stable sort, no secondary key — an open tie-break policy carried as-is).
type RankingService struct {
	postsRepo       PostsRepositoryForRanking
	usersRepo       UsersRepositoryForRanking
	store           *EmbeddingStore
	embeddingScorer EmbeddingScorer
	heuristic       HeuristicScorer
	lowConfidence   float64
	resultCap       int
	metrics         observability.RankingMetrics
	logger          *slog.Logger
}

// RankingServiceParams configures RankingService. Metrics may be nil (disabled).
type RankingServiceParams struct {
	PostsRepo      PostsRepositoryForRanking
	UsersRepo      UsersRepositoryForRanking
	Store          *EmbeddingStore
	WeightWant     float64
	WeightTheyWant float64
	LowConfidence  float64
	ResultCap      int
	Metrics        observability.RankingMetrics
	Logger         *slog.Logger
}

// NewRankingService creates a RankingService.
func NewRankingService(p RankingServiceParams) *RankingService {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RankingService{
		postsRepo: p.PostsRepo,
		usersRepo: p.UsersRepo,
		store:     p.Store,
		embeddingScorer: EmbeddingScorer{
			WeightWant:     p.WeightWant,
			WeightTheyWant: p.WeightTheyWant,
		},
		heuristic:     HeuristicScorer{},
		lowConfidence: p.LowConfidence,
		resultCap:     p.ResultCap,
		metrics:       p.Metrics,
		logger:        logger,
	}
}

// RelatedPosts returns every other post ranked by cosine similarity to the source
// post's embedding, descending. Candidates without a usable embedding score 0 and stay
// in the list. minScore filters the result (0 admits everything); limit caps the list
// length (0 means no per-call cap). The source embedding is generated synchronously
// when missing; a provider failure there fails the whole query, since post ranking is
// impossible without a source vector.
func (s *RankingService) RelatedPosts(
	ctx context.Context, postID int64, limit int, minScore float64,
) ([]models.RelatedPost, error) {
	start := time.Now()

	post, err := s.postsRepo.GetByID(ctx, postID)
	if err != nil {
		s.recordQuery(ctx, "post", "error", start)

		//nolint:wrapcheck // ErrPostNotFound passes through so the handler can map to 404
		return nil, err
	}

	sourceVec, err := s.store.GetOrCreatePostEmbedding(ctx, post.ID, post.Content)
	if err != nil {
		s.logger.Error("related posts: source embedding failed", "post_id", postID, "error", err)
		s.recordQuery(ctx, "post", "error", start)

		return nil, fmt.Errorf("source embedding: %w", err)
	}

	if len(sourceVec) == 0 {
		s.recordQuery(ctx, "post", "error", start)

		return nil, ErrNoSourceEmbedding
	}

	candidates, err := s.postsRepo.ListCandidates(ctx, post.ID, s.store.Model())
	if err != nil {
		s.recordQuery(ctx, "post", "error", start)

		return nil, fmt.Errorf("list post candidates: %w", err)
	}

	results := make([]models.RelatedPost, 0, len(candidates))

	for _, c := range candidates {
		score := 0.0

		switch {
		case len(c.Vector) == 0:
			// No stored embedding; the candidate stays in the list at score 0.
		case len(c.Vector) != len(sourceVec):
			s.logMalformedVector(ctx, "post", c.Post.ID, len(c.Vector), len(sourceVec))
		default:
			score = clampScore(vecmath.CosineSimilarity(sourceVec, c.Vector))
		}

		results = append(results, models.RelatedPost{
			Post:       c.Post,
			Score:      score,
			MatchLabel: MatchLabel(score),
		})
	}

	sortRelatedPosts(results)
	results = assembleRelatedPosts(results, post.ID, minScore, s.cap(limit))

	s.recordQuery(ctx, "post", "success", start)

	return results, nil
}

// UserMatches returns every other user ranked by combined directional similarity to
// the viewer, descending, with human-readable reasons. Candidates without embeddings
// are scored by the keyword fallback; every candidate gets a score in [0,1] and a
// non-empty reason. A per-candidate scoring problem degrades that candidate only.
func (s *RankingService) UserMatches(ctx context.Context, viewerID int64, limit int) ([]models.UserMatch, error) {
	start := time.Now()

	viewer, err := s.usersRepo.GetByID(ctx, viewerID)
	if err != nil {
		s.recordQuery(ctx, "user", "error", start)

		//nolint:wrapcheck // ErrUserNotFound passes through so the handler can map to 404
		return nil, err
	}

	viewerVecs := s.viewerVectors(ctx, viewer)

	candidates, err := s.usersRepo.ListCandidates(ctx, viewer.ID, s.store.Model())
	if err != nil {
		s.recordQuery(ctx, "user", "error", start)

		return nil, fmt.Errorf("list user candidates: %w", err)
	}

	results := make([]models.UserMatch, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, s.scoreUserPair(ctx, viewer, viewerVecs, c))
	}

	sortUserMatches(results)
	results = assembleUserMatches(results, viewer.ID, s.cap(limit))

	s.recordQuery(ctx, "user", "success", start)

	return results, nil
}

// viewerVectors fetches (lazily generating when text exists) the viewer's embeddings.
// Generation failures are non-fatal here: user matching degrades to the fallback
// instead of erroring, unlike post mode.
func (s *RankingService) viewerVectors(ctx context.Context, viewer *models.User) UserVectors {
	bioVec, err := s.store.GetOrCreateUserEmbedding(ctx, viewer.ID, models.FieldBio, viewer.Bio)
	if err != nil {
		s.logger.Warn("user matches: viewer bio embedding unavailable", "user_id", viewer.ID, "error", err)
	}

	lookVec, err := s.store.GetOrCreateUserEmbedding(ctx, viewer.ID, models.FieldLookingFor, viewer.LookingFor)
	if err != nil {
		s.logger.Warn("user matches: viewer looking_for embedding unavailable", "user_id", viewer.ID, "error", err)
	}

	return UserVectors{Bio: bioVec, Looking: lookVec}
}

// scoreUserPair picks the embedding or heuristic strategy for one candidate:
// embeddings win when present and either confident (>= lowConfidence) or still at
// least as good as the fallback; otherwise the fallback's score and reasons are used.
func (s *RankingService) scoreUserPair(
	ctx context.Context, viewer *models.User, viewerVecs UserVectors, c models.UserCandidate,
) models.UserMatch {
	candVecs := UserVectors{
		Bio:     s.usableVector(ctx, c.User.ID, c.BioVector),
		Looking: s.usableVector(ctx, c.User.ID, c.LookingVector),
	}

	embScore, embOK := s.embeddingScorer.Score(viewerVecs, candVecs)
	heuScore := s.heuristic.Score(viewer.Bio, viewer.LookingFor, c.User.Bio, c.User.LookingFor)

	var (
		score          float64
		reasons        []string
		usedEmbeddings bool
	)

	switch {
	case embOK && (embScore.Score >= s.lowConfidence || embScore.Score >= heuScore.Score):
		score, reasons, usedEmbeddings = embScore.Score, embScore.Reasons, true
	case heuScore.Score > 0:
		score, reasons = heuScore.Score, heuScore.Reasons

		if s.metrics != nil {
			s.metrics.RecordFallbackUsed(ctx)
		}
	}

	// Both paths guarantee a result, but the contract is absolute: every candidate
	// gets a defined score and a non-empty reason.
	if len(reasons) == 0 {
		score, reasons = defaultMatchScore, []string{defaultMatchReason}
	}

	return models.UserMatch{
		User:           c.User,
		Score:          clampScore(score),
		Reasons:        reasons,
		UsedEmbeddings: usedEmbeddings,
	}
}

// usableVector validates a stored candidate vector against the provider's dimension.
// A wrong-length vector is treated as absent (score falls back), logged for operator
// visibility, never surfaced to the caller.
func (s *RankingService) usableVector(ctx context.Context, userID int64, vec []float32) []float32 {
	if len(vec) == 0 {
		return nil
	}

	if dims := s.store.Dimensions(); dims > 0 && len(vec) != dims {
		s.logMalformedVector(ctx, "user", userID, len(vec), dims)

		return nil
	}

	return vec
}

func (s *RankingService) logMalformedVector(ctx context.Context, entityType string, id int64, got, want int) {
	s.logger.Warn("stored embedding has wrong dimension; treating as absent",
		"entity_type", entityType, "entity_id", id, "got_len", got, "want_len", want)

	if s.metrics != nil {
		s.metrics.RecordMalformedVector(ctx, entityType)
	}
}

func (s *RankingService) cap(limit int) int {
	if s.resultCap > 0 && (limit <= 0 || limit > s.resultCap) {
		return s.resultCap
	}

	return limit
}

func (s *RankingService) recordQuery(ctx context.Context, mode, outcome string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRankingQuery(ctx, mode, outcome, time.Since(start))
	}
}
