// Package handlers provides the HTTP handlers for the matching API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/devconnect/matchcore/internal/api/response"
	"github.com/devconnect/matchcore/internal/api/validation"
	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/service"
)

// PostsService defines the post write/read operations the handler needs.
type PostsService interface {
	Create(ctx context.Context, userID int64, content string) (*models.Post, error)
	GetByID(ctx context.Context, id int64) (*models.Post, error)
}

// RelatedPostsService ranks other posts against a source post.
type RelatedPostsService interface {
	RelatedPosts(ctx context.Context, postID int64, limit int, minScore float64) ([]models.RelatedPost, error)
}

// PostsHandler handles HTTP requests for posts and related-post ranking.
type PostsHandler struct {
	posts           PostsService
	ranking         RelatedPostsService
	minScoreDefault float64
}

// NewPostsHandler creates a new posts handler. minScoreDefault applies when the
// request does not set minScore.
func NewPostsHandler(posts PostsService, ranking RelatedPostsService, minScoreDefault float64) *PostsHandler {
	return &PostsHandler{posts: posts, ranking: ranking, minScoreDefault: minScoreDefault}
}

// CreatePostRequest is the body for POST /v1/posts.
// API contract uses camelCase (userId).
type CreatePostRequest struct {
	UserID  int64  `json:"userId"  validate:"gt=0"` //nolint:tagliatelle // API contract
	Content string `json:"content" validate:"required,max=10000,no_null_bytes"`
}

// PostResponse is one post in API shape.
type PostResponse struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"` //nolint:tagliatelle // API contract
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"` //nolint:tagliatelle // API contract
}

// RelatedPostsResponse is the response for GET /v1/posts/{id}/related.
type RelatedPostsResponse struct {
	Results []RelatedPostItem `json:"results"`
}

// RelatedPostItem is one ranked post with its similarity score and label.
type RelatedPostItem struct {
	Post       PostResponse `json:"post"`
	Score      float64      `json:"score"`
	MatchLabel string       `json:"matchLabel"` //nolint:tagliatelle // API contract
}

// Create handles POST /v1/posts.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "POST required")

		return
	}

	var req CreatePostRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		response.RespondBadRequest(w, "Invalid request body")

		return
	}

	if err := validation.ValidateStruct(req); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	post, err := h.posts.Create(r.Context(), req.UserID, req.Content)
	if err != nil {
		if errors.Is(err, service.ErrEmptyContent) {
			response.RespondUnprocessableEntity(w, "content is required and must be non-empty")

			return
		}

		response.RespondInternalServerError(w, "Failed to create post")

		return
	}

	response.RespondJSON(w, http.StatusCreated, toPostResponse(post))
}

// Get handles GET /v1/posts/{id}.
func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "GET required")

		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	post, err := h.posts.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPostNotFound) {
			response.RespondNotFound(w, "Post not found")

			return
		}

		response.RespondInternalServerError(w, "Failed to get post")

		return
	}

	response.RespondJSON(w, http.StatusOK, toPostResponse(post))
}

// Related handles GET /v1/posts/{id}/related.
func (h *PostsHandler) Related(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "GET required")

		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var q RankingQuery
	if err := validation.ValidateAndDecodeQueryParams(r, &q); err != nil {
		validation.RespondValidationError(w, err)

		return
	}

	minScore := q.MinScore
	if minScore == 0 {
		minScore = h.minScoreDefault
	}

	results, err := h.ranking.RelatedPosts(r.Context(), id, q.Limit(), minScore)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPostNotFound):
			response.RespondNotFound(w, "Post not found")
		case errors.Is(err, service.ErrNoSourceEmbedding):
			response.RespondUnprocessableEntity(w, "Post has no embeddable content")
		default:
			response.RespondInternalServerError(w, "Related posts query failed")
		}

		return
	}

	items := make([]RelatedPostItem, len(results))
	for i := range results {
		items[i] = RelatedPostItem{
			Post:       toPostResponse(&results[i].Post),
			Score:      results[i].Score,
			MatchLabel: results[i].MatchLabel,
		}
	}

	response.RespondJSON(w, http.StatusOK, RelatedPostsResponse{Results: items})
}

func toPostResponse(p *models.Post) PostResponse {
	return PostResponse{
		ID:        p.ID,
		UserID:    p.UserID,
		Content:   p.Content,
		CreatedAt: p.CreatedAt,
	}
}

// parseID reads the {id} path segment as a positive int64, responding 400 on failure.
func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		response.RespondBadRequest(w, "ID is required")

		return 0, false
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		response.RespondBadRequest(w, "Invalid ID")

		return 0, false
	}

	return id, true
}

// RankingQuery holds the common query parameters of the two ranking endpoints.
// topK 0 (absent) means no per-request cap; minScore 0 admits everything.
type RankingQuery struct {
	TopK     int     `form:"topK"     validate:"gte=0,lte=100"`
	MinScore float64 `form:"minScore" validate:"gte=0,lte=1"`
}

// Limit returns the per-request result cap. 0 leaves the list uncapped here; the
// server-wide result cap configured on the ranking engine still applies.
func (q RankingQuery) Limit() int {
	return q.TopK
}
