package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/devconnect/matchcore/internal/api/response"
	"github.com/devconnect/matchcore/internal/api/validation"
	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/service"
)

// UsersService defines the user profile operations the handler needs.
type UsersService interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	UpdateProfile(ctx context.Context, id int64, bio, lookingFor string) (*models.User, error)
}

// UserMatchesService ranks other users against a viewer.
type UserMatchesService interface {
	UserMatches(ctx context.Context, viewerID int64, limit int) ([]models.UserMatch, error)
}

// UsersHandler handles HTTP requests for user profiles and match ranking.
type UsersHandler struct {
	users   UsersService
	ranking UserMatchesService
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(users UsersService, ranking UserMatchesService) *UsersHandler {
	return &UsersHandler{users: users, ranking: ranking}
}

// UpdateProfileRequest is the body for PUT /v1/users/{id}/profile.
// API contract uses camelCase (lookingFor).
type UpdateProfileRequest struct {
	Bio        string `json:"bio"        validate:"max=5000,no_null_bytes"`
	LookingFor string `json:"lookingFor" validate:"max=5000,no_null_bytes"` //nolint:tagliatelle // API contract
}

// UserResponse is one user in API shape.
type UserResponse struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatarUrl"`  //nolint:tagliatelle // API contract
	Bio        string    `json:"bio"`
	LookingFor string    `json:"lookingFor"` //nolint:tagliatelle // API contract
	CreatedAt  time.Time `json:"createdAt"`  //nolint:tagliatelle // API contract
}

// UserMatchesResponse is the response for GET /v1/users/{id}/matches.
type UserMatchesResponse struct {
	Results []UserMatchItem `json:"results"`
}

// UserMatchItem is one ranked user with score, reasons, and whether embeddings drove the score.
type UserMatchItem struct {
	User           UserResponse `json:"user"`
	Score          float64      `json:"score"`
	Reasons        []string     `json:"reasons"`
	UsedEmbeddings bool         `json:"usedEmbeddings"` //nolint:tagliatelle // API contract
}

// Get handles GET /v1/users/{id}.
func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "GET required")

		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.RespondNotFound(w, "User not found")

			return
		}

		response.RespondInternalServerError(w, "Failed to get user")

		return
	}

	response.RespondJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateProfile handles PUT /v1/users/{id}/profile.
func (h *UsersHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		response.RespondError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "PUT required")

		return
	}

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req UpdateProfileRequest

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

	user, err := h.users.UpdateProfile(r.Context(), id, req.Bio, req.LookingFor)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.RespondNotFound(w, "User not found")

			return
		}

		response.RespondInternalServerError(w, "Failed to update profile")

		return
	}

	response.RespondJSON(w, http.StatusOK, toUserResponse(user))
}

// Matches handles GET /v1/users/{id}/matches.
func (h *UsersHandler) Matches(w http.ResponseWriter, r *http.Request) {
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

	results, err := h.ranking.UserMatches(r.Context(), id, q.Limit())
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			response.RespondNotFound(w, "User not found")

			return
		}

		response.RespondInternalServerError(w, "User matches query failed")

		return
	}

	items := make([]UserMatchItem, len(results))
	for i := range results {
		items[i] = UserMatchItem{
			User:           toUserResponse(&results[i].User),
			Score:          results[i].Score,
			Reasons:        results[i].Reasons,
			UsedEmbeddings: results[i].UsedEmbeddings,
		}
	}

	response.RespondJSON(w, http.StatusOK, UserMatchesResponse{Results: items})
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		AvatarURL:  u.AvatarURL,
		Bio:        u.Bio,
		LookingFor: u.LookingFor,
		CreatedAt:  u.CreatedAt,
	}
}
