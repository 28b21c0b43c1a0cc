package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devconnect/matchcore/internal/models"
	"github.com/devconnect/matchcore/internal/service"
)

type mockPostsService struct {
	createFunc  func(ctx context.Context, userID int64, content string) (*models.Post, error)
	getByIDFunc func(ctx context.Context, id int64) (*models.Post, error)
}

func (m *mockPostsService) Create(ctx context.Context, userID int64, content string) (*models.Post, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, content)
	}

	return nil, nil
}

func (m *mockPostsService) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, id)
	}

	return nil, nil
}

type mockRelatedService struct {
	relatedFunc func(ctx context.Context, postID int64, limit int, minScore float64) ([]models.RelatedPost, error)
}

func (m *mockRelatedService) RelatedPosts(
	ctx context.Context, postID int64, limit int, minScore float64,
) ([]models.RelatedPost, error) {
	if m.relatedFunc != nil {
		return m.relatedFunc(ctx, postID, limit, minScore)
	}

	return nil, nil
}

func TestPostsHandler_Create(t *testing.T) {
	t.Run("valid body returns 201 with the created post", func(t *testing.T) {
		mock := &mockPostsService{
			createFunc: func(_ context.Context, userID int64, content string) (*models.Post, error) {
				assert.Equal(t, int64(10), userID)
				assert.Equal(t, "hello gophers", content)

				return &models.Post{ID: 5, UserID: userID, Content: content}, nil
			},
		}
		handler := NewPostsHandler(mock, &mockRelatedService{}, 0)

		body := []byte(`{"userId":10,"content":"hello gophers"}`)
		req := httptest.NewRequest(http.MethodPost, "http://test/v1/posts", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp PostResponse

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, int64(5), resp.ID)
		assert.Equal(t, "hello gophers", resp.Content)
	})

	t.Run("malformed JSON returns 400", func(t *testing.T) {
		handler := NewPostsHandler(&mockPostsService{}, &mockRelatedService{}, 0)

		req := httptest.NewRequest(http.MethodPost, "http://test/v1/posts", bytes.NewReader([]byte(`{`)))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown body field returns 400", func(t *testing.T) {
		handler := NewPostsHandler(&mockPostsService{}, &mockRelatedService{}, 0)

		body := []byte(`{"userId":10,"content":"x","extra":true}`)
		req := httptest.NewRequest(http.MethodPost, "http://test/v1/posts", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing userId fails validation", func(t *testing.T) {
		called := false
		mock := &mockPostsService{
			createFunc: func(context.Context, int64, string) (*models.Post, error) {
				called = true

				return nil, nil
			},
		}
		handler := NewPostsHandler(mock, &mockRelatedService{}, 0)

		body := []byte(`{"content":"hello"}`)
		req := httptest.NewRequest(http.MethodPost, "http://test/v1/posts", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, called)
	})

	t.Run("whitespace content returns 422", func(t *testing.T) {
		mock := &mockPostsService{
			createFunc: func(context.Context, int64, string) (*models.Post, error) {
				return nil, service.ErrEmptyContent
			},
		}
		handler := NewPostsHandler(mock, &mockRelatedService{}, 0)

		body := []byte(`{"userId":10,"content":"   "}`)
		req := httptest.NewRequest(http.MethodPost, "http://test/v1/posts", bytes.NewReader(body))
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestPostsHandler_Get(t *testing.T) {
	t.Run("missing post returns 404", func(t *testing.T) {
		mock := &mockPostsService{
			getByIDFunc: func(context.Context, int64) (*models.Post, error) {
				return nil, service.ErrPostNotFound
			},
		}
		handler := NewPostsHandler(mock, &mockRelatedService{}, 0)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/99", nil)
		req.SetPathValue("id", "99")

		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-numeric id returns 400", func(t *testing.T) {
		handler := NewPostsHandler(&mockPostsService{}, &mockRelatedService{}, 0)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/abc", nil)
		req.SetPathValue("id", "abc")

		rec := httptest.NewRecorder()

		handler.Get(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPostsHandler_Related(t *testing.T) {
	t.Run("success returns ranked results with labels", func(t *testing.T) {
		mock := &mockRelatedService{
			relatedFunc: func(_ context.Context, postID int64, limit int, minScore float64) ([]models.RelatedPost, error) {
				assert.Equal(t, int64(1), postID)
				assert.Equal(t, 5, limit)
				assert.InDelta(t, 0.25, minScore, 1e-9)

				return []models.RelatedPost{
					{Post: models.Post{ID: 2}, Score: 0.92, MatchLabel: "strong match"},
					{Post: models.Post{ID: 3}, Score: 0.41, MatchLabel: "moderate match"},
				}, nil
			},
		}
		handler := NewPostsHandler(&mockPostsService{}, mock, 0)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/1/related?topK=5&minScore=0.25", nil)
		req.SetPathValue("id", "1")

		rec := httptest.NewRecorder()

		handler.Related(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp RelatedPostsResponse

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Results, 2)
		assert.Equal(t, int64(2), resp.Results[0].Post.ID)
		assert.InDelta(t, 0.92, resp.Results[0].Score, 1e-9)
		assert.Equal(t, "strong match", resp.Results[0].MatchLabel)
	})

	t.Run("absent query params use defaults", func(t *testing.T) {
		mock := &mockRelatedService{
			relatedFunc: func(_ context.Context, _ int64, limit int, minScore float64) ([]models.RelatedPost, error) {
				assert.Zero(t, limit, "absent topK means no per-request cap")
				assert.InDelta(t, 0.3, minScore, 1e-9, "configured default applies when minScore is absent")

				return nil, nil
			},
		}
		handler := NewPostsHandler(&mockPostsService{}, mock, 0.3)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/1/related", nil)
		req.SetPathValue("id", "1")

		rec := httptest.NewRecorder()

		handler.Related(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("out-of-range topK returns 400", func(t *testing.T) {
		handler := NewPostsHandler(&mockPostsService{}, &mockRelatedService{}, 0)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/1/related?topK=1000", nil)
		req.SetPathValue("id", "1")

		rec := httptest.NewRecorder()

		handler.Related(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing source post returns 404", func(t *testing.T) {
		mock := &mockRelatedService{
			relatedFunc: func(context.Context, int64, int, float64) ([]models.RelatedPost, error) {
				return nil, service.ErrPostNotFound
			},
		}
		handler := NewPostsHandler(&mockPostsService{}, mock, 0)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/99/related", nil)
		req.SetPathValue("id", "99")

		rec := httptest.NewRecorder()

		handler.Related(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("source without embeddable content returns 422", func(t *testing.T) {
		mock := &mockRelatedService{
			relatedFunc: func(context.Context, int64, int, float64) ([]models.RelatedPost, error) {
				return nil, service.ErrNoSourceEmbedding
			},
		}
		handler := NewPostsHandler(&mockPostsService{}, mock, 0)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/1/related", nil)
		req.SetPathValue("id", "1")

		rec := httptest.NewRecorder()

		handler.Related(rec, req)

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("ranking failure returns 500", func(t *testing.T) {
		mock := &mockRelatedService{
			relatedFunc: func(context.Context, int64, int, float64) ([]models.RelatedPost, error) {
				return nil, errors.New("db down")
			},
		}
		handler := NewPostsHandler(&mockPostsService{}, mock, 0)

		req := httptest.NewRequest(http.MethodGet, "http://test/v1/posts/1/related", nil)
		req.SetPathValue("id", "1")

		rec := httptest.NewRecorder()

		handler.Related(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
