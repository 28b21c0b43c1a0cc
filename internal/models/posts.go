package models

import (
	"time"
)

// Post is a feed post. Content is the embeddable text field.
type Post struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// PostCandidate is one post from the related-posts candidate pool with its stored
// embedding when present (nil when the post has no embedding yet).
type PostCandidate struct {
	Post   Post
	Vector []float32
}

// RelatedPost is one ranked result from FindRelatedPosts. MatchLabel is the
// user-visible strength band for the score.
type RelatedPost struct {
	Post       Post    `json:"post"`
	Score      float64 `json:"score"`
	MatchLabel string  `json:"match_label"`
}
