// Package models defines the domain types shared across repositories, services, and handlers.
package models

import (
	"time"
)

// EmbeddingField identifies which text field of a user a stored embedding belongs to.
// Users have two embeddable fields; posts have one (content) and need no discriminator.
type EmbeddingField string

const (
	// FieldBio is the user's self-description.
	FieldBio EmbeddingField = "bio"
	// FieldLookingFor is the user's "what I seek" text.
	FieldLookingFor EmbeddingField = "looking_for"
)

// User is a member profile. Bio and LookingFor are the embeddable text fields.
type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatar_url"`
	Bio        string    `json:"bio"`
	LookingFor string    `json:"looking_for"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserCandidate is one user from the matching candidate pool: profile fields the
// engine needs plus whatever embeddings are stored (nil when absent). Built by the
// repository with a single LEFT JOIN so users without embeddings are still candidates.
type UserCandidate struct {
	User          User
	BioVector     []float32
	LookingVector []float32
}

// UserMatch is one ranked result from FindUserMatches. Reasons is never empty.
type UserMatch struct {
	User           User     `json:"user"`
	Score          float64  `json:"score"`
	Reasons        []string `json:"reasons"`
	UsedEmbeddings bool     `json:"used_embeddings"`
}
