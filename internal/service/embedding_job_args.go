package service

import (
	"context"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

const (
	entityEmbeddingKind = "entity_embedding"
	// EmbeddingsQueueName is the River queue used for embedding jobs.
	EmbeddingsQueueName = "embeddings"
)

// Entity type discriminators for embedding jobs.
const (
	EntityTypeUser = "user"
	EntityTypePost = "post"
)

// EntityEmbeddingInserter inserts embedding jobs (e.g. River client).
type EntityEmbeddingInserter interface {
	Insert(ctx context.Context, args river.JobArgs, opts *river.InsertOpts) (*rivertype.JobInsertResult, error)
}

// EntityEmbeddingArgs is the job payload for regenerating the stored embedding of one
// entity text field. The worker re-reads the current text at run time, so a burst of
// edits collapses to one job (unique by args) that embeds the latest committed text.
type EntityEmbeddingArgs struct {
	EntityType string `json:"entity_type" river:"unique"`
	EntityID   int64  `json:"entity_id"   river:"unique"`
	// Field is "bio" or "looking_for" for users; empty for posts.
	Field string `json:"field,omitempty" river:"unique"`
}

// Kind returns the River job kind.
func (EntityEmbeddingArgs) Kind() string { return entityEmbeddingKind }

var _ river.JobArgs = EntityEmbeddingArgs{}
