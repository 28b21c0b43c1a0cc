package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, "strong match"},
		{0.7, "strong match"},
		{0.69, "moderate match"},
		{0.4, "moderate match"},
		{0.39, "weak match"},
		{0.2, "weak match"},
		{0.19, "very weak match"},
		{0.0, "very weak match"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchLabel(tt.score), "score %v", tt.score)
	}
}

func TestClampScore(t *testing.T) {
	assert.Zero(t, clampScore(-0.3))
	assert.InDelta(t, 0.42, clampScore(0.42), 1e-12)
	assert.InDelta(t, 1.0, clampScore(1.2), 1e-12)
}

func TestEmbeddingScorer_Score(t *testing.T) {
	scorer := EmbeddingScorer{WeightWant: 0.7, WeightTheyWant: 0.3}

	unitX := []float32{1, 0}
	unitY := []float32{0, 1}

	t.Run("no usable direction reports not ok", func(t *testing.T) {
		_, ok := scorer.Score(UserVectors{}, UserVectors{})
		assert.False(t, ok)

		_, ok = scorer.Score(UserVectors{Bio: unitX}, UserVectors{Bio: unitX})
		assert.False(t, ok, "bio/bio alone is not a scoring direction")
	})

	t.Run("want direction only", func(t *testing.T) {
		got, ok := scorer.Score(
			UserVectors{Looking: unitX},
			UserVectors{Bio: unitX},
		)
		require.True(t, ok)
		assert.InDelta(t, 0.7, got.Score, 1e-9)
		require.NotEmpty(t, got.Reasons)
		assert.Contains(t, got.Reasons, "their profile strongly matches what you're looking for")
	})

	t.Run("they-want direction only", func(t *testing.T) {
		got, ok := scorer.Score(
			UserVectors{Bio: unitX},
			UserVectors{Looking: unitX},
		)
		require.True(t, ok)
		assert.InDelta(t, 0.3, got.Score, 1e-9)
		assert.Contains(t, got.Reasons, "you strongly match what they're looking for")
	})

	t.Run("both directions combine with weights", func(t *testing.T) {
		got, ok := scorer.Score(
			UserVectors{Bio: unitX, Looking: unitX},
			UserVectors{Bio: unitX, Looking: unitX},
		)
		require.True(t, ok)
		assert.InDelta(t, 1.0, got.Score, 1e-9)
		require.Len(t, got.Reasons, 1, "no direction callout when neither dominates")
		assert.Equal(t, "your profiles are a strong semantic match", got.Reasons[0])
	})

	t.Run("orthogonal vectors score zero but stay ok", func(t *testing.T) {
		got, ok := scorer.Score(
			UserVectors{Looking: unitX},
			UserVectors{Bio: unitY},
		)
		require.True(t, ok)
		assert.Zero(t, got.Score)
		require.NotEmpty(t, got.Reasons)
		assert.Equal(t, "limited profile similarity", got.Reasons[0])
	})

	t.Run("negative cosine clamps to zero", func(t *testing.T) {
		got, ok := scorer.Score(
			UserVectors{Looking: unitX},
			UserVectors{Bio: []float32{-1, 0}},
		)
		require.True(t, ok)
		assert.Zero(t, got.Score)
	})
}
