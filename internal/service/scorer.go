package service

import (
	vecmath "github.com/devconnect/matchcore/pkg/embeddings"
)

// Match strength labels derived from fixed score bands. Bands are inclusive on the
// lower bound and exclusive on the upper; this copy is user-visible.
const (
	labelStrong   = "strong match"
	labelModerate = "moderate match"
	labelWeak     = "weak match"
	labelVeryWeak = "very weak match"

	bandStrong   = 0.7
	bandModerate = 0.4
	bandWeak     = 0.2
)

// MatchLabel returns the qualitative label for a similarity score:
// [0.7, 1] strong, [0.4, 0.7) moderate, [0.2, 0.4) weak, below 0.2 very weak.
func MatchLabel(score float64) string {
	switch {
	case score >= bandStrong:
		return labelStrong
	case score >= bandModerate:
		return labelModerate
	case score >= bandWeak:
		return labelWeak
	default:
		return labelVeryWeak
	}
}

// UserVectors carries one user's stored embeddings; either may be nil when absent.
type UserVectors struct {
	Bio     []float32
	Looking []float32
}

// PairScore is the common result of the embedding and heuristic scoring strategies.
type PairScore struct {
	Score   float64
	Reasons []string
}

// EmbeddingScorer scores a viewer/candidate pair on bidirectional embedding
// similarity. WeightWant applies to cos(candidate.bio, viewer.lookingFor) and
// WeightTheyWant to the reverse direction; the asymmetry weights what the viewer
// is seeking more heavily than what the candidate seeks.
type EmbeddingScorer struct {
	WeightWant     float64
	WeightTheyWant float64
}

// directionMargin is how far one directional similarity must exceed the other before
// the reason calls out which direction is stronger.
const directionMargin = 0.25

// Score computes the combined directional similarity for a viewer/candidate pair.
// Either direction contributes 0 when its embeddings are absent or mismatched.
// ok reports whether at least one direction had both embeddings present; when false
// the pair has no usable embedding signal and the caller should fall back.
func (s EmbeddingScorer) Score(viewer, candidate UserVectors) (PairScore, bool) {
	wantUsable := len(candidate.Bio) > 0 && len(viewer.Looking) > 0
	theyWantUsable := len(viewer.Bio) > 0 && len(candidate.Looking) > 0

	if !wantUsable && !theyWantUsable {
		return PairScore{}, false
	}

	wantMatch := vecmath.CosineSimilarity(candidate.Bio, viewer.Looking)
	theyWantMatch := vecmath.CosineSimilarity(viewer.Bio, candidate.Looking)

	combined := clampScore(s.WeightWant*wantMatch + s.WeightTheyWant*theyWantMatch)

	reasons := []string{embeddingReason(combined)}

	switch {
	case wantMatch-theyWantMatch >= directionMargin:
		reasons = append(reasons, "their profile strongly matches what you're looking for")
	case theyWantMatch-wantMatch >= directionMargin:
		reasons = append(reasons, "you strongly match what they're looking for")
	}

	return PairScore{Score: combined, Reasons: reasons}, true
}

// embeddingReason maps the combined score to user-facing copy using the shared bands.
func embeddingReason(score float64) string {
	switch {
	case score >= bandStrong:
		return "your profiles are a strong semantic match"
	case score >= bandModerate:
		return "your profiles have good overlap"
	case score >= bandWeak:
		return "your profiles have some overlap"
	default:
		return "limited profile similarity"
	}
}

// clampScore bounds a score into [0,1]. Raw cosine values can dip slightly negative
// for unrelated texts; result scores are contractually in [0,1].
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}

	if score > 1 {
		return 1
	}

	return score
}
