// Package embeddings provides vector math over embedding vectors
// (cosine similarity, dot product, magnitude, L2 normalization).
package embeddings

import (
	"math"
)

// DotProduct returns the dot product of a and b.
// Returns 0 when either vector is nil/empty or the lengths differ.
func DotProduct(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}

	return dot
}

// Magnitude returns the Euclidean (L2) length of v. Returns 0 for nil/empty vectors.
func Magnitude(v []float32) float64 {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}

	return math.Sqrt(sumSquares)
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Returns 0 (never NaN, never panics) when either vector is nil/empty,
// the lengths differ, or either vector has zero magnitude. For normalized
// natural-language embeddings the result is expected in [0,1].
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, sumA, sumB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		sumA += float64(a[i]) * float64(a[i])
		sumB += float64(b[i]) * float64(b[i])
	}

	if sumA == 0 || sumB == 0 {
		return 0
	}

	return dot / (math.Sqrt(sumA) * math.Sqrt(sumB))
}
