// Package vector provides the vector math shared by the semantic analysis
// components. All similarity calculations in the repository go through these
// functions so that every component agrees on edge-case behavior
// (mismatched lengths and zero vectors score 0).
package vector

import "math"

// CosineSimilarity calculates cosine similarity between two float32 vectors.
// Returns a value in [-1, 1] where 1 = identical direction, 0 = orthogonal.
//
// Uses float64 accumulation for precision even with float32 inputs.
// Mismatched lengths, empty vectors, and zero vectors all return 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProd, normA, normB float64
	for i := range a {
		dotProd += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProd / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance is 1 - CosineSimilarity, clamped to [0, 2].
// This is the metric used by the density-based clusterer.
func CosineDistance(a, b []float32) float64 {
	d := 1 - CosineSimilarity(a, b)
	if d < 0 {
		return 0
	}
	return d
}

// IsZero reports whether every component of the vector is exactly zero.
// Zero vectors are the sentinel for texts too short to embed.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Normalize returns a unit-length copy of the vector.
// The input is not modified. A zero vector normalizes to a zero vector.
func Normalize(vec []float32) []float32 {
	var sumSquares float64
	for _, v := range vec {
		sumSquares += float64(v) * float64(v)
	}

	normalized := make([]float32, len(vec))
	if sumSquares == 0 {
		return normalized
	}

	norm := math.Sqrt(sumSquares)
	for i, v := range vec {
		normalized[i] = float32(float64(v) / norm)
	}
	return normalized
}
