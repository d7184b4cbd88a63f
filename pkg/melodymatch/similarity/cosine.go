// Package similarity scores pairs of feature vectors.
package similarity

import (
	"errors"
	"fmt"
	"math"
)

// ErrDimensionMismatch is matched by every DimensionMismatchError.
var ErrDimensionMismatch = errors.New("feature dimension mismatch")

// DimensionMismatchError reports two vectors of different lengths.
type DimensionMismatchError struct {
	Left  int
	Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("feature dimension mismatch: %d != %d", e.Left, e.Right)
}

func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// Scorer computes a similarity score for two feature vectors.
type Scorer func(a, b []float64) (float64, error)

// Cosine returns the cosine similarity of a and b.
//
// Vectors must have the same length. If either vector has zero norm
// (including empty vectors) the similarity is defined as 0.
func Cosine(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Left: len(a), Right: len(b)}
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))

	// Rounding can push parallel vectors slightly past 1.
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score, nil
}
