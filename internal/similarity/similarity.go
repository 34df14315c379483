// Package similarity implements the vectorization strategies used to compare
// a resume with a job description.
package similarity

import (
	"context"
	"errors"
	"math"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFitted    = errors.New("method is not fitted")
)

// Method is a named, stateful similarity strategy. It is unfitted until Fit
// succeeds; re-fitting replaces the previous state.
type Method interface {
	Name() string
	Fit(ctx context.Context, documents []string) error
	Transform(ctx context.Context, documents []string) ([][]float64, error)
	ComputeSimilarity(ctx context.Context, a, b string) (float64, error)
	SimilarityInfo(ctx context.Context, a, b string) (Info, error)
}

// Info describes a single method comparison.
type Info struct {
	RawScore        float64 `json:"raw_score" yaml:"raw_score"`
	NormalizedScore float64 `json:"normalized_score" yaml:"normalized_score"`
	Method          string  `json:"method" yaml:"method"`
}

// NormalizeScore clamps a raw similarity into [0, 1] and rescales it to [0, 100].
// Values marginally outside the range (floating point noise) are clamped silently.
func NormalizeScore(raw float64) float64 {
	if math.IsNaN(raw) {
		return 0
	}
	return math.Max(0, math.Min(1, raw)) * 100
}

// Cosine returns the cosine similarity of two vectors.
// It is 0 when either vector has zero norm or the lengths differ.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func compute(ctx context.Context, m Method, a, b string) (float64, error) {
	vectors, err := m.Transform(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	return Cosine(vectors[0], vectors[1]), nil
}

func describe(ctx context.Context, m Method, a, b string) (Info, error) {
	raw, err := m.ComputeSimilarity(ctx, a, b)
	if err != nil {
		return Info{}, err
	}

	return Info{
		RawScore:        raw,
		NormalizedScore: NormalizeScore(raw),
		Method:          m.Name(),
	}, nil
}
