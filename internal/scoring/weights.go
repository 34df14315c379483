package scoring

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/spigell/resume-match/internal/similarity"
)

const (
	defaultDenseWeight   = 0.6
	defaultLexicalWeight = 0.4
)

// DefaultWeights returns the weights used when none are configured.
func DefaultWeights() map[string]float64 {
	return map[string]float64{
		similarity.DenseEmbedding:   defaultDenseWeight,
		similarity.LexicalFrequency: defaultLexicalWeight,
	}
}

// ParseWeights converts a raw configuration map into numeric weights.
// A nil map stays nil so that ValidateWeights falls back to the defaults.
func ParseWeights(raw map[string]any) (map[string]float64, error) {
	if raw == nil {
		return nil, nil
	}

	weights := make(map[string]float64, len(raw))
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		value, ok := toFloat(raw[name])
		if !ok {
			return nil, fmt.Errorf("%w: weight for %q must be numeric, got %v", ErrConfiguration, name, raw[name])
		}
		weights[name] = value
	}

	return weights, nil
}

// ValidateWeights checks the weights and normalizes them to sum to 1.
// Nil or empty input yields the defaults.
func ValidateWeights(weights map[string]float64) (map[string]float64, error) {
	if len(weights) == 0 {
		return DefaultWeights(), nil
	}

	var total float64
	for _, name := range slices.Sorted(maps.Keys(weights)) {
		w := weights[name]
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight for %q must be a finite number", ErrConfiguration, name)
		}
		if w < 0 {
			return nil, fmt.Errorf("%w: weight for %q cannot be negative", ErrConfiguration, name)
		}
		total += w
	}

	if total == 0 {
		return nil, fmt.Errorf("%w: weights cannot sum to zero", ErrConfiguration)
	}

	normalized := make(map[string]float64, len(weights))
	for name, w := range weights {
		normalized[name] = w / total
	}

	return normalized, nil
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int8:
		f = float64(val)
	case int16:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case uint:
		f = float64(val)
	case uint8:
		f = float64(val)
	case uint16:
		f = float64(val)
	case uint32:
		f = float64(val)
	case uint64:
		f = float64(val)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
