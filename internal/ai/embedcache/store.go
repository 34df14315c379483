// Package embedcache memoizes text embeddings in a key/value store so that
// identical texts are encoded only once per model.
package embedcache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

var ErrNotFound = errors.New("embedding not cached")

// Store persists encoded embeddings by key.
type Store interface {
	Name() string
	// BatchGet returns the cached values for the keys it holds. Missing keys are
	// absent from the result.
	BatchGet(ctx context.Context, keys []string) (map[string][]byte, error)
	BatchSet(ctx context.Context, values map[string][]byte, ttl time.Duration) error
	Close() error
}

func encode(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[8*i:], math.Float64bits(v))
	}
	return buf
}

func decode(buf []byte) ([]float64, error) {
	if len(buf) == 0 || len(buf)%8 != 0 {
		return nil, fmt.Errorf("cached embedding has invalid length %d", len(buf))
	}
	vec := make([]float64, len(buf)/8)
	for i := range vec {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[8*i:]))
	}
	return vec, nil
}
