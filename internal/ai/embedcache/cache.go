package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-match/internal/ai"
)

// Embedder wraps another ai.Embedder and serves repeated texts from a Store.
// Store failures degrade to cache misses.
type Embedder struct {
	next   ai.Embedder
	store  Store
	ttl    time.Duration
	logger *zap.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

func New(next ai.Embedder, store Store, ttl time.Duration, logger *zap.Logger) *Embedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Embedder{next: next, store: store, ttl: ttl, logger: logger}
}

func (e *Embedder) Model() string { return e.next.Model() }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	model := e.next.Model()
	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = Key(model, text)
	}

	cached, err := e.store.BatchGet(ctx, keys)
	if err != nil {
		e.logger.Warn("reading embedding cache failed", zap.String("store", e.store.Name()), zap.Error(err))
		cached = nil
	}

	vectors := make([][]float64, len(texts))
	var missing []int
	pending := make(map[string][]int)
	for i, key := range keys {
		if raw, ok := cached[key]; ok {
			vec, err := decode(raw)
			if err == nil {
				vectors[i] = vec
				continue
			}
			e.logger.Warn("discarding corrupt cached embedding", zap.Error(err))
		}
		if _, ok := pending[key]; !ok {
			missing = append(missing, i)
		}
		pending[key] = append(pending[key], i)
	}

	e.logger.Debug("embedding cache lookup",
		zap.Int("requested", len(texts)),
		zap.Int("missing", len(missing)),
	)

	if len(missing) == 0 {
		return vectors, nil
	}

	batch := make([]string, len(missing))
	for j, i := range missing {
		batch[j] = texts[i]
	}

	fresh, err := e.next.Embed(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(batch) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(batch), len(fresh))
	}

	toStore := make(map[string][]byte, len(missing))
	for j, i := range missing {
		key := keys[i]
		for _, idx := range pending[key] {
			vectors[idx] = fresh[j]
		}
		toStore[key] = encode(fresh[j])
	}

	if err := e.store.BatchSet(ctx, toStore, e.ttl); err != nil {
		e.logger.Warn("writing embedding cache failed", zap.String("store", e.store.Name()), zap.Error(err))
	}

	return vectors, nil
}

// Key identifies the embedding of text under model.
func Key(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
