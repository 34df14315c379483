package similarity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-match/internal/ai"
)

const DenseEmbedding = "dense_embedding"

// LoadFunc loads a pretrained embedding model. It may block on I/O.
type LoadFunc func(ctx context.Context) (ai.Embedder, error)

// Dense scores documents by the cosine of their sentence embeddings.
// The model is loaded on the first Fit and reused afterwards; the corpus is ignored.
type Dense struct {
	load   LoadFunc
	logger *zap.Logger

	mu       sync.RWMutex
	embedder ai.Embedder
}

func NewDense(load LoadFunc, logger *zap.Logger) *Dense {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dense{load: load, logger: logger}
}

func (d *Dense) Name() string { return DenseEmbedding }

func (d *Dense) Fit(ctx context.Context, _ []string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.embedder != nil {
		return nil
	}

	if d.load == nil {
		return errors.New("embedding model loader is not configured")
	}

	started := time.Now()
	embedder, err := d.load(ctx)
	if err != nil {
		return fmt.Errorf("load embedding model: %w", err)
	}
	if embedder == nil {
		return errors.New("embedding model loader returned nil model")
	}

	d.embedder = embedder
	d.logger.Info("embedding model loaded",
		zap.String("model", embedder.Model()),
		zap.Duration("took", time.Since(started)),
	)

	return nil
}

func (d *Dense) Transform(ctx context.Context, documents []string) ([][]float64, error) {
	d.mu.RLock()
	embedder := d.embedder
	d.mu.RUnlock()

	if embedder == nil {
		return nil, fmt.Errorf("%s: %w", DenseEmbedding, ErrNotFitted)
	}

	if len(documents) == 0 {
		return [][]float64{}, nil
	}

	vectors, err := embedder.Embed(ctx, documents)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	if len(vectors) != len(documents) {
		return nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(documents), len(vectors))
	}

	width := len(vectors[0])
	for i, vec := range vectors {
		if len(vec) != width {
			return nil, fmt.Errorf("embedding %d has width %d, expected %d", i, len(vec), width)
		}
	}

	return vectors, nil
}

func (d *Dense) ComputeSimilarity(ctx context.Context, a, b string) (float64, error) {
	return compute(ctx, d, a, b)
}

func (d *Dense) SimilarityInfo(ctx context.Context, a, b string) (Info, error) {
	return describe(ctx, d, a, b)
}

// Model returns the loaded model identifier, or an empty string before Fit.
func (d *Dense) Model() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.embedder == nil {
		return ""
	}
	return d.embedder.Model()
}
