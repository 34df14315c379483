package similarity

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/resume-match/internal/ai"
)

type stubEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   atomic.Int32
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, 0, len(texts))
	for _, text := range texts {
		out = append(out, s.vectors[strings.TrimSpace(text)])
	}
	return out, nil
}

func (s *stubEmbedder) Model() string { return "stub" }

func TestDenseLoadsModelOnce(t *testing.T) {
	ctx := context.Background()
	embedder := &stubEmbedder{vectors: map[string][]float64{
		"go developer": {1, 0},
		"golang":       {1, 0},
	}}

	var loads atomic.Int32
	d := NewDense(func(context.Context) (ai.Embedder, error) {
		loads.Add(1)
		return embedder, nil
	}, zap.NewNop())

	_, err := d.ComputeSimilarity(ctx, "go developer", "golang")
	require.ErrorIs(t, err, ErrNotFitted)
	assert.Equal(t, "", d.Model())

	require.NoError(t, d.Fit(ctx, nil))
	require.NoError(t, d.Fit(ctx, []string{"another corpus"}))
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, "stub", d.Model())

	info, err := d.SimilarityInfo(ctx, "go developer", "golang")
	require.NoError(t, err)
	assert.Equal(t, DenseEmbedding, info.Method)
	assert.InDelta(t, 1.0, info.RawScore, 1e-12)
	assert.InDelta(t, 100.0, info.NormalizedScore, 1e-9)
}

func TestDenseLoadFailureKeepsUnfitted(t *testing.T) {
	ctx := context.Background()
	attempts := 0
	d := NewDense(func(context.Context) (ai.Embedder, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("model unavailable")
		}
		return &stubEmbedder{}, nil
	}, nil)

	require.ErrorContains(t, d.Fit(ctx, nil), "model unavailable")
	_, err := d.Transform(ctx, []string{"text"})
	require.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, d.Fit(ctx, nil))
	assert.Equal(t, 2, attempts)
}

func TestDenseWithoutLoader(t *testing.T) {
	d := NewDense(nil, nil)
	require.Error(t, d.Fit(context.Background(), nil))
}

func TestDenseZeroEmbeddingScoresZero(t *testing.T) {
	ctx := context.Background()
	d := NewDense(func(context.Context) (ai.Embedder, error) {
		return &stubEmbedder{vectors: map[string][]float64{
			"empty": {0, 0, 0},
			"full":  {0.2, 0.1, 0.7},
		}}, nil
	}, nil)
	require.NoError(t, d.Fit(ctx, nil))

	score, err := d.ComputeSimilarity(ctx, "empty", "full")
	require.NoError(t, err)
	assert.Equal(t, 0.0, score)
}

func TestDenseRejectsMalformedEmbeddings(t *testing.T) {
	ctx := context.Background()
	d := NewDense(func(context.Context) (ai.Embedder, error) {
		return &stubEmbedder{vectors: map[string][]float64{
			"a": {1, 2},
			"b": {1, 2, 3},
		}}, nil
	}, nil)
	require.NoError(t, d.Fit(ctx, nil))

	_, err := d.ComputeSimilarity(ctx, "a", "b")
	require.ErrorContains(t, err, "width")
}

func TestDensePropagatesEmbedderErrors(t *testing.T) {
	ctx := context.Background()
	d := NewDense(func(context.Context) (ai.Embedder, error) {
		return &stubEmbedder{err: errors.New("quota exhausted")}, nil
	}, nil)
	require.NoError(t, d.Fit(ctx, nil))

	_, err := d.ComputeSimilarity(ctx, "a", "b")
	require.ErrorContains(t, err, "quota exhausted")
}
