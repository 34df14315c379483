package scoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreMatrixScoresEveryPair(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, nil, techEmbedder())

	resumes := []string{sampleResume, unrelatedResume}
	jobs := []string{sampleJob, "chef needed for italian restaurant, pasta and pizza experience"}
	require.NoError(t, engine.FitModels(ctx, append(append([]string{}, resumes...), jobs...)))

	matrix, err := engine.ScoreMatrix(ctx, resumes, jobs, 2)
	require.NoError(t, err)
	require.Len(t, matrix, 2)

	for i := range resumes {
		require.Len(t, matrix[i], 2)
		for j := range jobs {
			single, err := engine.CalculateSimilarity(ctx, resumes[i], jobs[j])
			require.NoError(t, err)
			assert.Equal(t, single.Combined.Score, matrix[i][j].Combined.Score)
		}
	}

	assert.Greater(t, matrix[0][0].Combined.Score, matrix[0][1].Combined.Score)
	assert.Greater(t, matrix[1][1].Combined.Score, matrix[1][0].Combined.Score)
	assert.Equal(t, 4, engine.CacheLen())
}

func TestScoreMatrixValidatesInput(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t, nil, techEmbedder())

	_, err := engine.ScoreMatrix(ctx, nil, []string{sampleJob}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.ScoreMatrix(ctx, []string{sampleResume}, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = engine.ScoreMatrix(ctx, []string{sampleResume}, []string{sampleJob}, 0)
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, engine.FitModels(ctx, []string{sampleJob, sampleResume}))
	_, err = engine.ScoreMatrix(ctx, []string{sampleResume, "  "}, []string{sampleJob}, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
