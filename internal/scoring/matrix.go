package scoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMatrixWorkers = 4

// ScoreMatrix scores every resume against every job on the fitted models.
// The result is indexed [resume][job]. At most workers pairs are scored at
// once; a non-positive value uses a small default.
func (e *Engine) ScoreMatrix(ctx context.Context, resumes, jobs []string, workers int) ([][]*Bundle, error) {
	if len(resumes) == 0 {
		return nil, fmt.Errorf("%w: no resumes to score", ErrInvalidInput)
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: no job descriptions to score", ErrInvalidInput)
	}
	if workers <= 0 {
		workers = defaultMatrixWorkers
	}

	started := time.Now()
	matrix := make([][]*Bundle, len(resumes))
	for i := range matrix {
		matrix[i] = make([]*Bundle, len(jobs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, resume := range resumes {
		for j, job := range jobs {
			g.Go(func() error {
				bundle, err := e.CalculateSimilarity(gctx, resume, job)
				if err != nil {
					return fmt.Errorf("resume %d, job %d: %w", i, j, err)
				}
				matrix[i][j] = bundle
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.logger.Info("score matrix calculated",
		zap.Int("resumes", len(resumes)),
		zap.Int("jobs", len(jobs)),
		zap.Duration("took", time.Since(started)),
	)

	return matrix, nil
}
