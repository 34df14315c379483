package cmd

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/resume-match/internal/config"
	"github.com/spigell/resume-match/internal/scoring"
	"github.com/spigell/resume-match/internal/textprep"
	"github.com/spigell/resume-match/internal/verdict"
)

// session holds everything one scoring run needs.
type session struct {
	runID     string
	logger    *zap.Logger
	proc      *textprep.Processor
	evaluator *verdict.Evaluator
	embedders *embedderFactory
	engine    *scoring.Engine
}

func newSession(cfg *config.Config, runID string, logger *zap.Logger) (*session, error) {
	evaluator, err := verdict.New(cfg.Fit.Rule, cfg.Fit.MinimumScore)
	if err != nil {
		return nil, fmt.Errorf("preparing fit verdict: %w", err)
	}

	scoringCfg, err := cfg.ScoringConfig()
	if err != nil {
		return nil, fmt.Errorf("preparing scoring config: %w", err)
	}

	embedders := newEmbedderFactory(cfg.Embedding, logger)
	engine, err := scoring.New(scoringCfg, scoring.Deps{Logger: logger, LoadEmbedder: embedders.Load})
	if err != nil {
		return nil, fmt.Errorf("creating scoring engine: %w", err)
	}

	return &session{
		runID:     runID,
		logger:    logger,
		proc:      textprep.New(cfg.Text.RemoveStopwords),
		evaluator: evaluator,
		embedders: embedders,
		engine:    engine,
	}, nil
}

// fit returns the verdict for b, or nil when no fit rule is configured.
func (s *session) fit(b *scoring.Bundle) (*bool, error) {
	if !s.evaluator.Enabled() {
		return nil, nil
	}
	fit, err := s.evaluator.Evaluate(b)
	if err != nil {
		return nil, fmt.Errorf("evaluating fit verdict: %w", err)
	}
	return &fit, nil
}

func (s *session) Close() {
	s.embedders.Close()
}
