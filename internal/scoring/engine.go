// Package scoring fuses several similarity methods into one weighted
// resume/job match score.
package scoring

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/resume-match/internal/logger"
	"github.com/spigell/resume-match/internal/similarity"
	"github.com/spigell/resume-match/internal/utils"
)

const defaultMaxLogLength = 200

type factory func(cfg Config, deps Deps) similarity.Method

// registry is the fixed set of methods every Engine owns.
var registry = map[string]factory{
	similarity.LexicalFrequency: func(cfg Config, _ Deps) similarity.Method {
		return similarity.NewLexical(cfg.Lexical)
	},
	similarity.DenseEmbedding: func(_ Config, deps Deps) similarity.Method {
		return similarity.NewDense(deps.LoadEmbedder, logger.WithFields(deps.Logger, zap.String(logger.FieldMethod, similarity.DenseEmbedding)))
	},
}

// Methods returns the registered method names in a stable order.
func Methods() []string {
	return slices.Sorted(maps.Keys(registry))
}

// Config holds the construction-time settings of an Engine.
type Config struct {
	// Weights maps method names to non-negative weights. Nil means the defaults.
	Weights      map[string]float64
	CacheSize    int
	Lexical      similarity.LexicalOptions
	MaxLogLength int
}

// Deps aggregates collaborators injected into the Engine.
type Deps struct {
	Logger       *zap.Logger
	LoadEmbedder similarity.LoadFunc
}

// Engine owns the similarity methods, their weights and the result cache.
// FitModels is serialized against CalculateSimilarity; scoring calls may run
// concurrently once the engine is fitted.
type Engine struct {
	mu      sync.RWMutex
	fitted  bool
	methods []similarity.Method
	weights map[string]float64
	cache   *resultCache

	logger    *zap.Logger
	maxLogLen int
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	weights, err := ValidateWeights(cfg.Weights)
	if err != nil {
		return nil, err
	}

	for _, name := range slices.Sorted(maps.Keys(weights)) {
		if _, ok := registry[name]; !ok {
			return nil, fmt.Errorf("%w: weight specified for undefined method %q (known: %s)",
				ErrConfiguration, name, strings.Join(Methods(), ", "))
		}
	}

	methods := make([]similarity.Method, 0, len(registry))
	for _, name := range Methods() {
		methods = append(methods, registry[name](cfg, deps))
		if _, ok := weights[name]; !ok {
			weights[name] = 0
		}
	}

	maxLogLen := cfg.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	deps.Logger.Debug("scoring engine created",
		zap.Any("weights", weights),
		zap.Int("cache_size", cfg.CacheSize),
	)

	return &Engine{
		methods:   methods,
		weights:   weights,
		cache:     newResultCache(cfg.CacheSize),
		logger:    deps.Logger,
		maxLogLen: maxLogLen,
	}, nil
}

// Weights returns a copy of the normalized weights.
func (e *Engine) Weights() map[string]float64 {
	return maps.Clone(e.weights)
}

func (e *Engine) Fitted() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fitted
}

// FitModels fits every method on the same corpus and drops all cached results.
// When a method fails to fit the engine is left unfitted.
func (e *Engine) FitModels(ctx context.Context, documents []string) error {
	if len(documents) == 0 {
		return fmt.Errorf("%w: document list cannot be empty", ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	e.logger.Info("fitting models", zap.Int("documents", len(documents)))

	g, gctx := errgroup.WithContext(ctx)
	for _, m := range e.methods {
		g.Go(func() error {
			e.logger.Info("fitting model", zap.String(logger.FieldMethod, m.Name()))
			if err := m.Fit(gctx, documents); err != nil {
				return fmt.Errorf("fit %s: %w", m.Name(), err)
			}
			return nil
		})
	}
	err := g.Wait()

	e.cache.clear()
	if err != nil {
		e.fitted = false
		e.logger.Error("fitting models failed", zap.Error(err))
		return err
	}

	e.fitted = true
	e.logger.Info("models fitted", zap.Duration("took", time.Since(started)))

	return nil
}

// CalculateSimilarity scores resume against jobDescription. Results are cached
// per exact ordered pair until the next FitModels.
func (e *Engine) CalculateSimilarity(ctx context.Context, resume, jobDescription string) (*Bundle, error) {
	if err := validateText(resume, "resume"); err != nil {
		return nil, err
	}
	if err := validateText(jobDescription, "job description"); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.fitted {
		return nil, fmt.Errorf("%w: models must be fitted before calculating similarity", ErrNotFitted)
	}

	key := cacheKey{resume: resume, job: jobDescription}
	bundle, hit := e.cache.getOrCompute(key, func() (*Bundle, bool) {
		bundle := e.compute(ctx, resume, jobDescription)
		// a cancelled caller must not pin its failures in the cache
		return bundle, ctx.Err() == nil
	})

	e.logger.Debug("similarity calculated",
		zap.Bool("cached", hit),
		zap.Float64("combined_score", bundle.Combined.Score),
		zap.Int("resume_length", utf8.RuneCountInString(resume)),
		zap.String("resume_preview", utils.TruncateForLog(resume, e.maxLogLen)),
		zap.Int("job_length", utf8.RuneCountInString(jobDescription)),
		zap.String("job_preview", utils.TruncateForLog(jobDescription, e.maxLogLen)),
	)

	return bundle.clone(), nil
}

// CacheLen reports the number of cached bundles.
func (e *Engine) CacheLen() int {
	return e.cache.size()
}

func (e *Engine) compute(ctx context.Context, resume, jobDescription string) *Bundle {
	slots := make([]MethodScore, len(e.methods))

	var g errgroup.Group
	for i, m := range e.methods {
		g.Go(func() error {
			info, err := safeInfo(ctx, m, resume, jobDescription)
			if err != nil {
				merr := &MethodError{Method: m.Name(), Err: err}
				e.logger.Error("calculating method score", zap.String(logger.FieldMethod, m.Name()), zap.Error(merr))
				slots[i] = MethodScore{Error: merr.Error()}
				return nil
			}

			slots[i] = MethodScore{
				RawScore:        info.RawScore,
				NormalizedScore: info.NormalizedScore,
				Weight:          e.weights[m.Name()],
			}
			return nil
		})
	}
	_ = g.Wait()

	bundle := &Bundle{
		Methods: make(map[string]MethodScore, len(e.methods)),
		Combined: Combined{
			WeightsUsed: maps.Clone(e.weights),
		},
	}

	// Summed in registry order so repeated computations are bit-identical.
	for i, m := range e.methods {
		slot := slots[i]
		bundle.Methods[m.Name()] = slot
		if slot.Failed() {
			continue
		}
		bundle.Combined.Score += slot.NormalizedScore * slot.Weight
	}

	return bundle
}

func safeInfo(ctx context.Context, m similarity.Method, a, b string) (info similarity.Info, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return m.SimilarityInfo(ctx, a, b)
}

func validateText(text, name string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, name)
	}
	return nil
}
