package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-match/internal/ai"
	"github.com/spigell/resume-match/internal/ai/embedcache"
	"github.com/spigell/resume-match/internal/ai/gemini"
	"github.com/spigell/resume-match/internal/ai/wordvec"
	"github.com/spigell/resume-match/internal/config"
	"github.com/spigell/resume-match/internal/logger"
	"github.com/spigell/resume-match/internal/output"
	"github.com/spigell/resume-match/internal/scoring"
	"github.com/spigell/resume-match/internal/secrets"
	"github.com/spigell/resume-match/internal/textprep"
)

const geminiAPIKeyEnv = "GEMINI_API_KEY"

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score a resume against a job description",
	Run: func(cmd *cobra.Command, _ []string) {
		score(cmd)
	},
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringP("resume", "r", "", "resume file (.txt, .md, .html)")
	scoreCmd.Flags().String("job", "", "job description file (.txt, .md, .html)")
	scoreCmd.Flags().StringSlice("corpus", nil, "extra documents used to fit the lexical vocabulary")
	scoreCmd.Flags().StringP("output", "o", output.FormatJSON, "result format: "+strings.Join(output.Formats, ", "))
}

// score is the main command for the cli.
func score(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runID := uuid.NewString()

	baseLogger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	logger := logger.WithRunID(baseLogger, runID)

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-match", zap.String("version", version))
	logger.Debug("starting with config",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_cache", cfg.Embedding.Cache.Backend),
		zap.Int("cache_size", cfg.CacheSize),
	)

	format, _ := cmd.Flags().GetString("output")

	resumePath, err := pathFlag(cmd, "resume", "Path to the resume")
	if err != nil {
		logger.Fatal("resolving resume path", zap.Error(err))
	}
	jobPath, err := pathFlag(cmd, "job", "Path to the job description")
	if err != nil {
		logger.Fatal("resolving job description path", zap.Error(err))
	}
	corpusPaths, _ := cmd.Flags().GetStringSlice("corpus")

	sess, err := newSession(cfg, runID, logger)
	if err != nil {
		logger.Fatal("preparing scoring session", zap.Error(err))
	}
	defer sess.Close()

	resume, err := readDocument(sess.proc, resumePath)
	if err != nil {
		logger.Fatal("reading resume", zap.Error(err))
	}
	job, err := readDocument(sess.proc, jobPath)
	if err != nil {
		logger.Fatal("reading job description", zap.Error(err))
	}

	corpus := []string{job, resume}
	extra, err := readDocuments(sess.proc, corpusPaths)
	if err != nil {
		logger.Fatal("reading corpus document", zap.Error(err))
	}
	for _, doc := range extra {
		corpus = append(corpus, doc.Text)
	}

	if err := sess.engine.FitModels(ctx, corpus); err != nil {
		logger.Fatal("fitting models", zap.Error(err))
	}

	bundle, err := sess.engine.CalculateSimilarity(ctx, resume, job)
	if err != nil {
		logger.Fatal("calculating similarity", zap.Error(err))
	}

	if failed := bundle.Failed(); len(failed) > 0 {
		logger.Warn("some methods failed, the combined score only includes the rest", zap.Strings("methods", failed))
	}

	result := output.NewResult(runID, bundle)
	fit, err := sess.fit(bundle)
	if err != nil {
		logger.Fatal("evaluating fit verdict", zap.Error(err))
	}
	if fit != nil {
		result = result.WithFit(*fit)
	}

	logger.Info("resume scored", zap.Float64("combined_score", bundle.Combined.Score))

	if err := output.Write(os.Stdout, format, result); err != nil {
		logger.Fatal("writing result", zap.Error(err))
	}
}

// pathFlag returns the flag value or asks for it when running in a terminal.
func pathFlag(cmd *cobra.Command, name, label string) (string, error) {
	path, _ := cmd.Flags().GetString(name)
	if path = strings.TrimSpace(path); path != "" {
		return path, nil
	}

	if !isTerminal(os.Stdin) {
		return "", fmt.Errorf("--%s is required", name)
	}

	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			info, err := os.Stat(strings.TrimSpace(input))
			if err != nil {
				return err
			}
			if info.IsDir() {
				return errors.New("path is a directory")
			}
			return nil
		},
	}

	path, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(path), nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

func readDocument(proc *textprep.Processor, path string) (string, error) {
	raw, err := textprep.ReadFile(path)
	if err != nil {
		return "", err
	}

	text := proc.Prepare(raw)
	if text == "" {
		return "", fmt.Errorf("%w: %s has no usable text", scoring.ErrInvalidInput, path)
	}
	return text, nil
}

// embedderFactory builds the configured embedding provider on demand and owns
// the cache store behind it.
type embedderFactory struct {
	cfg    config.Embedding
	logger *zap.Logger
	store  embedcache.Store
}

func newEmbedderFactory(cfg config.Embedding, logger *zap.Logger) *embedderFactory {
	return &embedderFactory{cfg: cfg, logger: logger}
}

func (f *embedderFactory) Load(ctx context.Context) (ai.Embedder, error) {
	embedder, err := f.provider(ctx)
	if err != nil {
		return nil, err
	}

	store, err := f.cacheStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return embedder, nil
	}

	f.store = store
	cacheLogger := logger.WithFields(f.logger, zap.String("embedding_cache", store.Name()))
	return embedcache.New(embedder, store, f.cfg.Cache.TTL.Std(), cacheLogger), nil
}

func (f *embedderFactory) provider(ctx context.Context) (ai.Embedder, error) {
	switch f.cfg.Provider {
	case ai.ProviderGemini, "":
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			File:  f.cfg.Gemini.APIKeyFile,
			Env:   geminiAPIKeyEnv,
			Value: f.cfg.Gemini.APIKey,
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set embedding.gemini.api-key-file or %s)", err, geminiAPIKeyEnv)
		}

		genLogger := logger.WithCommonFields(f.logger, ai.ProviderGemini, f.cfg.Gemini.Model)
		embedder, err := gemini.NewEmbedder(ctx, apiKey, f.cfg.Gemini.Model, f.cfg.Gemini.Dimensions, f.cfg.Gemini.MaxRetries, genLogger)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	case ai.ProviderWordVectors:
		model, err := wordvec.Load(f.cfg.WordVectors.Path)
		if err != nil {
			return nil, err
		}
		f.logger.Info("word vectors loaded",
			zap.String(logger.FieldModel, model.Model()),
			zap.Int("words", model.Len()),
			zap.Int("width", model.Width()),
		)
		return model, nil
	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %s", scoring.ErrConfiguration, f.cfg.Provider)
	}
}

func (f *embedderFactory) cacheStore(ctx context.Context) (embedcache.Store, error) {
	switch f.cfg.Cache.Backend {
	case embedcache.BackendNone, "":
		return nil, nil
	case embedcache.BackendMemory:
		return embedcache.NewMemoryStore(f.cfg.Cache.MaxEntries), nil
	case embedcache.BackendRedis:
		store, err := embedcache.NewRedisStore(ctx, f.cfg.Cache.RedisAddr, f.cfg.Cache.RedisDB)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("%w: unsupported embedding cache backend: %s", scoring.ErrConfiguration, f.cfg.Cache.Backend)
	}
}

func (f *embedderFactory) Close() {
	if f.store == nil {
		return
	}
	if err := f.store.Close(); err != nil {
		f.logger.Warn("closing embedding cache", zap.Error(err))
	}
}
