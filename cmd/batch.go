package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-match/internal/config"
	"github.com/spigell/resume-match/internal/logger"
	"github.com/spigell/resume-match/internal/output"
	"github.com/spigell/resume-match/internal/textprep"
)

var scoreBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Score every resume against every job description",
	Long: `Fit the models once on all resumes and job descriptions, then score
each resume/job pair. Directories are expanded to the documents they contain.`,
	Run: func(cmd *cobra.Command, _ []string) {
		scoreBatchRun(cmd)
	},
}

func init() {
	scoreCmd.AddCommand(scoreBatchCmd)

	scoreBatchCmd.Flags().StringSlice("resumes", nil, "resume files or directories")
	scoreBatchCmd.Flags().StringSlice("jobs", nil, "job description files or directories")
	scoreBatchCmd.Flags().StringSlice("corpus", nil, "extra documents used to fit the lexical vocabulary")
	scoreBatchCmd.Flags().Int("top", 0, "keep only the N best jobs per resume (0 keeps every pair)")
	scoreBatchCmd.Flags().Int("workers", 4, "pairs scored concurrently")
	scoreBatchCmd.Flags().StringP("output", "o", output.FormatJSON, "result format: "+strings.Join(output.Formats, ", "))

	scoreBatchCmd.MarkFlagRequired("resumes")
	scoreBatchCmd.MarkFlagRequired("jobs")
}

func scoreBatchRun(cmd *cobra.Command) {
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

	logger.Info("starting the resume-match batch", zap.String("version", version))

	format, _ := cmd.Flags().GetString("output")
	top, _ := cmd.Flags().GetInt("top")
	workers, _ := cmd.Flags().GetInt("workers")
	resumePaths, _ := cmd.Flags().GetStringSlice("resumes")
	jobPaths, _ := cmd.Flags().GetStringSlice("jobs")
	corpusPaths, _ := cmd.Flags().GetStringSlice("corpus")

	sess, err := newSession(cfg, runID, logger)
	if err != nil {
		logger.Fatal("preparing scoring session", zap.Error(err))
	}
	defer sess.Close()

	resumes, err := readDocuments(sess.proc, resumePaths)
	if err != nil {
		logger.Fatal("reading resumes", zap.Error(err))
	}
	jobs, err := readDocuments(sess.proc, jobPaths)
	if err != nil {
		logger.Fatal("reading job descriptions", zap.Error(err))
	}
	corpus, err := readDocuments(sess.proc, corpusPaths)
	if err != nil {
		logger.Fatal("reading corpus document", zap.Error(err))
	}

	batch, err := scoreBatch(ctx, sess, resumes, jobs, corpus, top, workers)
	if err != nil {
		logger.Fatal("scoring batch", zap.Error(err))
	}

	if err := output.WriteBatch(os.Stdout, format, batch); err != nil {
		logger.Fatal("writing result", zap.Error(err))
	}
}

type document struct {
	Path string
	Text string
}

// scoreBatch fits the models once on every document and scores all
// resume/job pairs.
func scoreBatch(ctx context.Context, s *session, resumes, jobs, corpus []document, top, workers int) (output.Batch, error) {
	if len(resumes) == 0 || len(jobs) == 0 {
		return output.Batch{}, fmt.Errorf("at least one resume and one job description are required")
	}

	fitDocs := make([]string, 0, len(resumes)+len(jobs)+len(corpus))
	for _, group := range [][]document{jobs, resumes, corpus} {
		for _, d := range group {
			fitDocs = append(fitDocs, d.Text)
		}
	}
	if err := s.engine.FitModels(ctx, fitDocs); err != nil {
		return output.Batch{}, fmt.Errorf("fitting models: %w", err)
	}

	matrix, err := s.engine.ScoreMatrix(ctx, texts(resumes), texts(jobs), workers)
	if err != nil {
		return output.Batch{}, err
	}

	pairs := make([]output.Pair, 0, len(resumes)*len(jobs))
	for i, resume := range resumes {
		for j, job := range jobs {
			bundle := matrix[i][j]
			if failed := bundle.Failed(); len(failed) > 0 {
				s.logger.Warn("some methods failed, the combined score only includes the rest",
					zap.String("resume", resume.Path),
					zap.String("job", job.Path),
					zap.Strings("methods", failed),
				)
			}

			fit, err := s.fit(bundle)
			if err != nil {
				return output.Batch{}, err
			}
			pairs = append(pairs, output.Pair{
				Resume: resume.Path,
				Job:    job.Path,
				Report: bundle.Report(),
				Bundle: bundle,
				Fit:    fit,
			})
		}
	}

	s.logger.Info("batch scored", zap.Int("resumes", len(resumes)), zap.Int("jobs", len(jobs)))

	return output.Batch{
		RunID:        s.runID,
		Timestamp:    time.Now().UTC(),
		TotalResumes: len(resumes),
		TotalJobs:    len(jobs),
		Top:          max(top, 0),
		Pairs:        output.TopMatches(pairs, top),
	}, nil
}

func texts(docs []document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Text
	}
	return out
}

// readDocuments reads every path. A directory contributes its supported
// files in name order; subdirectories are not descended into.
func readDocuments(proc *textprep.Processor, paths []string) ([]document, error) {
	var docs []document
	for _, path := range paths {
		path = strings.TrimSpace(path)
		if path == "" {
			continue
		}

		files, err := expandPath(path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			text, err := readDocument(proc, file)
			if err != nil {
				return nil, err
			}
			docs = append(docs, document{Path: file, Text: text})
		}
	}
	return docs, nil
}

func expandPath(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !documentExt(entry.Name()) {
			continue
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%s contains no documents", path)
	}
	return files, nil
}

func documentExt(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".text", ".html", ".htm":
		return true
	}
	return false
}
