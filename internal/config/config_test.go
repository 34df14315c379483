package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/resume-match/internal/scoring"
	"github.com/spigell/resume-match/internal/similarity"
)

func newViper(t *testing.T, yaml string) *viper.Viper {
	t.Helper()

	v := viper.New()
	SetDefaults(v)
	BindEnv(v)

	if yaml != "" {
		path := filepath.Join(t.TempDir(), "resume-match.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))
		v.SetConfigFile(path)
		require.NoError(t, v.ReadInConfig())
	}

	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	def := Default()
	def.Weights = nil
	assert.Equal(t, def, cfg)

	sc, err := cfg.ScoringConfig()
	require.NoError(t, err)
	assert.Nil(t, sc.Weights, "absent weights must fall back to engine defaults")
	assert.Equal(t, 1000, sc.CacheSize)
	assert.Equal(t, similarity.LexicalOptions{NGramMin: 1, NGramMax: 1}, sc.Lexical)
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load(newViper(t, `
weights:
  lexical_frequency: 1
cache-size: 10
lexical:
  max-features: 500
  ngram-max: 2
embedding:
  provider: word-vectors
  word-vectors:
    path: /tmp/vectors.txt
  cache:
    backend: memory
    ttl: 90m
fit:
  minimum-score: 65
`))
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.CacheSize)
	assert.Equal(t, 500, cfg.Lexical.MaxFeatures)
	assert.Equal(t, 2, cfg.Lexical.NGramMax)
	assert.Equal(t, "word-vectors", cfg.Embedding.Provider)
	assert.Equal(t, 90*time.Minute, cfg.Embedding.Cache.TTL.Std())
	assert.Equal(t, "gemini-embedding-001", cfg.Embedding.Gemini.Model)
	assert.InDelta(t, 65, cfg.Fit.MinimumScore, 1e-9)

	sc, err := cfg.ScoringConfig()
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{similarity.LexicalFrequency: 1}, sc.Weights, "user weights must not be merged with defaults")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("RESUME_MATCH_CACHE_SIZE", "42")
	t.Setenv("RESUME_MATCH_EMBEDDING_GEMINI_MODEL", "text-embedding-004")
	t.Setenv("RESUME_MATCH_TEXT_REMOVE_STOPWORDS", "false")

	cfg, err := Load(newViper(t, ""))
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.CacheSize)
	assert.Equal(t, "text-embedding-004", cfg.Embedding.Gemini.Model)
	assert.False(t, cfg.Text.RemoveStopwords)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		message string
	}{
		{
			name:    "unknown key",
			yaml:    "cache-sise: 10\n",
			message: "cache-sise",
		},
		{
			name:    "negative cache size",
			yaml:    "cache-size: -1\n",
			message: "CacheSize",
		},
		{
			name:    "ngram range inverted",
			yaml:    "lexical:\n  ngram-min: 2\n  ngram-max: 1\n",
			message: "NGramMax",
		},
		{
			name:    "unknown provider",
			yaml:    "embedding:\n  provider: openai\n",
			message: "Provider",
		},
		{
			name:    "redis without address",
			yaml:    "embedding:\n  cache:\n    backend: redis\n    redis-addr: \"\"\n",
			message: "RedisAddr",
		},
		{
			name:    "word vectors without path",
			yaml:    "embedding:\n  provider: word-vectors\n",
			message: "word-vectors.path",
		},
		{
			name:    "threshold above range",
			yaml:    "fit:\n  minimum-score: 120\n",
			message: "MinimumScore",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(t, tt.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, scoring.ErrConfiguration), "unexpected error: %v", err)
			assert.True(t, strings.Contains(err.Error(), tt.message), "expected %q in %v", tt.message, err)
		})
	}
}

func TestScoringConfigRejectsBadWeights(t *testing.T) {
	cfg, err := Load(newViper(t, "weights:\n  dense_embedding: heavy\n"))
	require.NoError(t, err)

	_, err = cfg.ScoringConfig()
	assert.ErrorIs(t, err, scoring.ErrConfiguration)
}

func TestDurationText(t *testing.T) {
	text, err := Duration(36 * time.Hour).MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "36h0m0s", string(text))

	var d Duration
	require.NoError(t, d.UnmarshalText([]byte(" 15m ")))
	assert.Equal(t, 15*time.Minute, d.Std())
	assert.Error(t, d.UnmarshalText([]byte("soon")))
}
