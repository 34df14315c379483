// Package config describes the resume-match configuration file and loads it
// from a viper instance.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/spigell/resume-match/internal/ai"
	"github.com/spigell/resume-match/internal/ai/embedcache"
	"github.com/spigell/resume-match/internal/scoring"
	"github.com/spigell/resume-match/internal/similarity"
)

const EnvPrefix = "RESUME_MATCH"

type Config struct {
	// Weights is kept raw so that non-numeric values surface as configuration
	// errors from the scoring package instead of decode failures.
	Weights      map[string]any `mapstructure:"weights" yaml:"weights" toml:"weights"`
	CacheSize    int            `mapstructure:"cache-size" yaml:"cache-size" toml:"cache-size" validate:"gte=0"`
	MaxLogLength int            `mapstructure:"max-log-length" yaml:"max-log-length" toml:"max-log-length" validate:"gte=0"`
	Lexical      Lexical        `mapstructure:"lexical" yaml:"lexical" toml:"lexical"`
	Embedding    Embedding      `mapstructure:"embedding" yaml:"embedding" toml:"embedding"`
	Text         Text           `mapstructure:"text" yaml:"text" toml:"text"`
	Fit          Fit            `mapstructure:"fit" yaml:"fit" toml:"fit"`

	Debug bool `mapstructure:"debug" yaml:"-" toml:"-"`
	JSON  bool `mapstructure:"json" yaml:"-" toml:"-"`
}

type Lexical struct {
	MaxFeatures int `mapstructure:"max-features" yaml:"max-features" toml:"max-features" validate:"gte=0"`
	NGramMin    int `mapstructure:"ngram-min" yaml:"ngram-min" toml:"ngram-min" validate:"gte=1"`
	NGramMax    int `mapstructure:"ngram-max" yaml:"ngram-max" toml:"ngram-max" validate:"gtefield=NGramMin"`
}

type Embedding struct {
	Provider    string      `mapstructure:"provider" yaml:"provider" toml:"provider" validate:"oneof=gemini word-vectors"`
	Gemini      Gemini      `mapstructure:"gemini" yaml:"gemini" toml:"gemini"`
	WordVectors WordVectors `mapstructure:"word-vectors" yaml:"word-vectors" toml:"word-vectors"`
	Cache       Cache       `mapstructure:"cache" yaml:"cache" toml:"cache"`
}

type Gemini struct {
	APIKey     string `mapstructure:"api-key" yaml:"api-key,omitempty" toml:"api-key,omitempty"`
	APIKeyFile string `mapstructure:"api-key-file" yaml:"api-key-file" toml:"api-key-file"`
	Model      string `mapstructure:"model" yaml:"model" toml:"model" validate:"required"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions" toml:"dimensions" validate:"gte=0"`
	MaxRetries int    `mapstructure:"max-retries" yaml:"max-retries" toml:"max-retries" validate:"gte=1"`
}

type WordVectors struct {
	Path string `mapstructure:"path" yaml:"path" toml:"path"`
}

type Cache struct {
	Backend    string        `mapstructure:"backend" yaml:"backend" toml:"backend" validate:"oneof=none memory redis"`
	MaxEntries int           `mapstructure:"max-entries" yaml:"max-entries" toml:"max-entries" validate:"gte=0"`
	RedisAddr  string        `mapstructure:"redis-addr" yaml:"redis-addr" toml:"redis-addr" validate:"required_if=Backend redis"`
	RedisDB    int           `mapstructure:"redis-db" yaml:"redis-db" toml:"redis-db" validate:"gte=0"`
	TTL        Duration      `mapstructure:"ttl" yaml:"ttl" toml:"ttl" validate:"gte=0"`
}

// Duration is a time.Duration written in its human readable form, e.g. "24h".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

type Text struct {
	RemoveStopwords bool `mapstructure:"remove-stopwords" yaml:"remove-stopwords" toml:"remove-stopwords"`
}

type Fit struct {
	MinimumScore float64 `mapstructure:"minimum-score" yaml:"minimum-score" toml:"minimum-score" validate:"gte=0,lte=100"`
	Rule         string  `mapstructure:"rule" yaml:"rule" toml:"rule"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	weights := make(map[string]any)
	for name, w := range scoring.DefaultWeights() {
		weights[name] = w
	}

	return &Config{
		Weights:      weights,
		CacheSize:    1000,
		MaxLogLength: 200,
		Lexical:      Lexical{NGramMin: 1, NGramMax: 1},
		Embedding: Embedding{
			Provider: ai.ProviderGemini,
			Gemini: Gemini{
				Model:      "gemini-embedding-001",
				MaxRetries: 3,
			},
			Cache: Cache{
				Backend:   embedcache.BackendNone,
				RedisAddr: "localhost:6379",
				TTL:       Duration(24 * time.Hour),
			},
		},
		Text: Text{RemoveStopwords: true},
	}
}

// SetDefaults registers every default except weights on v. Weights are left
// out because viper merges maps key by key, which would blend a partial user
// weight map with the defaults.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("cache-size", d.CacheSize)
	v.SetDefault("max-log-length", d.MaxLogLength)
	v.SetDefault("lexical.max-features", d.Lexical.MaxFeatures)
	v.SetDefault("lexical.ngram-min", d.Lexical.NGramMin)
	v.SetDefault("lexical.ngram-max", d.Lexical.NGramMax)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.gemini.api-key", d.Embedding.Gemini.APIKey)
	v.SetDefault("embedding.gemini.api-key-file", d.Embedding.Gemini.APIKeyFile)
	v.SetDefault("embedding.gemini.model", d.Embedding.Gemini.Model)
	v.SetDefault("embedding.gemini.dimensions", d.Embedding.Gemini.Dimensions)
	v.SetDefault("embedding.gemini.max-retries", d.Embedding.Gemini.MaxRetries)
	v.SetDefault("embedding.word-vectors.path", d.Embedding.WordVectors.Path)
	v.SetDefault("embedding.cache.backend", d.Embedding.Cache.Backend)
	v.SetDefault("embedding.cache.max-entries", d.Embedding.Cache.MaxEntries)
	v.SetDefault("embedding.cache.redis-addr", d.Embedding.Cache.RedisAddr)
	v.SetDefault("embedding.cache.redis-db", d.Embedding.Cache.RedisDB)
	v.SetDefault("embedding.cache.ttl", d.Embedding.Cache.TTL)
	v.SetDefault("text.remove-stopwords", d.Text.RemoveStopwords)
	v.SetDefault("fit.minimum-score", d.Fit.MinimumScore)
	v.SetDefault("fit.rule", d.Fit.Rule)
}

// BindEnv makes every key overridable as RESUME_MATCH_<KEY>, with dots and
// dashes replaced by underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load decodes the settings of v, rejecting unknown keys, and validates them.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("create config decoder: %w", err)
	}

	if err := decoder.Decode(v.AllSettings()); err != nil {
		return nil, fmt.Errorf("%w: decode config: %v", scoring.ErrConfiguration, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and the rules spanning several sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", scoring.ErrConfiguration, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", scoring.ErrConfiguration, err)
	}

	if c.Embedding.Provider == ai.ProviderWordVectors && strings.TrimSpace(c.Embedding.WordVectors.Path) == "" {
		return fmt.Errorf("%w: embedding.word-vectors.path is required for the %s provider", scoring.ErrConfiguration, ai.ProviderWordVectors)
	}

	return nil
}

// ScoringConfig maps the file settings onto the engine configuration.
func (c *Config) ScoringConfig() (scoring.Config, error) {
	weights, err := scoring.ParseWeights(c.Weights)
	if err != nil {
		return scoring.Config{}, err
	}

	return scoring.Config{
		Weights:   weights,
		CacheSize: c.CacheSize,
		Lexical: similarity.LexicalOptions{
			MaxFeatures: c.Lexical.MaxFeatures,
			NGramMin:    c.Lexical.NGramMin,
			NGramMax:    c.Lexical.NGramMax,
		},
		MaxLogLength: c.MaxLogLength,
	}, nil
}
