package gemini

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/resume-match/internal/utils"
)

const (
	defaultModel      = "gemini-embedding-001"
	defaultMaxRetries = 3
	taskType          = "SEMANTIC_SIMILARITY"

	// batchSize is the number of contents accepted by a single embed request.
	batchSize     = 100
	baseDelay     = time.Second
	maxRetryDelay = 30 * time.Second
)

var (
	wait = utils.WaitFor

	retryAfterPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*s`)
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder encodes texts with a Gemini embedding model.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimensions int32
	maxRetries int
	logger     *zap.Logger
}

// NewEmbedder creates an Embedder configured for the Gemini API backend.
// A zero dimensions value keeps the model's native output width.
func NewEmbedder(ctx context.Context, apiKey, model string, dimensions, maxRetries int, logger *zap.Logger) (*Embedder, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newEmbedder(client.Models, model, dimensions, maxRetries, logger), nil
}

func newEmbedder(models contentEmbedder, model string, dimensions, maxRetries int, logger *zap.Logger) *Embedder {
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if dimensions < 0 {
		dimensions = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimensions: int32(dimensions),
		maxRetries: maxRetries,
		logger:     logger,
	}
}

// Embed returns one vector per text, splitting large inputs into several requests.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if e == nil || e.models == nil {
		return nil, errors.New("gemini embedder is not initialized")
	}

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += batchSize {
		end := min(start+batchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

func (e *Embedder) Model() string {
	if e == nil {
		return ""
	}
	return e.model
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, errors.New("text to embed must not be empty")
		}
		contents = append(contents, &genai.Content{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{{Text: text}},
		})
	}

	cfg := &genai.EmbedContentConfig{TaskType: taskType}
	if e.dimensions > 0 {
		dims := e.dimensions
		cfg.OutputDimensionality = &dims
	}

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		resp, err := e.models.EmbedContent(ctx, e.model, contents, cfg)
		if err == nil {
			return toVectors(resp, len(texts))
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == e.maxRetries {
			break
		}

		e.logger.Warn("gemini embed request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", e.maxRetries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := wait(ctx, delay); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("embed content: %w", lastErr)
}

func toVectors(resp *genai.EmbedContentResponse, expected int) ([][]float64, error) {
	if resp == nil {
		return nil, errors.New("gemini api returned empty response")
	}
	if len(resp.Embeddings) != expected {
		return nil, fmt.Errorf("gemini api returned %d embeddings, expected %d", len(resp.Embeddings), expected)
	}

	vectors := make([][]float64, 0, expected)
	for i, embedding := range resp.Embeddings {
		if embedding == nil || len(embedding.Values) == 0 {
			return nil, fmt.Errorf("gemini api returned empty embedding at index %d", i)
		}
		vec := make([]float64, len(embedding.Values))
		for j, v := range embedding.Values {
			vec[j] = float64(v)
		}
		vectors = append(vectors, vec)
	}

	return vectors, nil
}

// retryDelay decides whether err is worth another attempt and how long to wait.
// Quota errors asking for a long pause are not retried.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var apiErrPtr *genai.APIError
		if !errors.As(err, &apiErrPtr) || apiErrPtr == nil {
			return 0, false
		}
		apiErr = *apiErrPtr
	}

	backoff := baseDelay * time.Duration(math.Pow(2, float64(attempt-1)))

	switch apiErr.Code {
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return backoff, true
	case http.StatusTooManyRequests:
		requested, ok := requestedDelay(apiErr.Message)
		if !ok {
			return backoff, true
		}
		if requested > maxRetryDelay {
			return 0, false
		}
		return requested, true
	default:
		return 0, false
	}
}

func requestedDelay(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if len(match) != 2 {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(seconds * float64(time.Second)), true
}
