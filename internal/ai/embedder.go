package ai

import "context"

const (
	ProviderGemini      = "gemini"
	ProviderWordVectors = "word-vectors"
)

// Embedder encodes texts into dense vectors of a fixed width.
// The returned slice has one vector per input text, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
	Model() string
}
