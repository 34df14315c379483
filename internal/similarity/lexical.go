package similarity

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strings"
	"sync"
)

const LexicalFrequency = "lexical_frequency"

// Tokens are runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{M}\p{N}_]{2,}`)

// LexicalOptions tunes the vocabulary built during Fit.
type LexicalOptions struct {
	// MaxFeatures keeps only the most frequent corpus terms. Zero means no limit.
	MaxFeatures int
	NGramMin    int
	NGramMax    int
}

// Lexical scores documents by the cosine of their TF-IDF vectors.
type Lexical struct {
	opts LexicalOptions

	mu         sync.RWMutex
	vocabulary map[string]int
	idf        []float64
}

func NewLexical(opts LexicalOptions) *Lexical {
	if opts.NGramMin <= 0 {
		opts.NGramMin = 1
	}
	if opts.NGramMax < opts.NGramMin {
		opts.NGramMax = opts.NGramMin
	}
	if opts.MaxFeatures < 0 {
		opts.MaxFeatures = 0
	}

	return &Lexical{opts: opts}
}

func (l *Lexical) Name() string { return LexicalFrequency }

// Fit learns the vocabulary and smoothed inverse document frequencies of the corpus.
func (l *Lexical) Fit(_ context.Context, documents []string) error {
	if len(documents) == 0 {
		return fmt.Errorf("%w: fitting corpus is empty", ErrInvalidInput)
	}

	docFreq := make(map[string]int)
	termFreq := make(map[string]int)
	for _, doc := range documents {
		seen := make(map[string]struct{})
		for _, term := range l.analyze(doc) {
			termFreq[term]++
			if _, ok := seen[term]; ok {
				continue
			}
			seen[term] = struct{}{}
			docFreq[term]++
		}
	}

	if len(docFreq) == 0 {
		return fmt.Errorf("%w: fitting corpus has no terms", ErrInvalidInput)
	}

	terms := make([]string, 0, len(docFreq))
	for term := range docFreq {
		terms = append(terms, term)
	}

	if l.opts.MaxFeatures > 0 && len(terms) > l.opts.MaxFeatures {
		slices.SortFunc(terms, func(a, b string) int {
			if c := cmp.Compare(termFreq[b], termFreq[a]); c != 0 {
				return c
			}
			return strings.Compare(a, b)
		})
		terms = terms[:l.opts.MaxFeatures]
	}
	slices.Sort(terms)

	n := float64(len(documents))
	vocabulary := make(map[string]int, len(terms))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		vocabulary[term] = i
		idf[i] = math.Log((1+n)/(1+float64(docFreq[term]))) + 1
	}

	l.mu.Lock()
	l.vocabulary = vocabulary
	l.idf = idf
	l.mu.Unlock()

	return nil
}

// Transform maps every document onto the learned vocabulary as an L2-normalized
// TF-IDF vector. Documents without known terms become zero vectors.
func (l *Lexical) Transform(_ context.Context, documents []string) ([][]float64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.vocabulary == nil {
		return nil, fmt.Errorf("%s: %w", LexicalFrequency, ErrNotFitted)
	}

	vectors := make([][]float64, 0, len(documents))
	for _, doc := range documents {
		vec := make([]float64, len(l.idf))
		for _, term := range l.analyze(doc) {
			if idx, ok := l.vocabulary[term]; ok {
				vec[idx]++
			}
		}

		var norm float64
		for i := range vec {
			vec[i] *= l.idf[i]
			norm += vec[i] * vec[i]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for i := range vec {
				vec[i] /= norm
			}
		}

		vectors = append(vectors, vec)
	}

	return vectors, nil
}

func (l *Lexical) ComputeSimilarity(ctx context.Context, a, b string) (float64, error) {
	return compute(ctx, l, a, b)
}

func (l *Lexical) SimilarityInfo(ctx context.Context, a, b string) (Info, error) {
	return describe(ctx, l, a, b)
}

// Vocabulary returns the number of learned terms.
func (l *Lexical) Vocabulary() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.vocabulary)
}

func (l *Lexical) analyze(doc string) []string {
	tokens := tokenPattern.FindAllString(strings.ToLower(doc), -1)
	if l.opts.NGramMin == 1 && l.opts.NGramMax == 1 {
		return tokens
	}

	terms := make([]string, 0, len(tokens)*(l.opts.NGramMax-l.opts.NGramMin+1))
	for n := l.opts.NGramMin; n <= l.opts.NGramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			terms = append(terms, strings.Join(tokens[i:i+n], " "))
		}
	}
	return terms
}
