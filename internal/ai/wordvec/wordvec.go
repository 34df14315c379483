// Package wordvec embeds texts by averaging pretrained word vectors read
// from a word2vec text file.
package wordvec

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Model holds a vocabulary of fixed-width word vectors.
type Model struct {
	name    string
	width   int
	vectors map[string][]float64
}

// Load reads a word2vec text file. The optional "<count> <width>" header line
// is detected and skipped.
func Load(path string) (*Model, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("word vectors path is required")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open word vectors: %w", err)
	}
	defer f.Close()

	m := &Model{
		name:    "word-vectors:" + filepath.Base(path),
		vectors: make(map[string][]float64),
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if line == 1 && isHeader(fields) {
			continue
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected a word followed by its vector", line)
		}

		vec := make([]float64, len(fields)-1)
		for i, raw := range fields[1:] {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: parse component %d: %w", line, i, err)
			}
			vec[i] = v
		}

		if m.width == 0 {
			m.width = len(vec)
		} else if len(vec) != m.width {
			return nil, fmt.Errorf("line %d: vector has width %d, expected %d", line, len(vec), m.width)
		}

		m.vectors[strings.ToLower(fields[0])] = vec
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read word vectors: %w", err)
	}

	if len(m.vectors) == 0 {
		return nil, fmt.Errorf("word vectors file %q contains no vectors", path)
	}

	return m, nil
}

func isHeader(fields []string) bool {
	if len(fields) != 2 {
		return false
	}
	for _, f := range fields {
		if _, err := strconv.Atoi(f); err != nil {
			return false
		}
	}
	return true
}

// Embed averages the vectors of the known words in every text. Texts without
// known words map to the zero vector.
func (m *Model) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, 0, len(texts))
	for _, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sum := make([]float64, m.width)
		known := 0
		for _, word := range wordPattern.FindAllString(strings.ToLower(text), -1) {
			vec, ok := m.vectors[word]
			if !ok {
				continue
			}
			known++
			for i, v := range vec {
				sum[i] += v
			}
		}

		if known > 0 {
			for i := range sum {
				sum[i] /= float64(known)
			}
		}
		vectors = append(vectors, sum)
	}

	return vectors, nil
}

func (m *Model) Model() string { return m.name }

// Width returns the dimensionality of the vectors.
func (m *Model) Width() int { return m.width }

// Len returns the vocabulary size.
func (m *Model) Len() int { return len(m.vectors) }
