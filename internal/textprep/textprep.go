// Package textprep turns raw resume and job description files into the
// normalized plain text the scoring engine consumes.
package textprep

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	//go:embed stopwords.txt
	stopwordList string

	stopwords = func() map[string]struct{} {
		words := strings.Fields(stopwordList)
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			set[w] = struct{}{}
		}
		return set
	}()

	emailPattern     = regexp.MustCompile(`\S+@\S+`)
	urlPattern       = regexp.MustCompile(`https?://\S+|www\.\S+`)
	nonLetterPattern = regexp.MustCompile(`[^\p{L}\s]+`)
	spacePattern     = regexp.MustCompile(`\s+`)
)

var ErrUnsupportedFormat = errors.New("unsupported document format")

// Processor normalizes document text before scoring.
type Processor struct {
	removeStopwords bool
}

func New(removeStopwords bool) *Processor {
	return &Processor{removeStopwords: removeStopwords}
}

// Clean lowercases text and strips e-mails, URLs, digits and punctuation,
// collapsing whitespace runs into single spaces.
func (p *Processor) Clean(text string) string {
	text = strings.ToLower(text)
	text = emailPattern.ReplaceAllString(text, " ")
	text = urlPattern.ReplaceAllString(text, " ")
	text = nonLetterPattern.ReplaceAllString(text, " ")
	text = spacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Prepare cleans text and optionally drops English stopwords.
func (p *Processor) Prepare(text string) string {
	text = p.Clean(text)
	if !p.removeStopwords {
		return text
	}

	words := strings.Fields(text)
	kept := words[:0]
	for _, w := range words {
		if _, ok := stopwords[w]; ok {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

// IsStopword reports whether word is in the built-in English stopword list.
func IsStopword(word string) bool {
	_, ok := stopwords[strings.ToLower(word)]
	return ok
}

// ReadFile loads a document and returns its plain text. HTML is reduced to
// its visible text.
func ReadFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".text", ".html", ".htm", "":
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	if ext == ".html" || ext == ".htm" {
		return HTMLToText(string(data))
	}
	return string(data), nil
}

// HTMLToText extracts the visible text of an HTML document. Block elements
// are separated by line breaks so adjacent items do not merge.
func HTMLToText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, template").Remove()
	doc.Find("br").ReplaceWithHtml("\n")
	doc.Find("p, div, li, ul, ol, tr, td, th, h1, h2, h3, h4, h5, h6, section, article, header, footer").AppendHtml("\n")

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	lines := strings.Split(root.Text(), "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n"), nil
}
