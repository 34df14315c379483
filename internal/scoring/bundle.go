package scoring

import (
	"maps"

	"github.com/spigell/resume-match/internal/similarity"
)

// MethodScore is the slot of a single method in a Bundle. When the method
// failed only Error is set.
type MethodScore struct {
	RawScore        float64 `json:"raw_score" yaml:"raw_score"`
	NormalizedScore float64 `json:"normalized_score" yaml:"normalized_score"`
	Weight          float64 `json:"weight" yaml:"weight"`
	Error           string  `json:"error,omitempty" yaml:"error,omitempty"`
}

func (s MethodScore) Failed() bool { return s.Error != "" }

type Combined struct {
	Score       float64            `json:"score" yaml:"score"`
	WeightsUsed map[string]float64 `json:"weights_used" yaml:"weights_used"`
}

// Bundle is the result of one resume/job comparison.
type Bundle struct {
	Methods  map[string]MethodScore `json:"methods" yaml:"methods"`
	Combined Combined               `json:"combined" yaml:"combined"`
}

// Report is the flat view consumed by API-style callers.
type Report struct {
	TFIDFScore    float64 `json:"tfidf_score" yaml:"tfidf_score"`
	SBERTScore    float64 `json:"sbert_score" yaml:"sbert_score"`
	CombinedScore float64 `json:"combined_score" yaml:"combined_score"`
}

func (b *Bundle) Report() Report {
	return Report{
		TFIDFScore:    b.Methods[similarity.LexicalFrequency].NormalizedScore,
		SBERTScore:    b.Methods[similarity.DenseEmbedding].NormalizedScore,
		CombinedScore: b.Combined.Score,
	}
}

// Failed returns the names of methods that could not be computed.
func (b *Bundle) Failed() []string {
	var failed []string
	for _, name := range Methods() {
		if slot, ok := b.Methods[name]; ok && slot.Failed() {
			failed = append(failed, name)
		}
	}
	return failed
}

func (b *Bundle) clone() *Bundle {
	return &Bundle{
		Methods: maps.Clone(b.Methods),
		Combined: Combined{
			Score:       b.Combined.Score,
			WeightsUsed: maps.Clone(b.Combined.WeightsUsed),
		},
	}
}
