package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/spigell/resume-match/internal/scoring"
	"github.com/spigell/resume-match/internal/similarity"
)

func sampleResult() Result {
	b := &scoring.Bundle{
		Methods: map[string]scoring.MethodScore{
			similarity.DenseEmbedding:   {Error: "quota exceeded"},
			similarity.LexicalFrequency: {RawScore: 0.5, NormalizedScore: 50, Weight: 0.4},
		},
		Combined: scoring.Combined{
			Score:       20,
			WeightsUsed: map[string]float64{similarity.DenseEmbedding: 0.6, similarity.LexicalFrequency: 0.4},
		},
	}
	return NewResult("run-1", b)
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "JSON", sampleResult().WithFit(false)))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "run-1", decoded["run_id"])
	assert.Equal(t, false, decoded["fit"])

	report := decoded["report"].(map[string]any)
	assert.InDelta(t, 50, report["tfidf_score"], 1e-9)
	assert.InDelta(t, 0, report["sbert_score"], 1e-9)
	assert.InDelta(t, 20, report["combined_score"], 1e-9)

	details := decoded["details"].(map[string]any)
	dense := details["methods"].(map[string]any)[similarity.DenseEmbedding].(map[string]any)
	assert.Equal(t, "quota exceeded", dense["error"])
}

func TestWriteJSONOmitsFitWhenUnset(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, "", sampleResult()))
	assert.NotContains(t, buf.String(), `"fit"`)
}

func TestWriteYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleResult().WithFit(true)))

	var decoded struct {
		RunID  string         `yaml:"run_id"`
		Report scoring.Report `yaml:"report"`
		Fit    *bool          `yaml:"fit"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "run-1", decoded.RunID)
	assert.InDelta(t, 20, decoded.Report.CombinedScore, 1e-9)
	require.NotNil(t, decoded.Fit)
	assert.True(t, *decoded.Fit)
}

func TestWriteTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, sampleResult().WithFit(true)))

	out := buf.String()
	for _, want := range []string{"lexical_frequency", "dense_embedding", "quota exceeded", "50.00", "combined", "20.00", "true"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "dense_embedding"), strings.Index(out, "lexical_frequency"))
}

func TestWriteRejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	err := Write(&bytes.Buffer{}, "xml", sampleResult())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}
