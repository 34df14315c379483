// Package output renders score results for the terminal or other programs.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/spigell/resume-match/internal/scoring"
)

const (
	FormatJSON  = "json"
	FormatYAML  = "yaml"
	FormatTable = "table"
)

// Formats lists the supported output formats.
var Formats = []string{FormatJSON, FormatYAML, FormatTable}

// Result is the outcome of a single score command.
type Result struct {
	RunID  string          `json:"run_id" yaml:"run_id"`
	Report scoring.Report  `json:"report" yaml:"report"`
	Bundle *scoring.Bundle `json:"details" yaml:"details"`
	Fit    *bool           `json:"fit,omitempty" yaml:"fit,omitempty"`
}

func NewResult(runID string, bundle *scoring.Bundle) Result {
	return Result{RunID: runID, Report: bundle.Report(), Bundle: bundle}
}

func (r Result) WithFit(fit bool) Result {
	r.Fit = &fit
	return r
}

// Write renders r to w in the requested format.
func Write(w io.Writer, format string, r Result) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTable:
		return writeTable(w, r)
	default:
		return fmt.Errorf("unsupported output format %q (expected one of %s)", format, strings.Join(Formats, ", "))
	}
}

func writeTable(w io.Writer, r Result) error {
	table := tablewriter.NewWriter(w)
	table.Header("Method", "Weight", "Raw", "Score", "Error")

	if r.Bundle != nil {
		names := make([]string, 0, len(r.Bundle.Methods))
		for name := range r.Bundle.Methods {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			s := r.Bundle.Methods[name]
			weight := r.Bundle.Combined.WeightsUsed[name]
			row := []string{name, formatFloat(weight, 2), formatFloat(s.RawScore, 4), formatFloat(s.NormalizedScore, 2), s.Error}
			if s.Failed() {
				row[2], row[3] = "-", "-"
			}
			if err := table.Append(row); err != nil {
				return fmt.Errorf("append table row: %w", err)
			}
		}
	}

	if err := table.Append([]string{"combined", "", "", formatFloat(r.Report.CombinedScore, 2), ""}); err != nil {
		return fmt.Errorf("append table row: %w", err)
	}

	if r.Fit != nil {
		if err := table.Append([]string{"fit", "", "", strconv.FormatBool(*r.Fit), ""}); err != nil {
			return fmt.Errorf("append table row: %w", err)
		}
	}

	return table.Render()
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}
