package output

import (
	"cmp"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/spigell/resume-match/internal/scoring"
)

// Pair is the outcome for one resume/job combination of a batch run.
type Pair struct {
	Resume string          `json:"resume_file" yaml:"resume_file"`
	Job    string          `json:"job_file" yaml:"job_file"`
	Report scoring.Report  `json:"report" yaml:"report"`
	Bundle *scoring.Bundle `json:"details" yaml:"details"`
	Fit    *bool           `json:"fit,omitempty" yaml:"fit,omitempty"`
}

// Batch is the outcome of scoring several resumes against several jobs.
type Batch struct {
	RunID        string    `json:"run_id" yaml:"run_id"`
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	TotalResumes int       `json:"total_resumes" yaml:"total_resumes"`
	TotalJobs    int       `json:"total_jobs" yaml:"total_jobs"`
	// Top is the number of best jobs kept per resume. Zero means every pair.
	Top   int    `json:"top,omitempty" yaml:"top,omitempty"`
	Pairs []Pair `json:"scores" yaml:"scores"`
}

// TopMatches keeps the n best scoring jobs of every resume, ordered by resume
// as first seen and then by combined score descending. Non-positive n returns
// all pairs in the same order.
func TopMatches(pairs []Pair, n int) []Pair {
	var resumes []string
	byResume := make(map[string][]Pair)
	for _, p := range pairs {
		if _, ok := byResume[p.Resume]; !ok {
			resumes = append(resumes, p.Resume)
		}
		byResume[p.Resume] = append(byResume[p.Resume], p)
	}

	ranked := make([]Pair, 0, len(pairs))
	for _, resume := range resumes {
		group := byResume[resume]
		slices.SortStableFunc(group, func(a, b Pair) int {
			if c := cmp.Compare(b.Report.CombinedScore, a.Report.CombinedScore); c != 0 {
				return c
			}
			return strings.Compare(a.Job, b.Job)
		})
		if n > 0 && len(group) > n {
			group = group[:n]
		}
		ranked = append(ranked, group...)
	}
	return ranked
}

// WriteBatch renders b to w in the requested format.
func WriteBatch(w io.Writer, format string, b Batch) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(b); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTable:
		return writeBatchTable(w, b)
	default:
		return fmt.Errorf("unsupported output format %q (expected one of %s)", format, strings.Join(Formats, ", "))
	}
}

func writeBatchTable(w io.Writer, b Batch) error {
	table := tablewriter.NewWriter(w)
	table.Header("Resume", "Job", "Lexical", "Dense", "Combined", "Fit", "Failed")

	for _, p := range b.Pairs {
		fit := ""
		if p.Fit != nil {
			fit = strconv.FormatBool(*p.Fit)
		}
		var failed string
		if p.Bundle != nil {
			failed = strings.Join(p.Bundle.Failed(), ",")
		}

		row := []string{
			p.Resume,
			p.Job,
			formatFloat(p.Report.TFIDFScore, 2),
			formatFloat(p.Report.SBERTScore, 2),
			formatFloat(p.Report.CombinedScore, 2),
			fit,
			failed,
		}
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append table row: %w", err)
		}
	}

	return table.Render()
}
