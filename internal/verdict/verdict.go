// Package verdict turns a score bundle into a fit / no-fit decision, either
// by a minimum combined score or by a CEL rule.
package verdict

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/spigell/resume-match/internal/scoring"
)

// Evaluator decides whether a resume fits a job. The zero value is disabled.
//
// Rules see three variables:
//   - combined: the weighted score in [0, 100]
//   - scores: method name to normalized score; failed methods report 0
//   - failed: names of methods that failed
//
// Example: `combined >= 60.0 && scores.lexical_frequency > 30.0`.
type Evaluator struct {
	rule     string
	minScore float64
	prg      cel.Program
}

// New compiles rule when it is set. A non-empty rule takes precedence over minScore.
func New(rule string, minScore float64) (*Evaluator, error) {
	if minScore < 0 || minScore > 100 {
		return nil, fmt.Errorf("%w: minimum fit score %v is outside [0, 100]", scoring.ErrConfiguration, minScore)
	}

	e := &Evaluator{rule: strings.TrimSpace(rule), minScore: minScore}
	if e.rule == "" {
		return e, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("combined", cel.DoubleType),
		cel.Variable("scores", cel.MapType(cel.StringType, cel.DoubleType)),
		cel.Variable("failed", cel.ListType(cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, issues := env.Compile(e.rule)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: compile fit rule: %v", scoring.ErrConfiguration, issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("%w: fit rule must return bool, got %s", scoring.ErrConfiguration, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program fit rule: %w", err)
	}
	e.prg = prg

	return e, nil
}

// Enabled reports whether a verdict should be produced at all.
func (e *Evaluator) Enabled() bool {
	return e != nil && (e.prg != nil || e.minScore > 0)
}

// Evaluate applies the rule or threshold to b.
func (e *Evaluator) Evaluate(b *scoring.Bundle) (bool, error) {
	if !e.Enabled() {
		return false, errors.New("fit verdict is not configured")
	}
	if b == nil {
		return false, fmt.Errorf("%w: bundle is nil", scoring.ErrInvalidInput)
	}

	if e.prg == nil {
		return b.Combined.Score >= e.minScore, nil
	}

	scores := make(map[string]float64, len(b.Methods))
	for name, s := range b.Methods {
		scores[name] = s.NormalizedScore
	}
	failed := b.Failed()
	if failed == nil {
		failed = []string{}
	}

	out, _, err := e.prg.Eval(map[string]any{
		"combined": b.Combined.Score,
		"scores":   scores,
		"failed":   failed,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate fit rule: %w", err)
	}

	fit, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("fit rule returned %T, expected bool", out.Value())
	}
	return fit, nil
}

// Rule returns the configured CEL rule, if any.
func (e *Evaluator) Rule() string { return e.rule }
