package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/engine"
	"github.com/roach88/stated/internal/ir"
)

// Harness is the test execution engine. It holds the engine a scenario
// expands with and the type checker its usage runs through.
type Harness struct {
	engine  *engine.Engine
	checker *checker
	logger  *slog.Logger
}

// New creates a Harness for the scenario's settings.
func New(s Settings) *Harness {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	policy := compiler.Policy{Strict: !s.Lenient, WarnRedundant: s.WarnRedundant}
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithPolicy(policy),
	}
	if s.Field != "" {
		opts = append(opts, engine.WithField(s.Field))
	}
	if s.Description || s.Ugly {
		opts = append(opts, engine.WithDefaultDocs(ir.Docs{Description: s.Description, Ugly: s.Ugly}))
	}
	return &Harness{
		engine:  engine.New(opts...),
		checker: newChecker(),
		logger:  logger,
	}
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Expand the templates
//  2. Compare the outcome with the expect clause
//  3. Type-check each usage snippet against the generated package
//  4. Evaluate assertions
//
// A returned error means the scenario could not run at all; failed
// expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	return New(scenario.Settings).Run(scenario)
}

// Run executes scenario with h.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	result := NewResult()
	expect := scenario.Expect
	if expect == nil {
		expect = &ExpectClause{}
	}

	sources := make([]engine.Source, len(scenario.Templates))
	for i, tmpl := range scenario.Templates {
		sources[i] = engine.Source{Path: tmpl.Path, Src: []byte(tmpl.Source)}
	}

	res, err := h.engine.Expand(sources)
	if err != nil {
		var diag *compiler.Diagnostic
		if !errors.As(err, &diag) {
			return nil, fmt.Errorf("failed to expand templates: %w", err)
		}
		result.Diagnostic = diag.Code
		switch {
		case expect.Error == "":
			result.AddError(fmt.Sprintf("expansion failed: %v", diag))
		case expect.Error != diag.Code:
			result.AddError(fmt.Sprintf("expected error %s, got %v", expect.Error, diag))
		}
		return result, nil
	}
	if expect.Error != "" {
		result.AddError(fmt.Sprintf("expected error %s, expansion succeeded", expect.Error))
	}

	pkg := ""
	for _, f := range res.Files {
		result.Outputs[f.Output] = string(f.Content)
		result.Plans = append(result.Plans, f.Plan)
		pkg = f.Plan.Package
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, w.Code)
	}
	if expect.Warnings != nil && !slices.Equal(expect.Warnings, result.Warnings) {
		result.AddError(fmt.Sprintf("expected warnings %v, got %v", expect.Warnings, result.Warnings))
	}

	for _, step := range scenario.Usage {
		usage := h.checker.check(pkg, result.Outputs, step)
		result.Usage = append(result.Usage, usage)
		h.logger.Debug("usage checked", "name", step.Name, "compiles", usage.Compiles)
		if err := checkUsage(step, usage); err != nil {
			result.AddError(err.Error())
		}
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}
