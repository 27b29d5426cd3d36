package harness

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/roach88/stated/internal/ir"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
	Diff     string // cmp diff of expected and actual, when structured
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if e.Diff != "" {
		fmt.Fprintf(&buf, "\nDiff (-want +got):\n%s", e.Diff)
	}
	return buf.String()
}

// squash collapses whitespace runs so matches ignore gofmt layout.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// outputs returns the generated files in name order.
func outputs(result *Result) []string {
	names := make([]string, 0, len(result.Outputs))
	for name := range result.Outputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// assertOutputContains checks that some generated file contains the text.
func assertOutputContains(result *Result, assertion Assertion) error {
	want := squash(assertion.Text)
	for _, name := range outputs(result) {
		if strings.Contains(squash(result.Outputs[name]), want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertOutputContains,
		Expected: fmt.Sprintf("output containing %q", assertion.Text),
		Actual:   fmt.Sprintf("no match in %v", outputs(result)),
	}
}

// assertOutputExcludes checks that no generated file contains the text.
func assertOutputExcludes(result *Result, assertion Assertion) error {
	want := squash(assertion.Text)
	for _, name := range outputs(result) {
		if strings.Contains(squash(result.Outputs[name]), want) {
			return &AssertionError{
				Type:     AssertOutputExcludes,
				Expected: fmt.Sprintf("no output containing %q", assertion.Text),
				Actual:   fmt.Sprintf("found in %s", name),
			}
		}
	}
	return nil
}

// assertOperation checks the plan of one operation.
func assertOperation(result *Result, assertion Assertion) error {
	op, ok := result.operation(assertion.Operation)
	if !ok {
		return &AssertionError{
			Type:     AssertOperation,
			Expected: fmt.Sprintf("operation %s", assertion.Operation),
			Actual:   fmt.Sprintf("not generated; operations: %v", planOperations(result.Plans)),
		}
	}

	type shape struct {
		Kind     string
		Incoming []string
		Outgoing []string
	}
	want := shape{Kind: assertion.Kind, Incoming: assertion.Incoming, Outgoing: assertion.Outgoing}
	got := shape{Kind: op.Kind, Incoming: op.Incoming, Outgoing: op.Outgoing}
	// Unset fields are not checked.
	if want.Kind == "" {
		got.Kind = ""
	}
	if want.Incoming == nil {
		got.Incoming = nil
	}
	if want.Outgoing == nil {
		got.Outgoing = nil
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		return &AssertionError{
			Type:     AssertOperation,
			Expected: describeOperation(op.Name, want.Kind, want.Incoming, want.Outgoing),
			Actual:   describeOperation(op.Name, op.Kind, op.Incoming, op.Outgoing),
			Diff:     diff,
		}
	}
	return nil
}

func describeOperation(name, kind string, in, out []string) string {
	return fmt.Sprintf("%s %s (%s) -> (%s)", kind, name, strings.Join(in, ", "), strings.Join(out, ", "))
}

// assertWarning checks that a warning with the code was reported.
func assertWarning(result *Result, assertion Assertion) error {
	if slices.Contains(result.Warnings, assertion.Code) {
		return nil
	}
	return &AssertionError{
		Type:     AssertWarning,
		Expected: fmt.Sprintf("warning %s", assertion.Code),
		Actual:   fmt.Sprintf("warnings %v", result.Warnings),
	}
}

// checkUsage compares a usage outcome with its step.
func checkUsage(step UsageStep, usage UsageResult) error {
	switch {
	case step.Compiles && !usage.Compiles:
		return fmt.Errorf("usage %q: expected to compile, got: %s", step.Name, strings.Join(usage.Errors, "; "))
	case !step.Compiles && usage.Compiles:
		return fmt.Errorf("usage %q: expected a type error, but it compiles", step.Name)
	case step.ErrorContains != "":
		for _, msg := range usage.Errors {
			if strings.Contains(msg, step.ErrorContains) {
				return nil
			}
		}
		return fmt.Errorf("usage %q: no type error contains %q: %s", step.Name, step.ErrorContains, strings.Join(usage.Errors, "; "))
	}
	return nil
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertOutputContains:
			err = assertOutputContains(result, assertion)
		case AssertOutputExcludes:
			err = assertOutputExcludes(result, assertion)
		case AssertOperation:
			err = assertOperation(result, assertion)
		case AssertWarning:
			err = assertWarning(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// planOperations lists every operation plan for diagnostics.
func planOperations(plans []*ir.FilePlan) []string {
	var out []string
	for _, p := range plans {
		for _, op := range p.Operations {
			out = append(out, describeOperation(op.Name, op.Kind, op.Incoming, op.Outgoing))
		}
	}
	return out
}
