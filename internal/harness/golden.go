package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/stated/internal/ir"
)

// PlanSnapshot captures the plans of a scenario execution.
// All fields use canonical JSON serialization for deterministic comparison.
type PlanSnapshot struct {
	ScenarioName string         `json:"scenario_name"`
	Warnings     []string       `json:"warnings"`
	Plans        []*ir.FilePlan `json:"plans"`
}

// toValue converts a PlanSnapshot to an ir.Value for canonical serialization.
func (s *PlanSnapshot) toValue() ir.Object {
	plans := make(ir.Array, len(s.Plans))
	for i, p := range s.Plans {
		plans[i] = p.ToValue()
	}
	return ir.Object{
		"scenario_name": ir.String(s.ScenarioName),
		"warnings":      ir.Strings(s.Warnings),
		"plans":         plans,
	}
}

// Snapshot returns the canonical JSON of the result's plans.
func Snapshot(scenarioName string, result *Result) ([]byte, error) {
	snapshot := PlanSnapshot{
		ScenarioName: scenarioName,
		Warnings:     result.Warnings,
		Plans:        result.Plans,
	}
	return ir.MarshalCanonical(snapshot.toValue())
}

// RunWithGolden executes a scenario and compares its plans against a golden
// file. The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass and usage outcomes.
// Test failure (via goldie) occurs if the plans don't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's plans against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	planJSON, err := Snapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, planJSON)
	return nil
}
