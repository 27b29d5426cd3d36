package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scenarioDir holds the shared scenarios at the project root.
const scenarioDir = "../../testdata/scenarios"

// TestDemoScenarios runs the canonical scenarios end to end: expand, type
// check every usage snippet, evaluate assertions and compare plans with
// their golden files.
func TestDemoScenarios(t *testing.T) {
	tests := []struct {
		name   string
		golden bool
	}{
		{name: "message_builder", golden: true},
		{name: "door", golden: true},
		{name: "redundant_assign", golden: false},
		{name: "redundant_assign_warn", golden: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scenario, err := LoadScenario(filepath.Join(scenarioDir, tt.name+".yaml"))
			require.NoError(t, err, "failed to load scenario")
			assert.Equal(t, tt.name, scenario.Name, "scenario name mismatch")
			assert.NotEmpty(t, scenario.Description, "scenario should have description")

			var result *Result
			if tt.golden {
				result, err = RunWithGolden(t, scenario)
			} else {
				result, err = Run(scenario)
			}
			require.NoError(t, err)
			assert.True(t, result.Pass, "scenario should pass, errors: %v", result.Errors)
		})
	}
}

// TestDemoScenarios_UsageOutcomes spells out what the builder scenario
// proves about the generated API.
func TestDemoScenarios_UsageOutcomes(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "message_builder.yaml"))
	require.NoError(t, err)

	result, err := Run(scenario)
	require.NoError(t, err)
	require.Len(t, result.Usage, len(scenario.Usage))

	outcomes := map[string]bool{}
	for _, u := range result.Usage {
		outcomes[u.Name] = u.Compiles
	}
	assert.True(t, outcomes["complete"])
	assert.True(t, outcomes["body_first"])
	assert.False(t, outcomes["missing_recipient"], "Build without a recipient must not compile")
	assert.False(t, outcomes["second_body"], "a second Body must not compile")
}

func TestDemoScenarios_Deterministic(t *testing.T) {
	scenario, err := LoadScenario(filepath.Join(scenarioDir, "door.yaml"))
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := Snapshot(scenario.Name, first)
	require.NoError(t, err)
	b, err := Snapshot(scenario.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.Outputs, second.Outputs)
}
