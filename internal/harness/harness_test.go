package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterTemplate = `//go:build stated

package counter

//stated:struct states(Started)
type Counter[S /*stated*/ any] struct {
	n int
}

//stated:op
func (Counter[S /*stated*/]) NewCounter() Counter[_] {
	return Counter[_]{}
}

//stated:op reject(Started) assign(Started)
func (c Counter[S /*stated*/]) Start() Counter[_] {
	return _
}

//stated:op assert(Started)
func (c Counter[S /*stated*/]) Count() int {
	return c.n + 1
}
`

func counterScenario() *Scenario {
	return &Scenario{
		Name:        "counter",
		Description: "counter",
		Templates:   []Template{{Path: "counter.go", Source: counterTemplate}},
	}
}

func TestRun_Success(t *testing.T) {
	s := counterScenario()
	s.Usage = []UsageStep{
		{Name: "started", Code: "_ = Count(Start(NewCounter()))", Compiles: true},
		{Name: "unstarted", Code: "_ = Count(NewCounter())", Compiles: false},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Diagnostic)
	assert.Contains(t, result.Outputs, "counter_stated.go")
	require.Len(t, result.Plans, 1)
	assert.Equal(t, "counter", result.Plans[0].Package)

	require.Len(t, result.Usage, 2)
	assert.True(t, result.Usage[0].Compiles)
	assert.False(t, result.Usage[1].Compiles)
	assert.NotEmpty(t, result.Usage[1].Errors)
}

func TestRun_UsageMismatch(t *testing.T) {
	s := counterScenario()
	s.Usage = []UsageStep{
		{Name: "wrongly_expected", Code: "_ = Count(NewCounter())", Compiles: true},
	}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `usage "wrongly_expected": expected to compile`)
}

func TestRun_UsageImports(t *testing.T) {
	s := counterScenario()
	s.Usage = []UsageStep{{
		Name:     "with_import",
		Imports:  []string{"strconv"},
		Code:     "_ = strconv.Itoa(Count(Start(NewCounter())))",
		Compiles: true,
	}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_ExpectedError(t *testing.T) {
	s := counterScenario()
	s.Templates[0].Source = `//go:build stated

package counter

//stated:struct states(Started, Started)
type Counter[S /*stated*/ any] struct{}
`
	s.Expect = &ExpectClause{Error: "E121"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "E121", result.Diagnostic)
	assert.Empty(t, result.Outputs)
}

func TestRun_WrongError(t *testing.T) {
	s := counterScenario()
	s.Templates[0].Source = `//go:build stated

package counter

//stated:struct
type Counter[S /*stated*/ any] struct{}
`
	s.Expect = &ExpectClause{Error: "E121"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "E120", result.Diagnostic)
	assert.Contains(t, result.Errors[0], "expected error E121")
}

func TestRun_UnexpectedSuccess(t *testing.T) {
	s := counterScenario()
	s.Expect = &ExpectClause{Error: "E100"}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expansion succeeded")
}

func TestRun_Warnings(t *testing.T) {
	s := counterScenario()
	s.Expect = &ExpectClause{Warnings: []string{"W140"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors[0], "expected warnings [W140], got []")
}

func TestRun_ParseError(t *testing.T) {
	s := counterScenario()
	s.Templates[0].Source = "package counter\nfunc {"

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to expand templates")
}

func TestRun_Settings(t *testing.T) {
	s := counterScenario()
	s.Settings = Settings{Field: "marker"}
	s.Assertions = []Assertion{{Type: AssertOutputContains, Text: "marker state.Marker[S]"}}

	result, err := Run(s)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestUsageSource(t *testing.T) {
	src := usageSource("counter", UsageStep{Imports: []string{"fmt"}, Code: "fmt.Println()"})
	assert.Equal(t, "package counter\n\nimport \"fmt\"\n\nfunc _() {\nfmt.Println()\n}\n", src)
}
