package harness

import "github.com/roach88/stated/internal/ir"

// UsageResult is the type-check outcome of one usage snippet.
type UsageResult struct {
	Name     string   `json:"name"`
	Compiles bool     `json:"compiles"`
	Errors   []string `json:"errors,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	Pass bool `json:"pass"`

	// Diagnostic is the code of the error the expansion failed with.
	Diagnostic string `json:"diagnostic,omitempty"`

	// Warnings are the warning codes in report order.
	Warnings []string `json:"warnings"`

	// Outputs maps generated file names to their content.
	Outputs map[string]string `json:"outputs"`

	// Plans are the expansion plans, one per template.
	Plans []*ir.FilePlan `json:"plans"`

	// Usage holds one entry per usage step.
	Usage []UsageResult `json:"usage"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Warnings: []string{},
		Outputs:  map[string]string{},
		Plans:    []*ir.FilePlan{},
		Usage:    []UsageResult{},
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// operation returns the plan of the named operation.
func (r *Result) operation(name string) (*ir.OperationPlan, bool) {
	for _, p := range r.Plans {
		for i := range p.Operations {
			if p.Operations[i].Name == name {
				return &p.Operations[i], true
			}
		}
	}
	return nil, false
}
