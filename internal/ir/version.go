package ir

// Version constants for the plan schema and generator.
const (
	// PlanVersion is the plan schema version recorded in fingerprints.
	PlanVersion = "1"

	// GeneratorVersion is the stated generator version.
	GeneratorVersion = "0.1.0"
)
