package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: templates to expand, the
// expected outcome of the expansion, and usage snippets to type-check
// against the generated code.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Templates are the template files of one package.
	Templates []Template `yaml:"templates"`

	// Settings override engine defaults.
	Settings Settings `yaml:"settings,omitempty"`

	// Expect describes the expansion outcome. Nil expects success with no
	// warnings checked.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Usage lists snippets type-checked against the generated package.
	Usage []UsageStep `yaml:"usage,omitempty"`

	// Assertions validate the generated code and plans.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Template is one template file, given inline or by path.
type Template struct {
	// Path is the file name passed to the engine.
	Path string `yaml:"path"`

	// Source is the inline template source.
	Source string `yaml:"source,omitempty"`

	// File is read when Source is empty. Relative paths resolve against
	// the scenario's base path.
	File string `yaml:"file,omitempty"`
}

// Settings are the engine options a scenario may change.
type Settings struct {
	Field         string `yaml:"field,omitempty"`
	Lenient       bool   `yaml:"lenient,omitempty"`
	WarnRedundant bool   `yaml:"warn_redundant,omitempty"`
	Description   bool   `yaml:"description,omitempty"`
	Ugly          bool   `yaml:"ugly,omitempty"`
}

// ExpectClause specifies the expected expansion result.
type ExpectClause struct {
	// Error is the diagnostic code the expansion must fail with.
	Error string `yaml:"error,omitempty"`

	// Warnings are the warning codes expected, in report order.
	Warnings []string `yaml:"warnings,omitempty"`
}

// UsageStep is a snippet of statements placed in a function body of the
// generated package.
type UsageStep struct {
	Name string `yaml:"name"`

	// Imports are extra import paths the snippet needs.
	Imports []string `yaml:"imports,omitempty"`

	// Code is the function body.
	Code string `yaml:"code"`

	// Compiles is the expected type-check outcome.
	Compiles bool `yaml:"compiles"`

	// ErrorContains, when set on a failing snippet, must occur in one of
	// the type errors.
	ErrorContains string `yaml:"error_contains,omitempty"`
}

// Assertion validates generated code or plans.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Text is matched by output_contains and output_excludes.
	Text string `yaml:"text,omitempty"`

	// Operation names the operation checked by operation.
	Operation string `yaml:"operation,omitempty"`

	// Kind is the expected operation kind ("constructor" or "receiver").
	Kind string `yaml:"kind,omitempty"`

	// Incoming and Outgoing are the expected tuples. Nil skips the check.
	Incoming []string `yaml:"incoming,omitempty"`
	Outgoing []string `yaml:"outgoing,omitempty"`

	// Code is the warning code checked by warning.
	Code string `yaml:"code,omitempty"`
}

// Assertion type constants.
const (
	AssertOutputContains = "output_contains"
	AssertOutputExcludes = "output_excludes"
	AssertOperation      = "operation"
	AssertWarning        = "warning"
)

// LoadScenario reads and parses a scenario YAML file. Template files
// resolve relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving template file paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario parses scenario YAML. Template files are read relative to
// basePath.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	// Parse YAML with strict field validation (catches typos like "usages:" vs "usage:")
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	for i, tmpl := range scenario.Templates {
		if tmpl.Source != "" {
			continue
		}
		file := tmpl.File
		if !filepath.IsAbs(file) && basePath != "" {
			file = filepath.Join(basePath, file)
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("templates[%d]: %w", i, err)
		}
		scenario.Templates[i].Source = string(src)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Templates) == 0 {
		return fmt.Errorf("templates list is required and must be non-empty")
	}

	for i, tmpl := range s.Templates {
		if tmpl.Path == "" {
			return fmt.Errorf("templates[%d]: path is required", i)
		}
		if tmpl.Source == "" && tmpl.File == "" {
			return fmt.Errorf("templates[%d]: source or file is required", i)
		}
		if tmpl.Source != "" && tmpl.File != "" {
			return fmt.Errorf("templates[%d]: source and file are mutually exclusive", i)
		}
	}

	failing := s.Expect != nil && s.Expect.Error != ""
	if failing && len(s.Usage) > 0 {
		return fmt.Errorf("usage requires a successful expansion, but expect.error is set")
	}

	names := map[string]bool{}
	for i, step := range s.Usage {
		if step.Name == "" {
			return fmt.Errorf("usage[%d]: name is required", i)
		}
		if names[step.Name] {
			return fmt.Errorf("usage[%d]: duplicate name %q", i, step.Name)
		}
		names[step.Name] = true
		if step.Code == "" {
			return fmt.Errorf("usage[%d]: code is required", i)
		}
		if step.Compiles && step.ErrorContains != "" {
			return fmt.Errorf("usage[%d]: error_contains requires compiles: false", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertOutputContains, AssertOutputExcludes:
		if a.Text == "" {
			return fmt.Errorf("assertions[%d]: text is required for %s", index, a.Type)
		}
	case AssertOperation:
		if a.Operation == "" {
			return fmt.Errorf("assertions[%d]: operation is required for operation", index)
		}
		if a.Kind != "" && a.Kind != "constructor" && a.Kind != "receiver" {
			return fmt.Errorf("assertions[%d]: unknown kind %q", index, a.Kind)
		}
	case AssertWarning:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for warning", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
