package compiler

import (
	"fmt"
	"go/token"
	"log/slog"
)

// Shape error codes (E100-E109)
const (
	ErrWrongDeclaration = "E100" // directive on the wrong kind of declaration
	ErrInterfaceType    = "E101" // interface types are not supported
	ErrReceiverShape    = "E102" // receiver is not a plain generic named type
	ErrNotTypeParam     = "E103" // receiver type argument is not a type parameter
)

// Designation error codes (E110-E119)
const (
	ErrNoDesignated         = "E110" // no parameter is designated
	ErrMultipleDesignated   = "E111" // cannot designate more than one parameter
	ErrAlreadyDesignated    = "E112" // parameter carries two markers
	ErrMarkerArguments      = "E113" // designating marker takes no arguments
	ErrNoMatchingArgument   = "E114" // no argument matches the designated parameter
	ErrMultipleMatchingArgs = "E115" // only one argument can match
	ErrDesignatedPosition   = "E116" // receiver designates a different position than the struct
	ErrTypeArgumentArity    = "E117" // receiver arity differs from the struct
)

// Declaration error codes (E120-E129)
const (
	ErrNoStates         = "E120" // no states declared
	ErrDuplicateState   = "E121" // state is already declared
	ErrDuplicatePreset  = "E122" // state is already preset
	ErrPresetUndeclared = "E123" // preset state is not declared
	ErrFieldCollision   = "E124" // tracking field name already used
	ErrBlockMismatch    = "E125" // restated configuration differs from the struct
	ErrUnknownImport    = "E126" // import names no exported struct
	ErrDuplicateExport  = "E127" // export name already used
	ErrImportMismatch   = "E128" // import resolves to another struct
	ErrNameCollision    = "E129" // generated name already declared in the package
)

// Ruleset error codes (E130-E139)
const (
	ErrDuplicateRule    = "E130" // state listed twice in one rule
	ErrUndeclaredState  = "E131" // state is not declared
	ErrAssertReject     = "E132" // asserted and rejected
	ErrDeleteAssign     = "E133" // deleted and assigned
	ErrAssignAssert     = "E134" // assigned and asserted
	ErrDeleteReject     = "E135" // deleted and rejected
	ErrMultipleRulesets = "E136" // more than one //stated:op directive
)

// Option error codes (E140-E149)
const (
	ErrUnsupportedOption = "E140" // unsupported option key or directive
	ErrMalformedOption   = "E141" // entry does not parse
	ErrOptionForm        = "E142" // list given where name-value expected or vice versa
	ErrPlaceholder       = "E143" // placeholder expression without a receiver
	ErrDocsOption        = "E144" // invalid or redundant docs toggle
)

// Warning codes.
const (
	WarnRedundantAssign = "W134" // assign of an asserted state
	WarnRedundantDelete = "W135" // delete of a rejected state
	WarnSkippedOption   = "W140" // unsupported option skipped
	WarnUncallable      = "W200" // operation is never callable
	WarnNeverEnabled    = "W201" // state is never enabled
	WarnTooManyStates   = "W202" // too many states for reachability analysis
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a positioned error or warning about a template.
type Diagnostic struct {
	Code     string         `json:"code"`
	Message  string         `json:"message"`
	Severity Severity       `json:"severity"`
	Pos      token.Position `json:"-"`
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	if d.Pos.IsValid() {
		return fmt.Sprintf("%s: %s: %s", d.Pos, d.Code, d.Message)
	}
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Policy selects how recoverable violations are reported.
type Policy struct {
	// Strict makes unsupported option keys errors instead of skipped
	// warnings.
	Strict bool
	// WarnRedundant downgrades assign-of-asserted and delete-of-rejected
	// from errors to warnings.
	WarnRedundant bool
}

// DefaultPolicy is strict with redundant rules as errors.
var DefaultPolicy = Policy{Strict: true}

// Context carries the file set, policy and collected warnings of one
// expansion.
type Context struct {
	Fset     *token.FileSet
	Policy   Policy
	Logger   *slog.Logger
	Warnings []*Diagnostic
}

// NewContext returns a Context. A nil logger uses slog.Default().
func NewContext(fset *token.FileSet, policy Policy, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{Fset: fset, Policy: policy, Logger: logger}
}

// Errorf returns an error diagnostic at pos.
func (c *Context) Errorf(pos token.Pos, code, format string, args ...any) *Diagnostic {
	return &Diagnostic{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityError,
		Pos:      c.position(pos),
	}
}

// Warnf records a warning diagnostic at pos.
func (c *Context) Warnf(pos token.Pos, code, format string, args ...any) {
	d := &Diagnostic{
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Severity: SeverityWarning,
		Pos:      c.position(pos),
	}
	c.Warnings = append(c.Warnings, d)
	c.Logger.Warn("template warning",
		"code", d.Code,
		"pos", d.Pos.String(),
		"message", d.Message,
	)
}

func (c *Context) position(pos token.Pos) token.Position {
	if c.Fset == nil || !pos.IsValid() {
		return token.Position{}
	}
	return c.Fset.Position(pos)
}
