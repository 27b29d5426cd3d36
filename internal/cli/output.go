package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/roach88/stated/internal/compiler"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Templates expanded, outputs up to date
	ExitFailure      = 1 // Template diagnostics or stale outputs
	ExitCommandError = 2 // Command error (invalid paths, bad config, unwritable files, etc.)
)

// ExitError ends a command with a specific exit code. Message starts with
// the code reported to the user, as in "E134: 2 template error(s)".
type ExitError struct {
	Code    int
	Message string
	Err     error // optional
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ReportCode returns the code Message starts with, or ErrCodeGeneric.
func (e *ExitError) ReportCode() string {
	if c, _, found := strings.Cut(e.Message, ":"); found {
		return c
	}
	return ErrCodeGeneric
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// DiagnosticOutput is the JSON form of a template diagnostic.
type DiagnosticOutput struct {
	File     string `json:"file,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}

func (d DiagnosticOutput) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Code, d.Message)
}

func diagnosticOutputs(diags []*compiler.Diagnostic) []DiagnosticOutput {
	out := make([]DiagnosticOutput, len(diags))
	for i, d := range diags {
		out[i] = DiagnosticOutput{
			File:     d.Pos.Filename,
			Line:     d.Pos.Line,
			Column:   d.Pos.Column,
			Code:     d.Code,
			Severity: string(d.Severity),
			Message:  d.Message,
		}
	}
	return out
}

// OutputFormatter writes command results as text or JSON.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output; defaults to Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command's output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok" or "error"
	Data   any       `json:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // cache run that produced the output
}

// CLIError is the error of a failed command.
type CLIError struct {
	Code    string             `json:"code"`              // "E001", "E134", etc.
	Message string             `json:"message"`           // human-readable message
	Details []DiagnosticOutput `json:"details,omitempty"` // template diagnostics, errors first
	Stale   []CheckFile        `json:"stale,omitempty"`   // outputs check found out of date
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	return f.SuccessRun("", data)
}

// SuccessRun is Success with the cache run recorded in JSON output.
func (f *OutputFormatter) SuccessRun(runID string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "ok",
			Data:   data,
			RunID:  runID,
		})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs a command error in the configured format.
func (f *OutputFormatter) Error(code, message string) error {
	return f.fail(&CLIError{Code: code, Message: message})
}

func (f *OutputFormatter) fail(e *CLIError) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: e})
	}
	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", e.Code, e.Message)
	return nil
}

// Fail reports err and returns it as an ExitError. Errors that carry no
// exit code end the command with ExitCommandError.
func (f *OutputFormatter) Fail(err error) error {
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = WrapExitError(ExitCommandError, ErrCodeGeneric+": command failed", err)
		err = exitErr
	}
	_ = f.Error(exitErr.ReportCode(), err.Error())
	return err
}

// Diagnostics reports template errors and returns the exit error. Text
// output has one line per diagnostic, in the compiler's format.
func (f *OutputFormatter) Diagnostics(diags []*compiler.Diagnostic) error {
	code := diags[0].Code
	message := fmt.Sprintf("%d template error(s)", len(diags))
	if f.Format == "json" {
		_ = f.fail(&CLIError{Code: code, Message: message, Details: diagnosticOutputs(diags)})
	} else {
		for _, d := range diags {
			fmt.Fprintln(f.Writer, d.Error())
		}
		f.VerboseLog("%s: %s", code, message)
	}
	return NewExitError(ExitFailure, code+": "+message)
}

// Stale reports outputs that check found out of date and returns the exit
// error.
func (f *OutputFormatter) Stale(result CheckResult) error {
	stale := result.Stale()
	message := fmt.Sprintf("%d output(s) out of date", len(stale))
	if f.Format == "json" {
		_ = f.fail(&CLIError{Code: ErrCodeStale, Message: message, Details: result.Warnings, Stale: stale})
	} else {
		fmt.Fprintln(f.Writer, result)
	}
	return NewExitError(ExitFailure, ErrCodeStale+": "+message)
}

// VerboseLog outputs a message only if verbose mode is enabled.
// It writes to ErrWriter when set so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
