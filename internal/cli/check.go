package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/stated/internal/engine"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Jobs int
}

// Output states reported by check.
const (
	CheckOK      = "ok"
	CheckStale   = "stale"
	CheckMissing = "missing"
)

// CheckFile reports one generated file.
type CheckFile struct {
	Template string `json:"template"`
	Output   string `json:"output"`
	State    string `json:"state"`
}

// CheckResult holds the outcome of check.
type CheckResult struct {
	Files    []CheckFile        `json:"files"`
	Warnings []DiagnosticOutput `json:"warnings"`
}

// Stale returns the files that need regeneration.
func (r CheckResult) Stale() []CheckFile {
	var out []CheckFile
	for _, f := range r.Files {
		if f.State != CheckOK {
			out = append(out, f)
		}
	}
	return out
}

func (r CheckResult) String() string {
	var b strings.Builder
	for _, w := range r.Warnings {
		fmt.Fprintln(&b, w)
	}
	stale := r.Stale()
	for _, f := range stale {
		fmt.Fprintf(&b, "%s: %s\n", f.Output, f.State)
	}
	if len(stale) == 0 {
		fmt.Fprintf(&b, "✓ %d template(s) valid, outputs up to date", len(r.Files))
	} else {
		fmt.Fprintf(&b, "✗ %d of %d output(s) out of date; run stated generate", len(stale), len(r.Files))
	}
	return b.String()
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check [dir|dir/...]...",
		Short: "Validate templates and verify generated files are current",
		Long: `Expand templates in memory without writing anything.

Reports template diagnostics, then compares each expansion with the
generated file on disk. Exits with status 1 when a template is invalid or
a generated file is missing or out of date, which makes check suitable for
CI.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "directories expanded concurrently (default from config)")

	return cmd
}

func runCheck(ctx context.Context, opts *CheckOptions, patterns []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	p, err := loadProject(opts.RootOptions)
	if err != nil {
		return formatter.Fail(err)
	}
	pkgs, err := p.packages(patterns)
	if err != nil {
		return formatter.Fail(err)
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = p.cfg.Jobs
	}

	var (
		mu     sync.Mutex
		result = CheckResult{Files: []CheckFile{}}
	)
	diags, err := p.expandAll(ctx, pkgs, jobs, func(_ context.Context, _ Package, res *engine.Result) error {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range res.Files {
			result.Files = append(result.Files, CheckFile{Template: f.Source, Output: f.Output, State: compareOutput(f)})
		}
		result.Warnings = append(result.Warnings, diagnosticOutputs(res.Warnings)...)
		return nil
	})
	if err != nil {
		return formatter.Fail(err)
	}
	if len(diags) > 0 {
		return formatter.Diagnostics(diags)
	}
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Template < result.Files[j].Template })
	if result.Warnings == nil {
		result.Warnings = []DiagnosticOutput{}
	}

	if len(result.Stale()) > 0 {
		return formatter.Stale(result)
	}
	return formatter.Success(result)
}

// compareOutput classifies the generated file on disk against f.
func compareOutput(f engine.File) string {
	existing, err := os.ReadFile(f.Output)
	if err != nil {
		return CheckMissing
	}
	if !bytes.Equal(existing, f.Content) {
		return CheckStale
	}
	return CheckOK
}
