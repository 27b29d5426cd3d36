package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/stated/internal/engine"
	"github.com/roach88/stated/internal/ir"
)

// PlanOptions holds flags for the plan command.
type PlanOptions struct {
	*RootOptions
}

// PlanReport is the expansion plan of every template, in canonical JSON.
type PlanReport struct {
	Plans []*ir.FilePlan
	// Paths maps a plan to the template and output paths it was expanded
	// from. Plans record base names only.
	Paths map[*ir.FilePlan][2]string
}

// MarshalJSON emits the canonical encoding so reports are byte-stable.
func (r PlanReport) MarshalJSON() ([]byte, error) {
	plans := make(ir.Array, len(r.Plans))
	for i, p := range r.Plans {
		plans[i] = p.ToValue()
	}
	return ir.MarshalCanonical(plans)
}

func (r PlanReport) String() string {
	var b strings.Builder
	for i, p := range r.Plans {
		if i > 0 {
			b.WriteString("\n")
		}
		src, out := p.Source, p.Output
		if paths, ok := r.Paths[p]; ok {
			src, out = paths[0], paths[1]
		}
		fmt.Fprintf(&b, "%s -> %s (package %s)\n", src, out, p.Package)
		for _, s := range p.Structs {
			fmt.Fprintf(&b, "  struct %s states(%s)", s.Name, strings.Join(s.States, ", "))
			if len(s.Preset) > 0 {
				fmt.Fprintf(&b, " preset(%s)", strings.Join(s.Preset, ", "))
			}
			if s.Export != s.Name {
				fmt.Fprintf(&b, " export = %s", s.Export)
			}
			b.WriteString("\n")
		}
		for _, op := range p.Operations {
			in := "new"
			if !op.IsConstructor() {
				in = "(" + strings.Join(op.Incoming, ", ") + ")"
			}
			fmt.Fprintf(&b, "  %s.%s %s -> (%s)\n", op.Struct, op.Name, in, strings.Join(op.Outgoing, ", "))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewPlanCommand creates the plan command.
func NewPlanCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlanOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plan [dir|dir/...]...",
		Short: "Show the expansion plan of templates",
		Long: `Expand templates in memory and print what would be generated: each
struct's states and each operation's incoming and outgoing state tuples.

With --format json the plans are printed in canonical JSON, the same
encoding the generation cache fingerprints.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd.Context(), opts, args, cmd)
		},
	}

	return cmd
}

func runPlan(ctx context.Context, opts *PlanOptions, patterns []string, cmd *cobra.Command) error {
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

	var (
		mu     sync.Mutex
		report = PlanReport{Paths: map[*ir.FilePlan][2]string{}}
	)
	diags, err := p.expandAll(ctx, pkgs, p.cfg.Jobs, func(_ context.Context, _ Package, res *engine.Result) error {
		mu.Lock()
		defer mu.Unlock()
		for _, f := range res.Files {
			report.Plans = append(report.Plans, f.Plan)
			report.Paths[f.Plan] = [2]string{f.Source, f.Output}
		}
		return nil
	})
	if err != nil {
		return formatter.Fail(err)
	}
	if len(diags) > 0 {
		return formatter.Diagnostics(diags)
	}
	sort.Slice(report.Plans, func(i, j int) bool {
		return report.Paths[report.Plans[i]][0] < report.Paths[report.Plans[j]][0]
	})
	if report.Plans == nil {
		report.Plans = []*ir.FilePlan{}
	}
	return formatter.Success(report)
}
