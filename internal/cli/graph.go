package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/engine"
)

// GraphOptions holds flags for the graph command.
type GraphOptions struct {
	*RootOptions
	DOT bool
}

// GraphResult holds the reachability of every struct.
type GraphResult struct {
	Structs  []*compiler.Reachability `json:"structs"`
	Warnings []DiagnosticOutput       `json:"warnings"`
}

func (r GraphResult) String() string {
	var b strings.Builder
	for i, g := range r.Structs {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s states(%s)\n", g.Struct, strings.Join(g.States, ", "))
		if g.Skipped {
			b.WriteString("  skipped: too many states\n")
			continue
		}
		labels := map[string]string{"": "start"}
		for _, n := range g.Nodes {
			labels[n.ID] = "[" + n.Label() + "]"
		}
		for _, e := range g.Edges {
			fmt.Fprintf(&b, "  %s --%s--> %s\n", labels[e.From], e.Op, labels[e.To])
		}
		if len(g.Uncallable) > 0 {
			fmt.Fprintf(&b, "  never callable: %s\n", strings.Join(g.Uncallable, ", "))
		}
		if len(g.NeverEnabled) > 0 {
			fmt.Fprintf(&b, "  never enabled: %s\n", strings.Join(g.NeverEnabled, ", "))
		}
		for _, c := range g.Cycles {
			names := make([]string, len(c))
			for i, id := range c {
				names[i] = labels[id]
			}
			fmt.Fprintf(&b, "  cycle: %s\n", strings.Join(names, " "))
		}
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// NewGraphCommand creates the graph command.
func NewGraphCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GraphOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "graph [dir|dir/...]...",
		Short: "Analyze which states and operations are reachable",
		Long: `Explore every concrete state combination reachable from a struct's
constructors through its operations.

Reports operations that can never be called and states that are never
enabled, and prints the transition graph. --dot renders the graph for
Graphviz:

  stated graph --dot ./mail | dot -Tsvg > mail.svg`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGraph(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DOT, "dot", false, "print Graphviz DOT instead of text or JSON")

	return cmd
}

func runGraph(ctx context.Context, opts *GraphOptions, patterns []string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	p, err := loadProject(opts.RootOptions, engine.WithReachability(true))
	if err != nil {
		return formatter.Fail(err)
	}
	pkgs, err := p.packages(patterns)
	if err != nil {
		return formatter.Fail(err)
	}

	var (
		mu     sync.Mutex
		result = GraphResult{Structs: []*compiler.Reachability{}, Warnings: []DiagnosticOutput{}}
	)
	diags, err := p.expandAll(ctx, pkgs, p.cfg.Jobs, func(_ context.Context, _ Package, res *engine.Result) error {
		mu.Lock()
		defer mu.Unlock()
		result.Structs = append(result.Structs, res.Reach...)
		result.Warnings = append(result.Warnings, diagnosticOutputs(res.Warnings)...)
		return nil
	})
	if err != nil {
		return formatter.Fail(err)
	}
	if len(diags) > 0 {
		return formatter.Diagnostics(diags)
	}
	sort.SliceStable(result.Structs, func(i, j int) bool { return result.Structs[i].Struct < result.Structs[j].Struct })

	if opts.DOT {
		for _, g := range result.Structs {
			fmt.Fprint(formatter.Writer, g.DOT())
		}
		return nil
	}
	return formatter.Success(result)
}
