package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/stated/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	Run   string
	Cache string
}

// HistoryResult lists cache runs, or the generations of one run.
type HistoryResult struct {
	Runs        []store.Run        `json:"runs,omitempty"`
	Generations []store.Generation `json:"generations,omitempty"`
}

func (r HistoryResult) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	if r.Generations != nil {
		fmt.Fprintln(w, "SEQ\tTEMPLATE\tOUTPUT\tSTATUS")
		for _, g := range r.Generations {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", g.Seq, g.Template, g.Output, g.Status)
		}
	} else {
		fmt.Fprintln(w, "SEQ\tRUN\tCOMMAND\tFILES\tVERSION")
		for _, run := range r.Runs {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\n", run.Seq, run.ID, run.Command, run.Generations, run.GeneratorVersion)
		}
	}
	w.Flush()
	return strings.TrimSuffix(b.String(), "\n")
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded generation runs",
		Long: `List the runs recorded in the generation cache, newest first.

Examples:
  stated history
  stated history --limit 5
  stated history --run 0192f0c4-...   # generations of one run`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum number of runs (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the generations of one run")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to the cache database (default from config)")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	p, err := loadProject(opts.RootOptions)
	if err != nil {
		return formatter.Fail(err)
	}
	path := opts.Cache
	if path == "" {
		path = p.resolve(p.cfg.Cache)
	}
	st, err := store.Open(path)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeCache+": failed to open cache", err))
	}
	defer st.Close()

	var result HistoryResult
	if opts.Run != "" {
		result.Generations, err = st.RunGenerations(ctx, opts.Run)
	} else {
		result.Runs, err = st.History(ctx, opts.Limit)
	}
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeCache+": failed to read cache", err))
	}
	return formatter.Success(result)
}
