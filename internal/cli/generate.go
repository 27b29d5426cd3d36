package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/engine"
	"github.com/roach88/stated/internal/ir"
	"github.com/roach88/stated/internal/store"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Jobs    int
	Force   bool
	NoCache bool
	Cache   string
}

// FileResult reports one template of a generate run.
type FileResult struct {
	Template string `json:"template"`
	Output   string `json:"output"`
	Status   string `json:"status"` // store.StatusGenerated, store.StatusCached or StatusRemoved
}

// StatusRemoved marks the output of a deleted template that was removed.
const StatusRemoved = "removed"

// GenerateResult holds the outcome of a generate run.
type GenerateResult struct {
	RunID    string             `json:"run_id,omitempty"`
	Files    []FileResult       `json:"files"`
	Warnings []DiagnosticOutput `json:"warnings"`
}

func (r GenerateResult) String() string {
	var b strings.Builder
	generated, cached, removed := 0, 0, 0
	for _, f := range r.Files {
		switch f.Status {
		case store.StatusCached:
			cached++
		case StatusRemoved:
			removed++
			fmt.Fprintf(&b, "%s removed\n", f.Output)
		default:
			generated++
			fmt.Fprintf(&b, "%s -> %s\n", f.Template, f.Output)
		}
	}
	for _, w := range r.Warnings {
		fmt.Fprintln(&b, w)
	}
	fmt.Fprintf(&b, "✓ %d generated, %d up to date", generated, cached)
	if removed > 0 {
		fmt.Fprintf(&b, ", %d removed", removed)
	}
	return b.String()
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate [dir|dir/...]...",
		Short: "Expand templates into generated files",
		Long: `Expand every template in the given directories.

Each template <name>.go is written to <name>_stated.go next to it.
Directories are expanded concurrently; templates of one directory are
expanded together so structs may be shared between them.

A template whose sources, settings and generated file are unchanged since
its last generation is skipped. --force regenerates everything.

The generated file of a template that was deleted, or is no longer built
only with the template tag, is removed if it is unchanged since it was
written. Removal needs the cache.

Examples:
  stated generate
  stated generate ./...
  stated generate --jobs 8 --force ./internal/...`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), opts, args, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "directories expanded concurrently (default from config)")
	cmd.Flags().BoolVar(&opts.Force, "force", false, "regenerate up-to-date templates")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "do not read or record the generation cache")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to the cache database (default from config)")

	return cmd
}

func runGenerate(ctx context.Context, opts *GenerateOptions, patterns []string, cmd *cobra.Command) error {
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
	formatter.VerboseLog("Found %d template package(s)", len(pkgs))

	g, err := newGenerator(p, opts, "generate")
	if err != nil {
		return formatter.Fail(err)
	}
	defer g.close()
	g.pruneAll = true

	result, diags, err := g.run(ctx, pkgs)
	if err != nil {
		return formatter.Fail(err)
	}
	if len(diags) > 0 {
		return formatter.Diagnostics(diags)
	}
	if formatter.Format == "json" {
		return formatter.SuccessRun(result.RunID, result)
	}
	return formatter.Success(result)
}

// generator expands packages, writes their outputs and keeps the cache.
type generator struct {
	p       *project
	st      *store.Store // nil without cache
	command string
	force   bool
	jobs    int
	cfgHash string // engine settings, recorded per generation
	runHash string // project configuration, recorded per run

	// pruneAll removes orphaned outputs anywhere in the cache rather than
	// only in the directories being generated.
	pruneAll bool

	runRec *store.Run

	mu    sync.Mutex
	files []FileResult
	warns []*compiler.Diagnostic
}

func newGenerator(p *project, opts *GenerateOptions, command string) (*generator, error) {
	g := &generator{p: p, force: opts.Force, jobs: opts.Jobs, command: command}
	if g.jobs <= 0 {
		g.jobs = p.cfg.Jobs
	}
	cfgHash, err := p.settingsHash()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeGeneric+": fingerprint settings", err)
	}
	g.cfgHash = cfgHash
	if opts.NoCache {
		return g, nil
	}

	runHash, err := ir.ConfigFingerprint(p.cfg.Value())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeGeneric+": fingerprint configuration", err)
	}
	g.runHash = runHash

	path := opts.Cache
	if path == "" {
		path = p.resolve(p.cfg.Cache)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeCache+": failed to open cache", err)
	}
	g.st = st
	return g, nil
}

func (g *generator) close() {
	if g.st != nil {
		g.st.Close()
	}
}

// run generates every package as one cache run and returns the sorted
// file results.
func (g *generator) run(ctx context.Context, pkgs []Package) (*GenerateResult, []*compiler.Diagnostic, error) {
	g.files = nil
	g.warns = nil
	if g.st != nil {
		run, err := g.st.BeginRun(ctx, g.command, g.runHash)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, ErrCodeCache+": failed to record run", err)
		}
		g.runRec = run
		g.p.logger.Debug("run started", "run_id", run.ID, "seq", run.Seq)
	}

	var fresh []Package
	var stale []Package
	for _, pkg := range pkgs {
		ok, err := g.upToDate(ctx, pkg)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			fresh = append(fresh, pkg)
		} else {
			stale = append(stale, pkg)
		}
	}
	for _, pkg := range fresh {
		if err := g.recordCached(ctx, pkg); err != nil {
			return nil, nil, err
		}
	}

	diags, err := g.p.expandAll(ctx, stale, g.jobs, g.write)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, ErrCodeWriteFailed+": generation failed", err)
	}
	if err := g.prune(ctx, pkgs); err != nil {
		return nil, nil, err
	}

	result := &GenerateResult{Files: g.files, Warnings: diagnosticOutputs(g.warns)}
	if g.runRec != nil {
		result.RunID = g.runRec.ID
	}
	sort.Slice(result.Files, func(i, j int) bool { return result.Files[i].Template < result.Files[j].Template })
	if result.Files == nil {
		result.Files = []FileResult{}
	}
	return result, diags, nil
}

// upToDate reports whether every template of pkg is fresh in the cache.
func (g *generator) upToDate(ctx context.Context, pkg Package) (bool, error) {
	if g.st == nil || g.force {
		return false, nil
	}
	input := pkg.InputHash()
	for _, tmpl := range pkg.Templates {
		out, err := os.ReadFile(g.p.engine.OutputPath(tmpl.Path))
		if err != nil {
			return false, nil
		}
		ok, err := g.st.IsFresh(ctx, tmpl.Path, input, g.cfgHash, ir.OutputFingerprint(out))
		if err != nil {
			return false, WrapExitError(ExitCommandError, ErrCodeCache+": failed to read cache", err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// prune removes the generated files of recorded templates that no longer
// exist or are no longer templates. A file edited since it was generated
// is kept.
func (g *generator) prune(ctx context.Context, pkgs []Package) error {
	if g.st == nil {
		return nil
	}
	dirs := make(map[string]bool, len(pkgs))
	for _, pkg := range pkgs {
		dirs[filepath.Clean(pkg.Dir)] = true
	}
	gens, err := g.st.LatestGenerations(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeCache+": failed to read cache", err)
	}
	for _, gen := range gens {
		if !g.pruneAll && !dirs[filepath.Dir(gen.Template)] {
			continue
		}
		if src, err := os.ReadFile(gen.Template); err == nil && IsTemplate(src, g.p.engine.Tag()) {
			continue
		}
		out, err := os.ReadFile(gen.Output)
		if err != nil || ir.OutputFingerprint(out) != gen.OutputHash {
			continue
		}
		if err := os.Remove(gen.Output); err != nil {
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed+": cannot remove "+gen.Output, err)
		}
		g.p.logger.Debug("orphaned output removed", "template", gen.Template, "output", gen.Output)
		g.files = append(g.files, FileResult{Template: gen.Template, Output: gen.Output, Status: StatusRemoved})
	}
	return nil
}

func (g *generator) recordCached(ctx context.Context, pkg Package) error {
	for _, tmpl := range pkg.Templates {
		last, ok, err := g.st.LastGeneration(ctx, tmpl.Path)
		if err != nil || !ok {
			return WrapExitError(ExitCommandError, ErrCodeCache+": failed to read cache", err)
		}
		cached := *last
		cached.RunID = g.runRec.ID
		cached.Status = store.StatusCached
		if err := g.st.RecordGeneration(ctx, &cached); err != nil {
			return WrapExitError(ExitCommandError, ErrCodeCache+": failed to record generation", err)
		}
		g.files = append(g.files, FileResult{Template: tmpl.Path, Output: cached.Output, Status: store.StatusCached})
		g.p.logger.Debug("template up to date", "template", tmpl.Path)
	}
	return nil
}

// write stores the outputs of one expansion. It is an expandFunc.
func (g *generator) write(ctx context.Context, pkg Package, res *engine.Result) error {
	input := pkg.InputHash()
	for _, f := range res.Files {
		if err := os.WriteFile(f.Output, f.Content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", f.Output, err)
		}
		if g.st != nil {
			planHash, err := ir.PlanFingerprint(f.Plan)
			if err != nil {
				return err
			}
			err = g.st.RecordGeneration(ctx, &store.Generation{
				RunID:      g.runRec.ID,
				Template:   f.Source,
				Output:     f.Output,
				InputHash:  input,
				ConfigHash: g.cfgHash,
				OutputHash: ir.OutputFingerprint(f.Content),
				PlanHash:   planHash,
				Status:     store.StatusGenerated,
			})
			if err != nil {
				return err
			}
		}
		g.p.logger.Debug("file generated", "template", f.Source, "output", f.Output)

		g.mu.Lock()
		g.files = append(g.files, FileResult{Template: f.Source, Output: f.Output, Status: store.StatusGenerated})
		g.mu.Unlock()
	}
	g.mu.Lock()
	g.warns = append(g.warns, res.Warnings...)
	g.mu.Unlock()
	return nil
}
