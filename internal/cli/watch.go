package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Debounce time.Duration
	Jobs     int
	NoCache  bool
	Cache    string
}

// NewWatchCommand creates the watch command.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch [dir|dir/...]...",
		Short: "Regenerate templates when they change",
		Long: `Generate every template, then regenerate a directory whenever one of
its templates is written, created or removed. The generated file of a
removed template is deleted.

Changes arriving within the debounce period are handled together.
Template errors are reported and watching continues. Stop with Ctrl-C.

Examples:
  stated watch ./...
  stated watch --debounce 500ms ./internal/door`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, opts, args, cmd)
		},
	}

	cmd.Flags().DurationVar(&opts.Debounce, "debounce", 200*time.Millisecond, "quiet period before regenerating")
	cmd.Flags().IntVarP(&opts.Jobs, "jobs", "j", 0, "directories expanded concurrently (default from config)")
	cmd.Flags().BoolVar(&opts.NoCache, "no-cache", false, "do not read or record the generation cache")
	cmd.Flags().StringVar(&opts.Cache, "cache", "", "path to the cache database (default from config)")

	return cmd
}

func runWatch(ctx context.Context, opts *WatchOptions, patterns []string, cmd *cobra.Command) error {
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

	g, err := newGenerator(p, &GenerateOptions{
		RootOptions: opts.RootOptions,
		Jobs:        opts.Jobs,
		NoCache:     opts.NoCache,
		Cache:       opts.Cache,
	}, "watch")
	if err != nil {
		return formatter.Fail(err)
	}
	defer g.close()

	// regen runs one generation and reports it. Template diagnostics are
	// printed but never stop the watch.
	regen := func(ctx context.Context, pkgs []Package) error {
		result, diags, err := g.run(ctx, pkgs)
		if err != nil {
			_ = formatter.Fail(err)
			return err
		}
		if len(diags) > 0 {
			_ = formatter.Diagnostics(diags)
			return nil
		}
		if formatter.Format == "json" {
			return formatter.SuccessRun(result.RunID, result)
		}
		return formatter.Success(result)
	}

	if err := regen(ctx, pkgs); err != nil {
		return err
	}

	dirs := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		dirs[i] = pkg.Dir
	}
	w, err := NewWatcher(dirs, opts.Debounce, p.engine.OutputPath, p.engine.Tag(), p.logger)
	if err != nil {
		return formatter.Fail(WrapExitError(ExitCommandError, ErrCodeScanError+": cannot watch templates", err))
	}
	formatter.VerboseLog("Watching %d director(ies)", len(dirs))

	return w.Run(ctx, func(ctx context.Context, dirs []string) error {
		var changed []Package
		for _, dir := range dirs {
			pkg, err := LoadPackage(dir, p.engine.Tag())
			if err != nil {
				p.logger.Error("reload failed", "dir", dir, "error", err)
				continue
			}
			// A directory left without templates still has outputs to prune.
			changed = append(changed, *pkg)
		}
		if len(changed) == 0 {
			return nil
		}
		// Errors were reported; keep watching.
		_ = regen(ctx, changed)
		return nil
	})
}

// RegenerateFunc handles one debounced burst of changes to dirs.
type RegenerateFunc func(ctx context.Context, dirs []string) error

// Watcher reports template changes per directory, debounced.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	output   func(template string) string
	tag      string
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]bool
	timer   *time.Timer
	fire    chan struct{}
}

// NewWatcher watches dirs. output maps a template path to its generated
// file; tag identifies templates.
func NewWatcher(dirs []string, debounce time.Duration, output func(string) string, tag string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	for _, dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		watcher:  fw,
		debounce: debounce,
		output:   output,
		tag:      tag,
		logger:   logger,
		pending:  map[string]bool{},
		fire:     make(chan struct{}, 1),
	}, nil
}

// Run calls regen for every burst of template changes until ctx is done.
// Bursts are handled one at a time on the calling goroutine. An error
// from regen stops the watch.
func (w *Watcher) Run(ctx context.Context, regen RegenerateFunc) error {
	defer w.close()
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("template changed", "file", event.Name, "op", event.Op.String())
			w.schedule(filepath.Dir(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)

		case <-w.fire:
			dirs := w.drain()
			if len(dirs) == 0 {
				continue
			}
			if err := regen(ctx, dirs); err != nil {
				return err
			}
		}
	}
}

// relevant reports whether event touches a template. Generated files are
// not templates, so writing them does not trigger another burst.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	name := event.Name
	if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		// A removed template left its generated file behind.
		_, err := os.Stat(w.output(name))
		return err == nil && w.output(name) != name
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	src, err := os.ReadFile(name)
	if err != nil {
		return false
	}
	return IsTemplate(src, w.tag)
}

// schedule adds dir to the pending burst and restarts the quiet period.
func (w *Watcher) schedule(dir string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[dir] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.fire <- struct{}{}:
		default:
		}
	})
}

// drain returns the pending directories, sorted, and clears them.
func (w *Watcher) drain() []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	dirs := make([]string, 0, len(w.pending))
	for dir := range w.pending {
		dirs = append(dirs, dir)
	}
	clear(w.pending)
	sort.Strings(dirs)
	return dirs
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.watcher.Close()
}
