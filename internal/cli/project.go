package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/config"
	"github.com/roach88/stated/internal/engine"
	"github.com/roach88/stated/internal/ir"
)

// project is the configuration and engine shared by one command.
type project struct {
	cfg    *config.Config
	dir    string // relative cfg paths resolve against dir
	engine *engine.Engine
	logger *slog.Logger
}

// loadProject reads the configuration named by --config, or stated.cue in
// the working directory, and builds the engine from it.
func loadProject(opts *RootOptions, extra ...engine.Option) (*project, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.Config != "" {
		cfg, err = config.Load(opts.Config)
	} else {
		var wd string
		wd, err = os.Getwd()
		if err == nil {
			cfg, err = config.Find(wd)
		}
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeConfig+": invalid configuration", err)
	}

	dir := "."
	if cfg.Path != "" {
		dir = filepath.Dir(cfg.Path)
	}
	logger := opts.logger()
	engineOpts := []engine.Option{
		engine.WithTag(cfg.Tag),
		engine.WithSuffix(cfg.Suffix),
		engine.WithField(cfg.Field),
		engine.WithStateImport(cfg.StatePackage),
		engine.WithPolicy(compiler.Policy{Strict: cfg.Strict, WarnRedundant: cfg.WarnRedundant()}),
		engine.WithDefaultDocs(cfg.Docs.IR()),
		engine.WithReachability(cfg.Reachability),
		engine.WithLogger(logger),
	}
	logger.Debug("configuration loaded", "path", cfg.Path, "tag", cfg.Tag, "jobs", cfg.Jobs)
	return &project{
		cfg:    cfg,
		dir:    dir,
		engine: engine.New(append(engineOpts, extra...)...),
		logger: logger,
	}, nil
}

// resolve makes a configured path absolute against the project directory.
func (p *project) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.dir, path)
}

// settingsHash fingerprints the engine settings recorded with generations.
func (p *project) settingsHash() (string, error) {
	return ir.ConfigFingerprint(p.engine.Settings())
}

// packages finds the templates named by patterns.
func (p *project) packages(patterns []string) ([]Package, error) {
	pkgs, err := FindPackages(patterns, p.engine.Tag())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, loadErrorCode(err)+": cannot load templates", err)
	}
	return pkgs, nil
}

// expandFunc handles the result of one successful package expansion. It
// runs concurrently with other packages.
type expandFunc func(ctx context.Context, pkg Package, res *engine.Result) error

// expandAll expands every package, at most jobs at a time. Template
// diagnostics do not stop other packages; they are returned sorted by
// position. Any other error cancels the remaining work.
func (p *project) expandAll(ctx context.Context, pkgs []Package, jobs int, each expandFunc) ([]*compiler.Diagnostic, error) {
	if jobs < 1 {
		jobs = 1
	}
	var (
		mu    sync.Mutex
		diags []*compiler.Diagnostic
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, pkg := range pkgs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.logger.Debug("expanding package", "dir", pkg.Dir, "templates", len(pkg.Templates))
			res, err := p.engine.Expand(pkg.Templates)
			if err != nil {
				var diag *compiler.Diagnostic
				if errors.As(err, &diag) {
					mu.Lock()
					diags = append(diags, diag)
					mu.Unlock()
					return nil
				}
				return fmt.Errorf("%s: %w", pkg.Dir, err)
			}
			return each(gctx, pkg, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(diags, func(i, j int) bool {
		return diags[i].Error() < diags[j].Error()
	})
	return diags, nil
}
