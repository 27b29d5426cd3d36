package harness

import (
	"fmt"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/stated/state"
)

// checker type-checks generated packages. The marker package is checked
// from its source in this repository; everything else comes from the
// source importer.
type checker struct {
	mu       sync.Mutex
	fset     *token.FileSet
	fallback types.Importer
	stateDir string
	cache    map[string]*types.Package
}

func newChecker() *checker {
	fset := token.NewFileSet()
	_, file, _, _ := runtime.Caller(0)
	return &checker{
		fset:     fset,
		fallback: importer.ForCompiler(fset, "source", nil),
		stateDir: filepath.Join(filepath.Dir(file), "..", "..", "state"),
		cache:    map[string]*types.Package{},
	}
}

// Import implements types.Importer.
func (c *checker) Import(path string) (*types.Package, error) {
	if pkg, ok := c.cache[path]; ok {
		return pkg, nil
	}
	var (
		pkg *types.Package
		err error
	)
	if path == state.ImportPath {
		pkg, err = c.checkDir(path, c.stateDir)
	} else {
		pkg, err = c.fallback.Import(path)
	}
	if err != nil {
		return nil, err
	}
	c.cache[path] = pkg
	return pkg, nil
}

func (c *checker) checkDir(path, dir string) (*types.Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var files []*ast.File
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(c.fset, filepath.Join(dir, name), nil, parser.SkipObjectResolution)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	conf := types.Config{Importer: c}
	return conf.Check(path, c.fset, files, nil)
}

// check type-checks the generated outputs together with the usage snippet.
func (c *checker) check(pkg string, outputs map[string]string, step UsageStep) UsageResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := UsageResult{Name: step.Name}
	fail := func(err error) UsageResult {
		res.Errors = append(res.Errors, err.Error())
		return res
	}

	names := make([]string, 0, len(outputs))
	for name := range outputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var files []*ast.File
	for _, name := range names {
		f, err := parser.ParseFile(c.fset, name, outputs[name], parser.SkipObjectResolution)
		if err != nil {
			return fail(err)
		}
		files = append(files, f)
	}
	usage, err := parser.ParseFile(c.fset, "usage_"+step.Name+".go", usageSource(pkg, step), parser.SkipObjectResolution)
	if err != nil {
		return fail(err)
	}
	files = append(files, usage)

	conf := types.Config{
		Importer: c,
		Error: func(err error) {
			res.Errors = append(res.Errors, err.Error())
		},
	}
	_, _ = conf.Check(pkg, c.fset, files, nil)
	res.Compiles = len(res.Errors) == 0
	return res
}

// usageSource wraps the snippet in a function of package pkg.
func usageSource(pkg string, step UsageStep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package %s\n\n", pkg)
	for _, path := range step.Imports {
		fmt.Fprintf(&b, "import %s\n", strconv.Quote(path))
	}
	b.WriteString("\nfunc _() {\n")
	b.WriteString(step.Code)
	b.WriteString("\n}\n")
	return b.String()
}
