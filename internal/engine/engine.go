package engine

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/ir"
	"github.com/roach88/stated/state"
)

// Defaults for the engine options.
const (
	DefaultTag    = "stated"
	DefaultSuffix = "stated"
	DefaultField  = "stated"
)

// GeneratedHeader is the first line of every generated file.
const GeneratedHeader = "// Code generated by stated. DO NOT EDIT."

// Engine expands typestate templates. An Engine holds only configuration
// and is safe for concurrent use; every Expand call owns its own state.
type Engine struct {
	tag         string
	suffix      string
	field       string
	stateImport string
	policy      compiler.Policy
	docs        ir.Docs
	analyze     bool
	logger      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTag sets the build tag that marks template files.
func WithTag(tag string) Option {
	return func(e *Engine) { e.tag = tag }
}

// WithSuffix sets the suffix of generated file names: <name>_<suffix>.go.
func WithSuffix(suffix string) Option {
	return func(e *Engine) { e.suffix = suffix }
}

// WithField sets the name of the tracking field.
func WithField(name string) Option {
	return func(e *Engine) { e.field = name }
}

// WithStateImport sets the import path of the marker package.
func WithStateImport(path string) Option {
	return func(e *Engine) { e.stateImport = path }
}

// WithPolicy sets the diagnostic policy.
func WithPolicy(p compiler.Policy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithDefaultDocs sets the documentation toggles of structs that do not
// set docs(...) themselves.
func WithDefaultDocs(d ir.Docs) Option {
	return func(e *Engine) { e.docs = d }
}

// WithReachability enables reachability analysis of every struct.
func WithReachability(enabled bool) Option {
	return func(e *Engine) { e.analyze = enabled }
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		tag:         DefaultTag,
		suffix:      DefaultSuffix,
		field:       DefaultField,
		stateImport: state.ImportPath,
		policy:      compiler.DefaultPolicy,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Tag returns the build tag marking templates.
func (e *Engine) Tag() string { return e.tag }

// OutputPath returns the generated file path for a template path.
func (e *Engine) OutputPath(path string) string {
	return strings.TrimSuffix(path, ".go") + "_" + e.suffix + ".go"
}

// Settings returns the options that influence generated output, for
// fingerprinting.
func (e *Engine) Settings() ir.Object {
	return ir.Object{
		"tag":            ir.String(e.tag),
		"suffix":         ir.String(e.suffix),
		"field":          ir.String(e.field),
		"import":         ir.String(e.stateImport),
		"strict":         ir.Bool(e.policy.Strict),
		"warn_redundant": ir.Bool(e.policy.WarnRedundant),
		"description":    ir.Bool(e.docs.Description),
		"ugly":           ir.Bool(e.docs.Ugly),
		"generator":      ir.String(ir.GeneratorVersion),
	}
}

// Source is one template file.
type Source struct {
	Path string
	Src  []byte
}

// File is one generated file.
type File struct {
	Source  string
	Output  string
	Content []byte
	Plan    *ir.FilePlan
}

// Result is the outcome of a successful expansion.
type Result struct {
	Files    []File
	Reach    []*compiler.Reachability
	Warnings []*compiler.Diagnostic
}

// expansion is the state of one Expand call.
type expansion struct {
	*Engine
	ctx      *compiler.Context
	fset     *token.FileSet
	files    []*templateFile
	registry *Registry
	structs  []*structInfo
	names    map[string]token.Pos // package scope, including generated names
}

// Expand expands the templates of one package.
//
// All sources must belong to the same package. On the first error
// diagnostic Expand returns it as the error and no files.
func (e *Engine) Expand(sources []Source) (*Result, error) {
	fset := token.NewFileSet()
	x := &expansion{
		Engine:   e,
		ctx:      compiler.NewContext(fset, e.policy, e.logger),
		fset:     fset,
		registry: NewRegistry(),
		names:    make(map[string]token.Pos),
	}
	e.logger.Debug("expansion starting", "templates", len(sources))

	for _, src := range sources {
		f, err := parser.ParseFile(fset, src.Path, src.Src, parser.ParseComments|parser.SkipObjectResolution)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", src.Path, err)
		}
		x.files = append(x.files, &templateFile{path: src.Path, src: src.Src, ast: f, tok: fset.File(f.Pos())})
	}
	if err := x.checkPackages(); err != nil {
		return nil, err
	}
	x.collectNames()

	for _, f := range x.files {
		if err := x.scanStructs(f); err != nil {
			return nil, err
		}
	}
	for _, f := range x.files {
		if err := x.rewriteOperations(f); err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for _, f := range x.files {
		out, err := x.emit(f)
		if err != nil {
			return nil, err
		}
		res.Files = append(res.Files, *out)
	}
	if e.analyze {
		for _, s := range x.structs {
			res.Reach = append(res.Reach, compiler.AnalyzeReachability(x.ctx, s.decl, s.ops))
		}
	}
	res.Warnings = x.ctx.Warnings

	e.logger.Debug("expansion finished",
		"templates", len(sources),
		"structs", len(x.structs),
		"exports", x.registry.Len(),
		"warnings", len(res.Warnings),
	)
	return res, nil
}

// collectNames records the package-level declarations of every template.
// Annotated methods are not among them; they become functions later.
func (x *expansion) collectNames() {
	add := func(id *ast.Ident) {
		if id.Name == "_" || id.Name == "init" {
			return
		}
		if _, ok := x.names[id.Name]; !ok {
			x.names[id.Name] = id.Pos()
		}
	}
	for _, f := range x.files {
		for _, decl := range f.ast.Decls {
			switch d := decl.(type) {
			case *ast.FuncDecl:
				if d.Recv == nil {
					add(d.Name)
				}
			case *ast.GenDecl:
				for _, spec := range d.Specs {
					switch sp := spec.(type) {
					case *ast.TypeSpec:
						add(sp.Name)
					case *ast.ValueSpec:
						for _, n := range sp.Names {
							add(n)
						}
					}
				}
			}
		}
	}
}

// reserve claims a package-level name for generated code.
func (x *expansion) reserve(name string, pos token.Pos, what string) error {
	if prev, ok := x.names[name]; ok {
		return x.ctx.Errorf(pos, compiler.ErrNameCollision,
			"%s %s is already declared in the package at %s", what, name, x.fset.Position(prev))
	}
	x.names[name] = pos
	return nil
}

func (x *expansion) checkPackages() error {
	if len(x.files) == 0 {
		return nil
	}
	name := x.files[0].ast.Name.Name
	for _, f := range x.files[1:] {
		if f.ast.Name.Name != name {
			return fmt.Errorf("%s: package %s, expected %s", f.path, f.ast.Name.Name, name)
		}
	}
	return nil
}

// templateFile is one parsed template and the edits collected for it.
type templateFile struct {
	path  string
	src   []byte
	ast   *ast.File
	tok   *token.File
	edits []edit
	plan  ir.FilePlan
	qual  string // local name of the marker package, once chosen
}

func (f *templateFile) offset(pos token.Pos) int {
	return f.tok.Offset(pos)
}

func (f *templateFile) base() string {
	return filepath.Base(f.path)
}
