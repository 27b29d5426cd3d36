package engine

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/build/constraint"
	"go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/ir"
)

// edit replaces src[start:end] with text. Insertions have start == end.
type edit struct {
	start, end int
	text       string
}

func (f *templateFile) insert(offset int, text string) {
	f.edits = append(f.edits, edit{start: offset, end: offset, text: text})
}

func (f *templateFile) remove(from, to token.Pos) {
	f.replace(from, to, "")
}

func (f *templateFile) replace(from, to token.Pos, text string) {
	f.edits = append(f.edits, edit{start: f.offset(from), end: f.offset(to), text: text})
}

// replaceLine removes the line holding comment c, substituting one comment
// line per entry of lines at the same indentation. A comment sharing its
// line with code is removed on its own.
func (f *templateFile) replaceLine(c *ast.Comment, lines []string) {
	start, end := f.offset(c.Pos()), f.offset(c.End())
	lineStart := bytes.LastIndexByte(f.src[:start], '\n') + 1
	lineEnd := len(f.src)
	if i := bytes.IndexByte(f.src[end:], '\n'); i >= 0 {
		lineEnd = end + i + 1
	}
	indent := f.src[lineStart:start]
	if len(bytes.TrimSpace(indent)) > 0 || len(bytes.TrimSpace(f.src[end:lineEnd])) > 0 {
		f.edits = append(f.edits, edit{start: start, end: end})
		return
	}
	var b strings.Builder
	for _, l := range lines {
		b.Write(indent)
		b.WriteString(l)
		b.WriteByte('\n')
	}
	f.edits = append(f.edits, edit{start: lineStart, end: lineEnd, text: b.String()})
}

// replaceDirective swaps a directive line of doc for a plain-text summary.
// Without a summary, a blank "//" line left dangling at the end of the
// comment goes too.
func (f *templateFile) replaceDirective(doc *ast.CommentGroup, c *ast.Comment, summary []string) {
	lines := make([]string, len(summary))
	for i, s := range summary {
		lines[i] = "// " + s
	}
	f.replaceLine(c, lines)
	if len(summary) > 0 {
		return
	}
	i := slices.Index(doc.List, c)
	if i < 1 || doc.List[i-1].Text != "//" {
		return
	}
	for _, rest := range doc.List[i+1:] {
		if !compiler.IsDirective(rest) {
			return
		}
	}
	f.replaceLine(doc.List[i-1], nil)
}

// apply returns the source with every edit applied. Edits must not overlap;
// insertions at the same offset keep their recording order.
func (f *templateFile) apply() ([]byte, error) {
	edits := append([]edit(nil), f.edits...)
	sort.SliceStable(edits, func(i, j int) bool {
		if edits[i].start != edits[j].start {
			return edits[i].start < edits[j].start
		}
		return edits[i].start == edits[i].end && edits[j].start != edits[j].end
	})
	var out bytes.Buffer
	cursor := 0
	for _, e := range edits {
		if e.start < cursor {
			return nil, fmt.Errorf("%s: overlapping edits at offset %d", f.path, e.start)
		}
		out.Write(f.src[cursor:e.start])
		out.WriteString(e.text)
		cursor = e.end
	}
	out.Write(f.src[cursor:])
	return out.Bytes(), nil
}

// qualifier returns the local name generated code uses for the marker
// package in f: the file's existing import name, the package name, or a
// fresh alias when the package name is taken.
func (x *expansion) qualifier(f *templateFile) string {
	if f.qual != "" {
		return f.qual
	}
	base := path.Base(x.stateImport)
	for _, imp := range f.ast.Imports {
		p, err := strconv.Unquote(imp.Path.Value)
		if err != nil || p != x.stateImport {
			continue
		}
		f.qual = base
		if imp.Name != nil && imp.Name.Name != "_" && imp.Name.Name != "." {
			f.qual = imp.Name.Name
		}
		return f.qual
	}
	taken := identsOf(f.ast)
	for _, imp := range f.ast.Imports {
		p, _ := strconv.Unquote(imp.Path.Value)
		taken[path.Base(p)] = true
	}
	f.qual = base
	if taken[base] {
		f.qual = freshName("type"+base, taken)
	}
	return f.qual
}

// exprString prints an expression from the template.
func (x *expansion) exprString(expr ast.Expr) string {
	var b strings.Builder
	if err := printer.Fprint(&b, x.fset, expr); err != nil {
		return fmt.Sprintf("%T", expr)
	}
	return b.String()
}

// renderOperation prints the generated function with its doc comment.
// Comments inside the original body are not carried over.
func (x *expansion) renderOperation(op *operation, gen *ast.FuncDecl, plan *ir.OperationPlan) (string, error) {
	var b strings.Builder
	for _, l := range x.operationDoc(op, plan) {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	var fn strings.Builder
	cfg := printer.Config{Mode: printer.UseSpaces | printer.TabIndent, Tabwidth: 8}
	if err := cfg.Fprint(&fn, x.fset, gen); err != nil {
		return "", fmt.Errorf("print %s: %w", gen.Name.Name, err)
	}
	b.WriteString(trimBodyStart(fn.String()))
	return b.String(), nil
}

// trimBodyStart drops blank lines after the opening brace of a printed
// function. New nodes without positions leave one ahead of the template's
// first statement.
func trimBodyStart(fn string) string {
	i := strings.Index(fn, "{\n")
	if i < 0 {
		return fn
	}
	head, body := fn[:i+2], fn[i+2:]
	for strings.HasPrefix(body, "\n") {
		body = body[1:]
	}
	return head + body
}

// emit applies f's edits and returns the formatted generated file.
func (x *expansion) emit(f *templateFile) (*File, error) {
	for _, group := range f.ast.Comments {
		if group.Pos() >= f.ast.Package {
			break
		}
		for _, c := range group.List {
			if constraint.IsGoBuild(c.Text) || constraint.IsPlusBuild(c.Text) {
				f.replaceLine(c, nil)
			}
		}
	}
	f.insert(0, GeneratedHeader+"\n\n//go:build !"+x.tag+"\n\n")

	src, err := f.apply()
	if err != nil {
		return nil, err
	}
	output := x.OutputPath(f.path)
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, output, src, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("generated code for %s does not parse: %w", f.path, err)
	}
	if f.qual != "" {
		name := f.qual
		if name == path.Base(x.stateImport) {
			name = ""
		}
		astutil.AddNamedImport(fset, file, name, x.stateImport)
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, fset, file); err != nil {
		return nil, fmt.Errorf("format %s: %w", output, err)
	}

	f.plan.Version = ir.PlanVersion
	f.plan.Source = f.base()
	f.plan.Output = filepath.Base(output)
	f.plan.Package = f.ast.Name.Name
	plan := f.plan
	return &File{
		Source:  f.path,
		Output:  output,
		Content: buf.Bytes(),
		Plan:    &plan,
	}, nil
}
