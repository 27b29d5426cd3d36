package engine

import (
	"fmt"
	"go/ast"
	"go/token"
	"strings"
	"unicode"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/ir"
)

// typeParam is one flattened type parameter: [A, B any] yields two.
type typeParam struct {
	name       string
	pos        token.Pos
	constraint ast.Expr
}

// structInfo is a validated typestate struct.
type structInfo struct {
	decl       *ir.Declaration
	file       *templateFile
	spec       *ast.TypeSpec
	params     []typeParam
	designated int
	ops        []ir.OperationPlan
}

func (s *structInfo) name() string { return s.decl.Name }

func (s *structInfo) designatedName() string { return s.params[s.designated].name }

// tupleName is the generated marker tuple type, exported iff the struct is.
func (s *structInfo) tupleName() string { return s.decl.Name + "States" }

func (s *structInfo) reconstructName() string {
	r := []rune(s.decl.Name)
	r[0] = unicode.ToUpper(r[0])
	return "reconstruct" + string(r)
}

// scanStructs validates and registers every //stated:struct declaration in
// f, and records the edits that rewrite it.
func (x *expansion) scanStructs(f *templateFile) error {
	for _, decl := range f.ast.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok {
			continue
		}
		if gen.Tok != token.TYPE {
			if err := x.rejectDirectives(gen.Doc, "a struct type"); err != nil {
				return err
			}
			continue
		}
		for _, spec := range gen.Specs {
			ts := spec.(*ast.TypeSpec)
			doc := ts.Doc
			if doc == nil && !gen.Lparen.IsValid() {
				doc = gen.Doc
			}
			dirs, err := compiler.Directives(x.ctx, doc)
			if err != nil {
				return err
			}
			if len(dirs) == 0 {
				continue
			}
			for _, d := range dirs {
				if d.Verb != compiler.VerbStruct {
					return x.ctx.Errorf(d.Pos(), compiler.ErrWrongDeclaration,
						"//stated:%s expects a method, found type %s", d.Verb, ts.Name.Name)
				}
			}
			if len(dirs) > 1 {
				return x.ctx.Errorf(dirs[1].Pos(), compiler.ErrMalformedOption,
					"type %s has more than one //stated:struct directive", ts.Name.Name)
			}
			if err := x.declareStruct(f, gen, ts, doc, dirs[0]); err != nil {
				return err
			}
		}
	}
	return nil
}

// rejectDirectives reports any stated directive in doc as being on the
// wrong kind of declaration.
func (x *expansion) rejectDirectives(doc *ast.CommentGroup, want string) error {
	if doc == nil {
		return nil
	}
	for _, c := range doc.List {
		if compiler.IsDirective(c) {
			return x.ctx.Errorf(c.Slash, compiler.ErrWrongDeclaration, "directive expects %s", want)
		}
	}
	return nil
}

func (x *expansion) declareStruct(f *templateFile, gen *ast.GenDecl, ts *ast.TypeSpec, doc *ast.CommentGroup, d *compiler.Directive) error {
	name := ts.Name.Name
	if ts.Assign.IsValid() {
		return x.ctx.Errorf(ts.Name.Pos(), compiler.ErrWrongDeclaration, "expected a struct, found alias %s", name)
	}
	var st *ast.StructType
	switch t := ts.Type.(type) {
	case *ast.StructType:
		st = t
	case *ast.InterfaceType:
		return x.ctx.Errorf(ts.Name.Pos(), compiler.ErrInterfaceType, "interface types are not supported: %s", name)
	default:
		return x.ctx.Errorf(ts.Name.Pos(), compiler.ErrWrongDeclaration, "expected a struct, found %s", x.exprString(ts.Type))
	}

	opts, err := compiler.Collect(x.ctx, d, compiler.StructSchema)
	if err != nil {
		return err
	}
	decl, err := compiler.Declare(x.ctx, name, d, opts)
	if err != nil {
		return err
	}
	if !opts.Given(ir.KindDocs) {
		decl.Docs = x.docs
	}

	s := &structInfo{decl: decl, file: f, spec: ts}
	listPos := ts.Name.End()
	var markers []*ast.Comment
	if ts.TypeParams != nil {
		listPos = ts.TypeParams.Opening
		for _, field := range ts.TypeParams.List {
			for _, n := range field.Names {
				s.params = append(s.params, typeParam{name: n.Name, pos: n.Pos(), constraint: field.Type})
			}
		}
		markers = x.markersBetween(f, ts.TypeParams.Opening, ts.TypeParams.Closing)
	}
	located := attachMarkers(f, paramsOf(s.params), markers)
	idx, _, err := compiler.LocateDesignated(x.ctx, located, listPos)
	if err != nil {
		return err
	}
	s.designated = idx

	for _, field := range st.Fields.List {
		for _, n := range field.Names {
			if n.Name == x.field {
				return x.ctx.Errorf(n.Pos(), compiler.ErrFieldCollision,
					"struct %s already has a field named %s, which stated uses for tracking", name, x.field)
			}
		}
	}

	if err := x.reserve(s.tupleName(), ts.Name.Pos(), "marker tuple type"); err != nil {
		return err
	}
	if err := x.reserve(s.reconstructName(), ts.Name.Pos(), "function"); err != nil {
		return err
	}
	if err := x.registry.Export(x.ctx, s, d.Pos()); err != nil {
		return err
	}
	x.structs = append(x.structs, s)

	qual := x.qualifier(f)
	var summary []string
	if decl.Docs.Description {
		summary = describeStruct(decl)
	}
	f.replaceDirective(doc, d.Comment, summary)
	for _, m := range markers {
		f.remove(m.Pos(), m.End())
	}
	f.insert(f.offset(st.Fields.Opening)+1,
		fmt.Sprintf("\n%s %s.Marker[%s]\n", x.field, qual, s.designatedName()))
	f.insert(f.offset(gen.End()), "\n\n"+x.tupleDecl(s)+"\n\n"+x.reconstructDecl(s, st))

	f.plan.Structs = append(f.plan.Structs, ir.StructPlan{
		Name:        name,
		Export:      decl.Export,
		Param:       s.designatedName(),
		Field:       x.field,
		TupleType:   s.tupleName(),
		Reconstruct: s.reconstructName(),
		States:      decl.StateNames(),
		Preset:      ir.Names(decl.Preset),
		Docs:        decl.Docs,
	})
	x.logger.Debug("struct declared",
		"struct", name,
		"states", len(decl.States),
		"export", decl.Export,
	)
	return nil
}

func paramsOf(params []typeParam) []compiler.Param {
	out := make([]compiler.Param, len(params))
	for i, p := range params {
		out[i] = compiler.Param{Name: p.name, Pos: p.pos}
	}
	return out
}

// markersBetween returns the designating marker comments strictly between
// two positions.
func (x *expansion) markersBetween(f *templateFile, from, to token.Pos) []*ast.Comment {
	var out []*ast.Comment
	for _, group := range f.ast.Comments {
		if group.End() <= from || group.Pos() >= to {
			continue
		}
		for _, c := range group.List {
			if c.Slash > from && c.End() <= to && compiler.IsMarkerComment(c.Text) {
				out = append(out, c)
			}
		}
	}
	return out
}

// attachMarkers gives each marker to a parameter. A marker directly ahead
// of a parameter name, separated only by white space, prefixes that
// parameter; any other marker follows the nearest parameter starting before
// it, or goes to the first when it precedes them all.
func attachMarkers(f *templateFile, params []compiler.Param, markers []*ast.Comment) []compiler.Param {
	if len(params) == 0 {
		return params
	}
	for _, m := range markers {
		owner := -1
		for i, p := range params {
			if p.Pos < m.End() {
				continue
			}
			if strings.TrimSpace(string(f.src[f.offset(m.End()):f.offset(p.Pos)])) == "" {
				owner = i
			}
			break
		}
		if owner < 0 {
			owner = 0
			for i, p := range params {
				if p.Pos < m.Slash {
					owner = i
				}
			}
		}
		params[owner].Markers = append(params[owner].Markers, compiler.Marker{Pos: m.Slash, Text: m.Text})
	}
	return params
}

// tupleDecl renders the marker tuple type of s.
func (x *expansion) tupleDecl(s *structInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s is the marker tuple of %s: one type argument per state, in declaration order.\n",
		s.tupleName(), s.name())
	fmt.Fprintf(&b, "type %s[%s any] struct{}", s.tupleName(), strings.Join(s.decl.StateNames(), ", "))
	return b.String()
}

// reconstructDecl renders the function that rebuilds a value of s with a
// new marker tuple, copying every other field.
func (x *expansion) reconstructDecl(s *structInfo, st *ast.StructType) string {
	taken := make(map[string]bool, len(s.params))
	for _, p := range s.params {
		taken[p.name] = true
	}
	re := freshName("Re", taken)
	taken[re] = true
	arg := freshName("x", taken)

	params := []string{re + " any"}
	in := make([]string, len(s.params))
	out := make([]string, len(s.params))
	for i, p := range s.params {
		params = append(params, p.name+" "+x.exprString(p.constraint))
		in[i] = p.name
		out[i] = p.name
	}
	out[s.designated] = re

	var b strings.Builder
	fmt.Fprintf(&b, "// %s returns %s with its marker tuple replaced by %s. Every other field is copied.\n",
		s.reconstructName(), arg, re)
	fmt.Fprintf(&b, "func %s[%s](%s %s[%s]) %s[%s] {\n",
		s.reconstructName(), strings.Join(params, ", "),
		arg, s.name(), strings.Join(in, ", "),
		s.name(), strings.Join(out, ", "))
	fmt.Fprintf(&b, "return %s[%s]{\n", s.name(), strings.Join(out, ", "))
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 {
			key := embeddedName(field.Type)
			fmt.Fprintf(&b, "%s: %s.%s,\n", key, arg, key)
			continue
		}
		for _, n := range field.Names {
			if n.Name == "_" {
				continue
			}
			fmt.Fprintf(&b, "%s: %s.%s,\n", n.Name, arg, n.Name)
		}
	}
	b.WriteString("}\n}")
	return b.String()
}

// embeddedName returns the field name of an embedded field type:
// *pkg.T[A] is named T.
func embeddedName(expr ast.Expr) string {
	for {
		switch e := expr.(type) {
		case *ast.StarExpr:
			expr = e.X
		case *ast.IndexExpr:
			expr = e.X
		case *ast.IndexListExpr:
			expr = e.X
		case *ast.SelectorExpr:
			return e.Sel.Name
		case *ast.Ident:
			return e.Name
		default:
			return ""
		}
	}
}

// freshName returns base, with underscores appended while it is taken.
func freshName(base string, taken map[string]bool) string {
	name := base
	for taken[name] {
		name += "_"
	}
	return name
}
