package engine

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/ir"
)

// operation is an annotated method being rewritten.
type operation struct {
	fn       *ast.FuncDecl
	self     *structInfo
	rules    *ir.Ruleset
	recvType ast.Expr // receiver type with the pointer, if any, removed
	params   []string // receiver type parameter names
	recvName string   // empty for constructors
	incoming ir.Tuple // nil for constructors
	outgoing ir.Tuple
	fresh    map[string]string
	qual     string
	pretty   string // authored signature, rendered before rewriting
}

func (op *operation) constructor() bool { return op.recvName == "" }

// designatedName is the receiver's name for the designated parameter.
func (op *operation) designatedName() string { return op.params[op.self.designated] }

// rewriteOperations rewrites every //stated:op method of f.
func (x *expansion) rewriteOperations(f *templateFile) error {
	for _, decl := range f.ast.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		dirs, err := compiler.Directives(x.ctx, fn.Doc)
		if err != nil {
			return err
		}
		if len(dirs) == 0 {
			continue
		}
		var opDir, implDir *compiler.Directive
		for _, d := range dirs {
			switch d.Verb {
			case compiler.VerbStruct:
				return x.ctx.Errorf(d.Pos(), compiler.ErrWrongDeclaration,
					"//stated:struct expects a struct type, found func %s", fn.Name.Name)
			case compiler.VerbOp:
				if opDir != nil {
					return x.ctx.Errorf(d.Pos(), compiler.ErrMultipleRulesets,
						"method %s has more than one //stated:op directive", fn.Name.Name)
				}
				opDir = d
			case compiler.VerbImpl:
				if implDir != nil {
					return x.ctx.Errorf(d.Pos(), compiler.ErrMalformedOption,
						"method %s has more than one //stated:impl directive", fn.Name.Name)
				}
				implDir = d
			}
		}
		if fn.Recv == nil {
			return x.ctx.Errorf(dirs[0].Pos(), compiler.ErrWrongDeclaration,
				"//stated:%s expects a method, found func %s", dirs[0].Verb, fn.Name.Name)
		}
		if opDir == nil {
			return x.ctx.Errorf(implDir.Pos(), compiler.ErrMalformedOption,
				"//stated:impl on %s requires a //stated:op directive", fn.Name.Name)
		}
		if err := x.rewriteOperation(f, fn, opDir, implDir); err != nil {
			return err
		}
	}
	return nil
}

func (x *expansion) rewriteOperation(f *templateFile, fn *ast.FuncDecl, opDir, implDir *compiler.Directive) error {
	op, err := x.resolveReceiver(f, fn, implDir)
	if err != nil {
		return err
	}

	opts, err := compiler.Collect(x.ctx, opDir, compiler.OpSchema)
	if err != nil {
		return err
	}
	op.rules, err = compiler.BuildRuleset(x.ctx, op.self.decl, opts)
	if err != nil {
		return err
	}
	op.qual = x.qualifier(f)
	if err := x.reserve(fn.Name.Name, fn.Name.Pos(), "operation"); err != nil {
		return err
	}

	if !op.constructor() {
		// Fresh parameters must not shadow anything the generated function refers to.
		taken := identsOf(fn)
		taken[op.qual] = true
		taken[op.self.name()] = true
		taken[op.self.tupleName()] = true
		taken[op.self.reconstructName()] = true
		op.fresh = FreshParams(op.self.decl, op.rules, taken)
		op.incoming = Incoming(op.self.decl, op.rules, op.fresh)
	}
	op.outgoing = Outgoing(op.self.decl, op.rules, op.incoming)
	op.pretty = x.prettySignature(op)

	gen, err := x.generateFunc(op)
	if err != nil {
		return err
	}

	plan := ir.OperationPlan{
		Name:     fn.Name.Name,
		Struct:   op.self.name(),
		Kind:     ir.OpReceiver,
		Receiver: op.recvName,
		Assert:   ir.Names(op.rules.Assert),
		Reject:   ir.Names(op.rules.Reject),
		Assign:   ir.Names(op.rules.Assign),
		Delete:   ir.Names(op.rules.Delete),
		Incoming: ir.TupleStrings(op.incoming),
		Outgoing: ir.TupleStrings(op.outgoing),
		Rules:    *op.rules,
		Pos:      fn.Name.Pos(),
	}
	if op.constructor() {
		plan.Kind = ir.OpConstructor
	}

	text, err := x.renderOperation(op, gen, &plan)
	if err != nil {
		return err
	}
	start := fn.Pos()
	if fn.Doc != nil {
		start = fn.Doc.Pos()
	}
	f.replace(start, fn.End(), text)

	f.plan.Operations = append(f.plan.Operations, plan)
	op.self.ops = append(op.self.ops, plan)
	x.logger.Debug("operation rewritten",
		"operation", plan.Name,
		"struct", plan.Struct,
		"kind", plan.Kind,
		"outgoing", op.outgoing.String(),
	)
	return nil
}

// resolveReceiver checks the receiver's shape, finds the struct through the
// registry and matches the receiver's designated parameter against it.
func (x *expansion) resolveReceiver(f *templateFile, fn *ast.FuncDecl, implDir *compiler.Directive) (*operation, error) {
	recv := fn.Recv.List[0]
	op := &operation{fn: fn}
	if len(recv.Names) > 0 && recv.Names[0].Name != "_" {
		op.recvName = recv.Names[0].Name
	}

	if star, ok := recv.Type.(*ast.StarExpr); ok {
		return nil, x.ctx.Errorf(star.Pos(), compiler.ErrReceiverShape,
			"pointer receivers are not supported: the receiver of %s must be a value", fn.Name.Name)
	}
	op.recvType = recv.Type

	var (
		typeName *ast.Ident
		args     []ast.Expr
		lbrack   token.Pos
		rbrack   token.Pos
	)
	switch t := recv.Type.(type) {
	case *ast.IndexExpr:
		typeName, _ = t.X.(*ast.Ident)
		args, lbrack, rbrack = []ast.Expr{t.Index}, t.Lbrack, t.Rbrack
	case *ast.IndexListExpr:
		typeName, _ = t.X.(*ast.Ident)
		args, lbrack, rbrack = t.Indices, t.Lbrack, t.Rbrack
	case *ast.Ident:
		return nil, x.ctx.Errorf(t.Pos(), compiler.ErrReceiverShape,
			"expected a generic receiver type, found %s", t.Name)
	}
	if typeName == nil {
		return nil, x.ctx.Errorf(recv.Type.Pos(), compiler.ErrReceiverShape,
			"expected a plain named receiver type, found %s", x.exprString(recv.Type))
	}

	located := make([]compiler.Param, len(args))
	for i, a := range args {
		id, ok := a.(*ast.Ident)
		if !ok {
			return nil, x.ctx.Errorf(a.Pos(), compiler.ErrNotTypeParam,
				"expected a type parameter, found %s", x.exprString(a))
		}
		op.params = append(op.params, id.Name)
		located[i] = compiler.Param{Name: id.Name, Pos: id.Pos()}
	}
	markers := x.markersBetween(f, lbrack, rbrack)
	located = attachMarkers(f, located, markers)
	idx, _, err := compiler.LocateDesignated(x.ctx, located, lbrack)
	if err != nil {
		return nil, err
	}
	if _, err := compiler.FindDesignatedArg(x.ctx, located, op.params[idx], lbrack); err != nil {
		return nil, err
	}

	importName := typeName.Name
	var implOpts *compiler.Options
	if implDir != nil {
		implOpts, err = compiler.Collect(x.ctx, implDir, compiler.ImplSchema)
		if err != nil {
			return nil, err
		}
		if id, ok := implOpts.Value(ir.KindImport); ok {
			importName = id.Name
		}
	}
	self, ok := x.registry.Import(importName)
	if !ok {
		pos := typeName.Pos()
		if implOpts != nil {
			if id, ok := implOpts.Value(ir.KindImport); ok {
				pos = id.Pos
			}
		}
		return nil, x.ctx.Errorf(pos, compiler.ErrUnknownImport,
			"no //stated:struct exports %s", importName)
	}
	if self.name() != typeName.Name {
		return nil, x.ctx.Errorf(typeName.Pos(), compiler.ErrImportMismatch,
			"import %s resolves to %s, but the receiver is %s", importName, self.name(), typeName.Name)
	}
	if implOpts != nil {
		if err := compiler.CheckBlock(x.ctx, self.decl, implDir, implOpts); err != nil {
			return nil, err
		}
	}
	if len(args) != len(self.params) {
		return nil, x.ctx.Errorf(lbrack, compiler.ErrTypeArgumentArity,
			"receiver has %d type parameters, %s declares %d", len(args), self.name(), len(self.params))
	}
	if idx != self.designated {
		return nil, x.ctx.Errorf(located[idx].Pos, compiler.ErrDesignatedPosition,
			"receiver designates parameter %d, %s designates parameter %d", idx+1, self.name(), self.designated+1)
	}
	op.self = self
	return op, nil
}

// generateFunc builds the package-level generic function for op.
func (x *expansion) generateFunc(op *operation) (*ast.FuncDecl, error) {
	fn := op.fn
	out := &ast.FuncDecl{
		Name: ast.NewIdent(fn.Name.Name),
		Type: &ast.FuncType{
			Func:       fn.Type.Func,
			TypeParams: x.typeParams(op),
			Params:     &ast.FieldList{Opening: fn.Type.Params.Opening, Closing: fn.Type.Params.Closing},
			Results:    fn.Type.Results,
		},
		Body: fn.Body,
	}
	if !op.constructor() {
		recv := &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(op.recvName)},
			Type:  op.recvType,
		}
		out.Type.Params.List = append(out.Type.Params.List, recv)
	}
	out.Type.Params.List = append(out.Type.Params.List, fn.Type.Params.List...)

	// The designated parameter becomes the incoming tuple, or the stateless
	// placeholder for constructors.
	designated := op.designatedName()
	replacement := func() ast.Expr {
		if op.constructor() {
			return x.selector(op.qual, "None")
		}
		return x.tupleExpr(op, op.incoming)
	}
	if _, err := replaceAll(out,
		func(c *astutil.Cursor) bool { return isIdent(c, designated) && inExprPosition(c) },
		func(*astutil.Cursor) (ast.Node, error) { return replacement(), nil },
	); err != nil {
		return nil, err
	}

	// Placeholders in result types, and as type arguments of the struct,
	// become the outgoing tuple.
	if out.Type.Results != nil {
		if _, err := replaceAll(out.Type.Results,
			func(c *astutil.Cursor) bool { return isIdent(c, "_") && inExprPosition(c) },
			func(*astutil.Cursor) (ast.Node, error) { return x.tupleExpr(op, op.outgoing), nil },
		); err != nil {
			return nil, err
		}
	}
	if _, err := replaceAll(out,
		func(c *astutil.Cursor) bool { return isIdent(c, "_") && x.isSelfTypeArg(c, op) },
		func(*astutil.Cursor) (ast.Node, error) { return x.tupleExpr(op, op.outgoing), nil },
	); err != nil {
		return nil, err
	}

	// Struct literals receive the tracking field.
	if _, err := replaceAll(out.Body,
		func(c *astutil.Cursor) bool {
			lit, ok := c.Node().(*ast.CompositeLit)
			return ok && lit.Type != nil && isSelfType(lit.Type, op.self.name())
		},
		func(c *astutil.Cursor) (ast.Node, error) {
			return x.completeLiteral(op, c.Node().(*ast.CompositeLit)), nil
		},
	); err != nil {
		return nil, err
	}

	// Remaining placeholder expressions rebuild the receiver with the
	// outgoing tuple.
	if _, err := replaceAll(out.Body,
		func(c *astutil.Cursor) bool { return isIdent(c, "_") && inExprPosition(c) },
		func(c *astutil.Cursor) (ast.Node, error) {
			if op.constructor() {
				return nil, x.ctx.Errorf(c.Node().Pos(), compiler.ErrPlaceholder,
					"placeholder expression requires a receiver: %s has none", fn.Name.Name)
			}
			return &ast.CallExpr{
				Fun:  instantiate(ast.NewIdent(op.self.reconstructName()), x.tupleExpr(op, op.outgoing)),
				Args: []ast.Expr{ast.NewIdent(op.recvName)},
			}, nil
		},
	); err != nil {
		return nil, err
	}
	return out, nil
}

// isSelfTypeArg reports whether the cursor is at a type argument of the
// struct, as in T[_] or T[A, _].
func (x *expansion) isSelfTypeArg(c *astutil.Cursor, op *operation) bool {
	switch p := c.Parent().(type) {
	case *ast.IndexExpr:
		return c.Name() == "Index" && isSelfType(p.X, op.self.name())
	case *ast.IndexListExpr:
		return c.Name() == "Indices" && isSelfType(p.X, op.self.name())
	}
	return false
}

// typeParams builds the generated function's type parameter list: the
// receiver's parameters with the struct's constraints, the designated one
// replaced by the fresh per-state parameters (or dropped for constructors).
func (x *expansion) typeParams(op *operation) *ast.FieldList {
	rename := make(map[string]string, len(op.params))
	for i, p := range op.self.params {
		rename[p.name] = op.params[i]
	}
	list := &ast.FieldList{}
	for i, name := range op.params {
		if i == op.self.designated {
			if op.constructor() {
				continue
			}
			var names []*ast.Ident
			for _, p := range op.incoming.Params() {
				names = append(names, ast.NewIdent(p))
			}
			if len(names) > 0 {
				list.List = append(list.List, &ast.Field{Names: names, Type: ast.NewIdent("any")})
			}
			continue
		}
		list.List = append(list.List, &ast.Field{
			Names: []*ast.Ident{ast.NewIdent(name)},
			Type:  renameIdents(op.self.params[i].constraint, rename),
		})
	}
	if len(list.List) == 0 {
		return nil
	}
	return list
}

// renameIdents returns a copy of expr with identifiers renamed.
func renameIdents(expr ast.Expr, rename map[string]string) ast.Expr {
	n, _ := replaceAll(cloneExpr(expr),
		func(c *astutil.Cursor) bool {
			id, ok := c.Node().(*ast.Ident)
			if !ok || !inExprPosition(c) {
				return false
			}
			to, ok := rename[id.Name]
			return ok && to != id.Name
		},
		func(c *astutil.Cursor) (ast.Node, error) {
			return ast.NewIdent(rename[c.Node().(*ast.Ident).Name]), nil
		},
	)
	return n.(ast.Expr)
}

// completeLiteral adds the tracking field to a struct literal. The marker's
// type argument is the literal's designated type argument; a bare literal
// of a struct whose only parameter is the designated one is instantiated
// with the outgoing tuple first.
func (x *expansion) completeLiteral(op *operation, lit *ast.CompositeLit) *ast.CompositeLit {
	out := *lit
	args := typeArgs(out.Type)
	if args == nil {
		if len(op.self.params) != 1 {
			return lit
		}
		out.Type = instantiate(out.Type, x.tupleExpr(op, op.outgoing))
		args = typeArgs(out.Type)
	}
	if len(args) != len(op.self.params) {
		return lit
	}
	marker := &ast.CompositeLit{Type: instantiate(x.selector(op.qual, "Marker"), cloneExpr(args[op.self.designated]))}

	switch {
	case len(out.Elts) == 0:
		out.Elts = []ast.Expr{&ast.KeyValueExpr{Key: ast.NewIdent(x.field), Value: marker}}
	case isKeyed(out.Elts):
		out.Elts = append(append([]ast.Expr(nil), out.Elts...),
			&ast.KeyValueExpr{Key: ast.NewIdent(x.field), Value: marker})
	default:
		out.Elts = append([]ast.Expr{marker}, out.Elts...)
	}
	return &out
}

func isKeyed(elts []ast.Expr) bool {
	_, ok := elts[0].(*ast.KeyValueExpr)
	return ok
}

// tupleExpr renders a marker tuple as an instantiation of the struct's
// tuple type.
func (x *expansion) tupleExpr(op *operation, t ir.Tuple) ast.Expr {
	args := make([]ast.Expr, len(t))
	for i, s := range t {
		switch s.Marker {
		case ir.Enabled:
			args[i] = x.selector(op.qual, "Y")
		case ir.Disabled:
			args[i] = x.selector(op.qual, "N")
		default:
			args[i] = ast.NewIdent(s.Param)
		}
	}
	return instantiate(ast.NewIdent(op.self.tupleName()), args...)
}

func (x *expansion) selector(pkg, name string) ast.Expr {
	return &ast.SelectorExpr{X: ast.NewIdent(pkg), Sel: ast.NewIdent(name)}
}

// cloneExpr deep-copies a type expression. Generated expressions share no
// nodes so that later passes cannot rewrite two sites at once.
func cloneExpr(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case nil:
		return nil
	case *ast.Ident:
		return ast.NewIdent(e.Name)
	case *ast.SelectorExpr:
		return &ast.SelectorExpr{X: cloneExpr(e.X), Sel: ast.NewIdent(e.Sel.Name)}
	case *ast.IndexExpr:
		return &ast.IndexExpr{X: cloneExpr(e.X), Index: cloneExpr(e.Index)}
	case *ast.IndexListExpr:
		indices := make([]ast.Expr, len(e.Indices))
		for i, ix := range e.Indices {
			indices[i] = cloneExpr(ix)
		}
		return &ast.IndexListExpr{X: cloneExpr(e.X), Indices: indices}
	case *ast.StarExpr:
		return &ast.StarExpr{X: cloneExpr(e.X)}
	case *ast.ArrayType:
		return &ast.ArrayType{Len: cloneExpr(e.Len), Elt: cloneExpr(e.Elt)}
	case *ast.MapType:
		return &ast.MapType{Key: cloneExpr(e.Key), Value: cloneExpr(e.Value)}
	case *ast.ChanType:
		return &ast.ChanType{Dir: e.Dir, Value: cloneExpr(e.Value)}
	case *ast.UnaryExpr:
		return &ast.UnaryExpr{Op: e.Op, X: cloneExpr(e.X)}
	case *ast.BinaryExpr:
		return &ast.BinaryExpr{X: cloneExpr(e.X), Op: e.Op, Y: cloneExpr(e.Y)}
	case *ast.ParenExpr:
		return &ast.ParenExpr{X: cloneExpr(e.X)}
	case *ast.BasicLit:
		return &ast.BasicLit{Kind: e.Kind, Value: e.Value}
	case *ast.InterfaceType:
		return &ast.InterfaceType{Methods: cloneFields(e.Methods)}
	case *ast.FuncType:
		return &ast.FuncType{TypeParams: cloneFields(e.TypeParams), Params: cloneFields(e.Params), Results: cloneFields(e.Results)}
	case *ast.StructType:
		return &ast.StructType{Fields: cloneFields(e.Fields)}
	case *ast.Ellipsis:
		return &ast.Ellipsis{Elt: cloneExpr(e.Elt)}
	}
	return expr
}

func cloneFields(fl *ast.FieldList) *ast.FieldList {
	if fl == nil {
		return nil
	}
	out := &ast.FieldList{List: make([]*ast.Field, len(fl.List))}
	for i, f := range fl.List {
		// An empty non-nil Names prints a lone result in parentheses.
		var names []*ast.Ident
		for _, n := range f.Names {
			names = append(names, ast.NewIdent(n.Name))
		}
		out.List[i] = &ast.Field{Names: names, Type: cloneExpr(f.Type)}
	}
	return out
}
