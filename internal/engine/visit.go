package engine

import (
	"go/ast"

	"golang.org/x/tools/go/ast/astutil"
)

// replaceAll walks root in post-order and replaces every node match accepts
// with the node produce returns. Children are visited before their parent,
// and a replacement is not walked again. The first producer error stops the
// walk.
func replaceAll(root ast.Node, match func(*astutil.Cursor) bool, produce func(*astutil.Cursor) (ast.Node, error)) (ast.Node, error) {
	var err error
	out := astutil.Apply(root, nil, func(c *astutil.Cursor) bool {
		if !match(c) {
			return true
		}
		n, perr := produce(c)
		if perr != nil {
			err = perr
			return false
		}
		if n != nil {
			c.Replace(n)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// isIdent reports whether the cursor is at an identifier named name.
func isIdent(c *astutil.Cursor, name string) bool {
	id, ok := c.Node().(*ast.Ident)
	return ok && id.Name == name
}

// inExprPosition reports whether the cursor's identifier is used as an
// expression or type rather than declared, assigned to, or selected.
func inExprPosition(c *astutil.Cursor) bool {
	switch c.Parent().(type) {
	case *ast.SelectorExpr:
		return c.Name() != "Sel"
	case *ast.Field:
		return c.Name() != "Names"
	case *ast.ValueSpec:
		return c.Name() != "Names"
	case *ast.TypeSpec:
		return c.Name() != "Name"
	case *ast.FuncDecl:
		return c.Name() != "Name"
	case *ast.LabeledStmt, *ast.BranchStmt, *ast.ImportSpec:
		return false
	case *ast.KeyValueExpr:
		return c.Name() != "Key"
	case *ast.AssignStmt:
		return c.Name() != "Lhs"
	case *ast.RangeStmt:
		return c.Name() != "Key" && c.Name() != "Value"
	}
	return true
}

// isSelfType reports whether expr names the struct, with or without type
// arguments.
func isSelfType(expr ast.Expr, name string) bool {
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name == name
	case *ast.IndexExpr:
		return isSelfType(e.X, name)
	case *ast.IndexListExpr:
		return isSelfType(e.X, name)
	}
	return false
}

// typeArgs returns the type arguments of an instantiated type expression.
func typeArgs(expr ast.Expr) []ast.Expr {
	switch e := expr.(type) {
	case *ast.IndexExpr:
		return []ast.Expr{e.Index}
	case *ast.IndexListExpr:
		return e.Indices
	}
	return nil
}

// instantiate returns x[args...].
func instantiate(x ast.Expr, args ...ast.Expr) ast.Expr {
	if len(args) == 1 {
		return &ast.IndexExpr{X: x, Index: args[0]}
	}
	return &ast.IndexListExpr{X: x, Indices: args}
}

// identsOf returns every identifier name appearing in n.
func identsOf(n ast.Node) map[string]bool {
	names := make(map[string]bool)
	ast.Inspect(n, func(n ast.Node) bool {
		if id, ok := n.(*ast.Ident); ok {
			names[id.Name] = true
		}
		return true
	})
	return names
}
