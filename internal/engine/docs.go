package engine

import (
	"go/ast"
	"go/printer"
	"go/token"
	"strings"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/roach88/stated/internal/compiler"
	"github.com/roach88/stated/internal/ir"
)

// describeStruct summarises a struct's declared and preset states.
func describeStruct(decl *ir.Declaration) []string {
	return describe(
		label{"States", decl.StateNames()},
		label{"Preset", ir.Names(decl.Preset)},
	)
}

// describeOperation summarises an operation's rules.
func describeOperation(plan *ir.OperationPlan) []string {
	return describe(
		label{"Asserts", plan.Assert},
		label{"Rejects", plan.Reject},
		label{"Assigns", plan.Assign},
		label{"Deletes", plan.Delete},
	)
}

type label struct {
	name   string
	states []string
}

// describe renders one line per non-empty label.
func describe(labels ...label) []string {
	var lines []string
	for _, l := range labels {
		if len(l.states) == 0 {
			continue
		}
		lines = append(lines, l.name+": "+strings.Join(l.states, ", ")+".")
	}
	return lines
}

// prettySignature renders the authored method signature with the
// designated type argument and every placeholder argument erased:
//
//	func (b Builder[S]) Recipient(r string) Builder[_]
//
// becomes
//
//	func (b Builder) Recipient(r string) Builder
func (x *expansion) prettySignature(op *operation) string {
	fn := op.fn
	recv := cloneFields(fn.Recv)
	sig := &ast.FuncDecl{
		Recv: recv,
		Name: ast.NewIdent(fn.Name.Name),
		Type: &ast.FuncType{
			Params:  cloneFields(fn.Type.Params),
			Results: cloneFields(fn.Type.Results),
		},
	}
	designated := op.designatedName()
	erase := func(arg ast.Expr) bool {
		id, ok := arg.(*ast.Ident)
		return ok && (id.Name == "_" || id.Name == designated)
	}
	_, _ = replaceAll(sig,
		func(c *astutil.Cursor) bool {
			e, ok := c.Node().(ast.Expr)
			return ok && typeArgs(e) != nil && isSelfType(e, op.self.name())
		},
		func(c *astutil.Cursor) (ast.Node, error) {
			e := c.Node().(ast.Expr)
			var keep []ast.Expr
			for _, a := range typeArgs(e) {
				if !erase(a) {
					keep = append(keep, a)
				}
			}
			base := ast.NewIdent(op.self.name())
			if len(keep) == 0 {
				return base, nil
			}
			return instantiate(base, keep...), nil
		},
	)

	var b strings.Builder
	if err := printer.Fprint(&b, token.NewFileSet(), sig); err != nil {
		return ""
	}
	return b.String()
}

// operationDoc assembles the doc comment of a generated function: the
// method's own doc without directives, then the rule summary and the
// pretty signature as requested by the struct's docs option.
func (x *expansion) operationDoc(op *operation, plan *ir.OperationPlan) []string {
	var lines []string
	if op.fn.Doc != nil {
		for _, c := range op.fn.Doc.List {
			if compiler.IsDirective(c) {
				continue
			}
			lines = append(lines, c.Text)
		}
	}
	for len(lines) > 0 && lines[len(lines)-1] == "//" {
		lines = lines[:len(lines)-1]
	}
	docs := op.self.decl.Docs
	var extra []string
	if docs.Description {
		for _, l := range describeOperation(plan) {
			extra = append(extra, "// "+l)
		}
	}
	if !docs.Ugly {
		if sig := op.pretty; sig != "" {
			if len(extra) > 0 {
				extra = append(extra, "//")
			}
			for _, l := range strings.Split(sig, "\n") {
				extra = append(extra, "//\t"+l)
			}
		}
	}
	if len(lines) == 0 && len(extra) > 0 && strings.HasPrefix(extra[0], "//\t") {
		// gofmt turns a leading indented block into prose.
		lines = append(lines, "// "+op.fn.Name.Name+" is generated from:")
	}
	if len(lines) > 0 && len(extra) > 0 {
		lines = append(lines, "//")
	}
	return append(lines, extra...)
}
