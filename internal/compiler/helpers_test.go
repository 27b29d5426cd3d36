package compiler

import (
	"go/ast"
	"go/token"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stated/internal/ir"
)

func newTestContext(policy Policy) *Context {
	return NewContext(token.NewFileSet(), policy, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// comment places text in its own file of ctx.Fset so diagnostics resolve to
// line 1 of "t.go".
func comment(ctx *Context, text string) *ast.Comment {
	f := ctx.Fset.AddFile("t.go", -1, len(text))
	f.SetLinesForContent([]byte(text))
	return &ast.Comment{Slash: token.Pos(f.Base()), Text: text}
}

func mustDirective(t *testing.T, ctx *Context, text string) *Directive {
	t.Helper()
	d, err := ParseDirective(ctx, comment(ctx, text))
	require.NoError(t, err)
	return d
}

func mustOptions(t *testing.T, ctx *Context, text string, schema *Schema) (*Directive, *Options) {
	t.Helper()
	d := mustDirective(t, ctx, text)
	opts, err := Collect(ctx, d, schema)
	require.NoError(t, err)
	return d, opts
}

func mustDeclare(t *testing.T, ctx *Context, text string) *ir.Declaration {
	t.Helper()
	d, opts := mustOptions(t, ctx, text, StructSchema)
	decl, err := Declare(ctx, "Builder", d, opts)
	require.NoError(t, err)
	return decl
}

func requireCode(t *testing.T, err error, code string) *Diagnostic {
	t.Helper()
	require.Error(t, err)
	var diag *Diagnostic
	require.ErrorAs(t, err, &diag)
	require.Equal(t, code, diag.Code, "message: %s", diag.Message)
	return diag
}
