package compiler

import (
	"go/ast"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stated/internal/ir"
)

func TestParseDirective_Forms(t *testing.T) {
	ctx := newTestContext(DefaultPolicy)
	d := mustDirective(t, ctx, "//stated:struct states(A, B), preset(A) export = Mail docs")

	assert.Equal(t, VerbStruct, d.Verb)
	require.Len(t, d.Options, 4)

	assert.Equal(t, ir.KindStates, d.Options[0].Kind())
	assert.Equal(t, ir.FormList, d.Options[0].Form)
	assert.Equal(t, []string{"A", "B"}, ir.Names(d.Options[0].Idents))

	assert.Equal(t, ir.FormList, d.Options[1].Form)
	assert.Equal(t, []string{"A"}, ir.Names(d.Options[1].Idents))

	assert.Equal(t, ir.FormNameValue, d.Options[2].Form)
	assert.Equal(t, "Mail", d.Options[2].Value.Name)

	assert.Equal(t, ir.FormPath, d.Options[3].Form)
	assert.Equal(t, "docs", d.Options[3].Key.Name)
}

func TestParseDirective_Positions(t *testing.T) {
	ctx := newTestContext(DefaultPolicy)
	d := mustDirective(t, ctx, "//stated:op assert(HasBody)")

	key := ctx.Fset.Position(d.Options[0].Key.Pos)
	assert.Equal(t, 1, key.Line)
	assert.Equal(t, 13, key.Column)

	id := ctx.Fset.Position(d.Options[0].Idents[0].Pos)
	assert.Equal(t, 20, id.Column)
}

func TestParseDirective_EmptyAndTrailingComma(t *testing.T) {
	ctx := newTestContext(DefaultPolicy)

	d := mustDirective(t, ctx, "//stated:op")
	assert.Equal(t, VerbOp, d.Verb)
	assert.Empty(t, d.Options)

	d = mustDirective(t, ctx, "//stated:op\tassign(A, B,)")
	require.Len(t, d.Options, 1)
	assert.Equal(t, []string{"A", "B"}, ir.Names(d.Options[0].Idents))
}

func TestParseDirective_KeywordKey(t *testing.T) {
	ctx := newTestContext(DefaultPolicy)
	d := mustDirective(t, ctx, "//stated:impl import = Builder")

	assert.Equal(t, VerbImpl, d.Verb)
	require.Len(t, d.Options, 1)
	assert.Equal(t, ir.KindImport, d.Options[0].Kind())
	assert.Equal(t, ir.FormNameValue, d.Options[0].Form)
	assert.Equal(t, "Builder", d.Options[0].Value.Name)
	assert.Equal(t, 15, ctx.Fset.Position(d.Options[0].Key.Pos).Column)
}

func TestParseDirective_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		code   string
		column int
	}{
		{"unknown verb", "//stated:method", ErrUnsupportedOption, 1},
		{"string literal key", `//stated:op "assert"`, ErrMalformedOption, 13},
		{"literal in list", "//stated:op assert(1)", ErrMalformedOption, 20},
		{"missing comma", "//stated:op assert(A B)", ErrMalformedOption, 22},
		{"unclosed list", "//stated:op assert(A", ErrMalformedOption, 21},
		{"missing value", "//stated:impl import =", ErrMalformedOption, 23},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := newTestContext(DefaultPolicy)
			_, err := ParseDirective(ctx, comment(ctx, tt.text))
			diag := requireCode(t, err, tt.code)
			assert.Equal(t, tt.column, diag.Pos.Column)
			assert.Equal(t, "t.go", diag.Pos.Filename)
		})
	}
}

func TestDirectives_SkipsPlainComments(t *testing.T) {
	ctx := newTestContext(DefaultPolicy)
	doc := &ast.CommentGroup{List: []*ast.Comment{
		comment(ctx, "// Recipient adds a recipient."),
		comment(ctx, "//stated:op assign(HasRecipient)"),
	}}

	ds, err := Directives(ctx, doc)
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, VerbOp, ds[0].Verb)

	ds, err = Directives(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, ds)
}
