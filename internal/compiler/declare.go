package compiler

import (
	"go/token"
	"slices"

	"github.com/roach88/stated/internal/ir"
)

// Docs toggle names accepted by docs(...).
const (
	DocsDescription = "description"
	DocsUgly        = "ugly"
)

// Declare validates the options of a //stated:struct directive for the
// struct name and returns its declaration.
//
// Checks run in order: at least one state, no duplicate declared state, no
// duplicate preset state, every preset state declared, docs toggles. The
// first violation is returned.
func Declare(ctx *Context, name string, d *Directive, opts *Options) (*ir.Declaration, error) {
	states := opts.Get(ir.KindStates)
	if len(states) == 0 {
		pos := d.Pos()
		if key, ok := opts.Key(ir.KindStates); ok {
			pos = key.Pos
		}
		return nil, ctx.Errorf(pos, ErrNoStates, "no states declared for %s", name)
	}
	if dup, ok := firstDuplicate(states); ok {
		return nil, ctx.Errorf(dup.Pos, ErrDuplicateState, "state is already declared: %s", dup.Name)
	}

	preset := opts.Get(ir.KindPreset)
	if dup, ok := firstDuplicate(preset); ok {
		return nil, ctx.Errorf(dup.Pos, ErrDuplicatePreset, "state is already preset: %s", dup.Name)
	}
	decl := &ir.Declaration{Name: name, Export: name, States: states, Preset: preset}
	for _, id := range preset {
		if !decl.IsDeclared(id.Name) {
			return nil, ctx.Errorf(id.Pos, ErrPresetUndeclared, "preset state is not declared: %s", id.Name)
		}
	}

	docs, err := ParseDocs(ctx, opts.Get(ir.KindDocs))
	if err != nil {
		return nil, err
	}
	decl.Docs = docs

	if export, ok := opts.Value(ir.KindExport); ok {
		decl.Export = export.Name
	}
	return decl, nil
}

// ParseDocs converts docs(...) toggles into ir.Docs.
func ParseDocs(ctx *Context, ids []ir.Ident) (ir.Docs, error) {
	var docs ir.Docs
	for _, id := range ids {
		var flag *bool
		switch id.Name {
		case DocsDescription:
			flag = &docs.Description
		case DocsUgly:
			flag = &docs.Ugly
		default:
			return ir.Docs{}, ctx.Errorf(id.Pos, ErrDocsOption, "invalid docs option %q", id.Name)
		}
		if *flag {
			return ir.Docs{}, ctx.Errorf(id.Pos, ErrDocsOption, "redundant docs option %q", id.Name)
		}
		*flag = true
	}
	return docs, nil
}

// CheckBlock verifies that a //stated:impl directive restating states,
// preset or docs matches the struct's declaration exactly. Options that are
// not restated are not compared.
func CheckBlock(ctx *Context, decl *ir.Declaration, d *Directive, opts *Options) error {
	if opts.Given(ir.KindStates) {
		if !slices.Equal(ir.Names(opts.Get(ir.KindStates)), decl.StateNames()) {
			return ctx.Errorf(keyPos(opts, ir.KindStates, d), ErrBlockMismatch,
				"states do not match the declaration of %s: want %v", decl.Name, decl.StateNames())
		}
	}
	if opts.Given(ir.KindPreset) {
		if !slices.Equal(ir.Names(opts.Get(ir.KindPreset)), ir.Names(decl.Preset)) {
			return ctx.Errorf(keyPos(opts, ir.KindPreset, d), ErrBlockMismatch,
				"preset does not match the declaration of %s: want %v", decl.Name, ir.Names(decl.Preset))
		}
	}
	if opts.Given(ir.KindDocs) {
		docs, err := ParseDocs(ctx, opts.Get(ir.KindDocs))
		if err != nil {
			return err
		}
		if docs != decl.Docs {
			return ctx.Errorf(keyPos(opts, ir.KindDocs, d), ErrBlockMismatch,
				"docs do not match the declaration of %s", decl.Name)
		}
	}
	return nil
}

func keyPos(opts *Options, kind ir.OptionKind, d *Directive) token.Pos {
	if key, ok := opts.Key(kind); ok {
		return key.Pos
	}
	return d.Pos()
}

// firstDuplicate returns the first identifier whose name occurred earlier
// in ids.
func firstDuplicate(ids []ir.Ident) (ir.Ident, bool) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id.Name] {
			return id, true
		}
		seen[id.Name] = true
	}
	return ir.Ident{}, false
}
