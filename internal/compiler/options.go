package compiler

import (
	"github.com/roach88/stated/internal/ir"
)

// Schema lists the option kinds a directive accepts and the form each must
// be written in.
type Schema struct {
	Name  string
	Forms map[ir.OptionKind]ir.OptionForm
	order []ir.OptionKind
}

func newSchema(name string, kinds ...ir.OptionKind) *Schema {
	s := &Schema{Name: name, Forms: make(map[ir.OptionKind]ir.OptionForm, len(kinds)), order: kinds}
	for _, k := range kinds {
		switch k {
		case ir.KindExport, ir.KindImport:
			s.Forms[k] = ir.FormNameValue
		default:
			s.Forms[k] = ir.FormList
		}
	}
	return s
}

// Directive schemas.
var (
	StructSchema = newSchema(VerbStruct, ir.KindStates, ir.KindPreset, ir.KindDocs, ir.KindExport)
	ImplSchema   = newSchema(VerbImpl, ir.KindStates, ir.KindPreset, ir.KindDocs, ir.KindImport)
	OpSchema     = newSchema(VerbOp, ir.KindAssert, ir.KindReject, ir.KindAssign, ir.KindDelete)
)

// Options is the collected content of one directive: list entries in a
// Stateset, name-value entries by kind.
type Options struct {
	*ir.Stateset
	values map[ir.OptionKind]ir.Ident
	keys   map[ir.OptionKind]ir.Ident
}

// Value returns the identifier assigned to a name-value kind.
func (o *Options) Value(kind ir.OptionKind) (ir.Ident, bool) {
	id, ok := o.values[kind]
	return id, ok
}

// Key returns the first key identifier written for kind, for positioning
// diagnostics.
func (o *Options) Key(kind ir.OptionKind) (ir.Ident, bool) {
	id, ok := o.keys[kind]
	return id, ok
}

// Given reports whether kind was written at all, even as an empty list.
func (o *Options) Given(kind ir.OptionKind) bool {
	_, ok := o.keys[kind]
	return ok
}

// Collect checks a directive's options against schema and gathers them.
//
// Repeated list options accumulate in order. A repeated name-value option is
// malformed. Unsupported keys follow the context's policy: an error when
// strict, otherwise a skipped warning.
func Collect(ctx *Context, d *Directive, schema *Schema) (*Options, error) {
	opts := &Options{
		Stateset: ir.NewStateset(schema.order...),
		values:   make(map[ir.OptionKind]ir.Ident),
		keys:     make(map[ir.OptionKind]ir.Ident),
	}
	for _, opt := range d.Options {
		kind := opt.Kind()
		want, ok := schema.Forms[kind]
		if !ok {
			if ctx.Policy.Strict {
				return nil, ctx.Errorf(opt.Key.Pos, ErrUnsupportedOption, "unsupported option %q in //stated:%s", opt.Key.Name, schema.Name)
			}
			ctx.Warnf(opt.Key.Pos, WarnSkippedOption, "skipping unsupported option %q in //stated:%s", opt.Key.Name, schema.Name)
			continue
		}
		if opt.Form != want {
			return nil, ctx.Errorf(opt.Key.Pos, ErrOptionForm, "%s expects %s", kind, formHint(kind, want))
		}
		if _, seen := opts.keys[kind]; !seen {
			opts.keys[kind] = opt.Key
		}
		switch want {
		case ir.FormNameValue:
			if _, dup := opts.values[kind]; dup {
				return nil, ctx.Errorf(opt.Key.Pos, ErrMalformedOption, "%s is already set", kind)
			}
			opts.values[kind] = opt.Value
		default:
			opts.Append(kind, opt.Idents...)
		}
	}
	return opts, nil
}

func formHint(kind ir.OptionKind, form ir.OptionForm) string {
	if form == ir.FormNameValue {
		return "a name-value entry: " + string(kind) + " = Name"
	}
	return "a list: " + string(kind) + "(A, B)"
}
