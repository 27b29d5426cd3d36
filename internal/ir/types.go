package ir

import (
	"go/token"
	"strings"
)

// Ident is a state identifier together with where it was written.
type Ident struct {
	Name string    `json:"name"`
	Pos  token.Pos `json:"-"`
}

// Names returns the names of the given identifiers in order.
func Names(ids []Ident) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Name
	}
	return names
}

// OptionKind is one key of the closed option vocabulary.
type OptionKind string

const (
	KindStates OptionKind = "states"
	KindPreset OptionKind = "preset"
	KindAssert OptionKind = "assert"
	KindReject OptionKind = "reject"
	KindAssign OptionKind = "assign"
	KindDelete OptionKind = "delete"
	KindDocs   OptionKind = "docs"
	KindExport OptionKind = "export"
	KindImport OptionKind = "import"
)

// RuleKinds lists the per-operation rule kinds in validation order.
var RuleKinds = []OptionKind{KindAssert, KindReject, KindAssign, KindDelete}

// OptionForm is the syntactic shape an option was written in.
type OptionForm int

const (
	// FormPath is a bare key: `docs`.
	FormPath OptionForm = iota
	// FormList is a parenthesised list: `states(A, B)`.
	FormList
	// FormNameValue is an assignment: `export = Name`.
	FormNameValue
)

func (f OptionForm) String() string {
	switch f {
	case FormList:
		return "list"
	case FormNameValue:
		return "name-value"
	default:
		return "path"
	}
}

// Option is one parsed directive entry.
type Option struct {
	Key    Ident      // option key as written
	Form   OptionForm // shape of the entry
	Idents []Ident    // list entries (FormList)
	Value  Ident      // assigned identifier (FormNameValue)
}

// Kind returns the option's kind. The result is only meaningful after the
// key has been checked against the supported vocabulary.
func (o Option) Kind() OptionKind {
	return OptionKind(o.Key.Name)
}

// Docs holds the documentation toggles of a declaration.
type Docs struct {
	Description bool `json:"description"`
	Ugly        bool `json:"ugly"`
}

// Declaration is the validated configuration of a typestate struct.
type Declaration struct {
	Name   string  `json:"name"`   // struct name
	Export string  `json:"export"` // registry channel name, defaults to Name
	States []Ident `json:"states"`
	Preset []Ident `json:"preset"`
	Docs   Docs    `json:"docs"`
}

// StateNames returns the declared state names in declaration order.
func (d *Declaration) StateNames() []string {
	return Names(d.States)
}

// IsDeclared reports whether name is a declared state.
func (d *Declaration) IsDeclared(name string) bool {
	return contains(d.States, name)
}

// IsPreset reports whether name is preset at construction.
func (d *Declaration) IsPreset(name string) bool {
	return contains(d.Preset, name)
}

// Ruleset is the validated assert/reject/assign/delete configuration of one
// operation.
type Ruleset struct {
	Assert []Ident `json:"assert"`
	Reject []Ident `json:"reject"`
	Assign []Ident `json:"assign"`
	Delete []Ident `json:"delete"`
}

// List returns the identifiers of a rule kind.
func (r *Ruleset) List(kind OptionKind) []Ident {
	switch kind {
	case KindAssert:
		return r.Assert
	case KindReject:
		return r.Reject
	case KindAssign:
		return r.Assign
	case KindDelete:
		return r.Delete
	}
	return nil
}

// Asserts reports whether the ruleset asserts name.
func (r *Ruleset) Asserts(name string) bool { return contains(r.Assert, name) }

// Rejects reports whether the ruleset rejects name.
func (r *Ruleset) Rejects(name string) bool { return contains(r.Reject, name) }

// Assigns reports whether the ruleset assigns name.
func (r *Ruleset) Assigns(name string) bool { return contains(r.Assign, name) }

// Deletes reports whether the ruleset deletes name.
func (r *Ruleset) Deletes(name string) bool { return contains(r.Delete, name) }

// Empty reports whether the ruleset has no rules at all.
func (r *Ruleset) Empty() bool {
	return len(r.Assert)+len(r.Reject)+len(r.Assign)+len(r.Delete) == 0
}

func contains(ids []Ident, name string) bool {
	for _, id := range ids {
		if id.Name == name {
			return true
		}
	}
	return false
}

// Marker is the status of one state in a marker tuple.
type Marker int

const (
	// Pass leaves the state as an unconstrained type parameter.
	Pass Marker = iota
	// Enabled fills the slot with the enabled marker.
	Enabled
	// Disabled fills the slot with the disabled marker.
	Disabled
)

func (m Marker) String() string {
	switch m {
	case Enabled:
		return "Y"
	case Disabled:
		return "N"
	default:
		return "_"
	}
}

// Slot is one position of a marker tuple.
type Slot struct {
	State  string `json:"state"`
	Marker Marker `json:"-"`
	// Param names the type parameter carried through a Pass slot.
	Param string `json:"param,omitempty"`
}

// Tuple is a marker tuple: one slot per declared state, in declaration order.
type Tuple []Slot

// String renders the tuple compactly, e.g. "(Y, HasBody, N)".
func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, s := range t {
		if s.Marker == Pass {
			parts[i] = s.Param
		} else {
			parts[i] = s.Marker.String()
		}
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Params returns the type parameter names of the tuple's Pass slots.
func (t Tuple) Params() []string {
	var params []string
	for _, s := range t {
		if s.Marker == Pass {
			params = append(params, s.Param)
		}
	}
	return params
}
