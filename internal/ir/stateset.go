package ir

import "slices"

// Stateset maps supported option kinds to ordered identifier lists.
//
// Kinds are registered up front with NewStateset. A kind that was never
// registered is never present: Append reports false for it and the caller
// applies its unknown-key policy.
type Stateset struct {
	kinds   []OptionKind
	entries map[OptionKind][]Ident
}

// NewStateset returns an empty Stateset supporting the given kinds.
func NewStateset(kinds ...OptionKind) *Stateset {
	return &Stateset{
		kinds:   slices.Clone(kinds),
		entries: make(map[OptionKind][]Ident, len(kinds)),
	}
}

// Supports reports whether kind was registered.
func (s *Stateset) Supports(kind OptionKind) bool {
	return slices.Contains(s.kinds, kind)
}

// Kinds returns the registered kinds in registration order.
func (s *Stateset) Kinds() []OptionKind {
	return slices.Clone(s.kinds)
}

// Append adds ids to kind, keeping their order. It returns false and changes
// nothing if kind is not supported.
func (s *Stateset) Append(kind OptionKind, ids ...Ident) bool {
	if !s.Supports(kind) {
		return false
	}
	s.entries[kind] = append(s.entries[kind], ids...)
	return true
}

// Get returns the identifiers recorded for kind.
func (s *Stateset) Get(kind OptionKind) []Ident {
	return s.entries[kind]
}

// Has reports whether kind has at least one recorded entry.
func (s *Stateset) Has(kind OptionKind) bool {
	return len(s.entries[kind]) > 0
}

// Present returns the kinds holding entries, in registration order.
func (s *Stateset) Present() []OptionKind {
	var present []OptionKind
	for _, k := range s.kinds {
		if len(s.entries[k]) > 0 {
			present = append(present, k)
		}
	}
	return present
}
