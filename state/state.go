// Package state holds the marker types referenced by code that stated
// generates.
//
// A typestate struct carries one type argument: a marker tuple with one slot
// per declared state. Each slot is filled with [Y] when the state is enabled
// or [N] when it is disabled. None of these types hold any data; a value's
// states exist only in its type.
package state

// ImportPath is the import path generated files use for this package.
const ImportPath = "github.com/roach88/stated/state"

// Y marks an enabled state.
type Y struct{}

// N marks a disabled state.
type N struct{}

// None stands in for the designated type argument of a constructor, which
// has no incoming instance and therefore no prior states.
type None struct{}

// Marker is the type of the zero-sized tracking field added to every
// typestate struct. S is the struct's marker tuple.
type Marker[S any] struct{}
