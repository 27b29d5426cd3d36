package engine

import (
	"go/token"

	"github.com/roach88/stated/internal/compiler"
)

// Registry is the explicit channel between a typestate struct and its
// operations. Structs are registered under their export name; operations
// look them up by import name.
type Registry struct {
	entries map[string]*structInfo
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*structInfo)}
}

// Export registers s under its declaration's export name.
func (r *Registry) Export(ctx *compiler.Context, s *structInfo, pos token.Pos) error {
	name := s.decl.Export
	if prev, ok := r.entries[name]; ok {
		return ctx.Errorf(pos, compiler.ErrDuplicateExport,
			"export name %s is already used by %s", name, prev.decl.Name)
	}
	r.entries[name] = s
	return nil
}

// Import returns the struct registered under name.
func (r *Registry) Import(name string) (*structInfo, bool) {
	s, ok := r.entries[name]
	return s, ok
}

// Len returns the number of registered exports.
func (r *Registry) Len() int {
	return len(r.entries)
}
