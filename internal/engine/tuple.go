package engine

import (
	"github.com/roach88/stated/internal/ir"
)

// Incoming computes the marker tuple a receiver-bearing operation accepts:
// asserted states are enabled, rejected states disabled, and every other
// state passes through as the fresh type parameter fresh[state].
func Incoming(decl *ir.Declaration, rules *ir.Ruleset, fresh map[string]string) ir.Tuple {
	t := make(ir.Tuple, len(decl.States))
	for i, s := range decl.States {
		slot := ir.Slot{State: s.Name}
		switch {
		case rules.Asserts(s.Name):
			slot.Marker = ir.Enabled
		case rules.Rejects(s.Name):
			slot.Marker = ir.Disabled
		default:
			slot.Marker = ir.Pass
			slot.Param = fresh[s.Name]
		}
		t[i] = slot
	}
	return t
}

// Outgoing computes the marker tuple an operation returns.
//
// Assigned states are enabled and deleted states disabled. Otherwise an
// asserted state stays enabled and a rejected state stays disabled. A
// receiver-bearing operation passes every remaining state through from
// incoming; a constructor (incoming == nil) enables it iff it is preset.
func Outgoing(decl *ir.Declaration, rules *ir.Ruleset, incoming ir.Tuple) ir.Tuple {
	t := make(ir.Tuple, len(decl.States))
	for i, s := range decl.States {
		slot := ir.Slot{State: s.Name}
		switch {
		case rules.Assigns(s.Name):
			slot.Marker = ir.Enabled
		case rules.Deletes(s.Name):
			slot.Marker = ir.Disabled
		case rules.Asserts(s.Name):
			slot.Marker = ir.Enabled
		case rules.Rejects(s.Name):
			slot.Marker = ir.Disabled
		case incoming != nil:
			slot = incoming[i]
		case decl.IsPreset(s.Name):
			slot.Marker = ir.Enabled
		default:
			slot.Marker = ir.Disabled
		}
		t[i] = slot
	}
	return t
}

// FreshParams names the pass-through type parameter of every state that
// rules neither asserts nor rejects. A name is the state's own, with
// underscores appended while it is in taken; chosen names are added to
// taken.
func FreshParams(decl *ir.Declaration, rules *ir.Ruleset, taken map[string]bool) map[string]string {
	fresh := make(map[string]string)
	for _, s := range decl.States {
		if rules.Asserts(s.Name) || rules.Rejects(s.Name) {
			continue
		}
		name := freshName(s.Name, taken)
		taken[name] = true
		fresh[s.Name] = name
	}
	return fresh
}
