package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func ids(names ...string) []Ident {
	out := make([]Ident, len(names))
	for i, n := range names {
		out[i] = Ident{Name: n}
	}
	return out
}

func TestStatesetSupportedKinds(t *testing.T) {
	s := NewStateset(KindStates, KindPreset)

	assert.True(t, s.Append(KindStates, ids("A", "B")...))
	assert.True(t, s.Append(KindStates, ids("C")...))
	assert.False(t, s.Append(KindAssert, ids("A")...), "unsupported kind must be refused")

	assert.Equal(t, []string{"A", "B", "C"}, Names(s.Get(KindStates)))
	assert.Empty(t, s.Get(KindAssert))
	assert.False(t, s.Has(KindPreset))
	assert.Equal(t, []OptionKind{KindStates}, s.Present())
}

func TestRulesetQueries(t *testing.T) {
	r := Ruleset{Assert: ids("A"), Assign: ids("B")}

	assert.True(t, r.Asserts("A"))
	assert.False(t, r.Rejects("A"))
	assert.True(t, r.Assigns("B"))
	assert.False(t, r.Deletes("B"))
	assert.Equal(t, ids("B"), r.List(KindAssign))
	assert.Nil(t, r.List(KindStates))
	assert.False(t, r.Empty())
	assert.True(t, (&Ruleset{}).Empty())
}

func TestDeclarationMembership(t *testing.T) {
	d := Declaration{Name: "Door", States: ids("Open", "Locked"), Preset: ids("Locked")}

	assert.True(t, d.IsDeclared("Open"))
	assert.False(t, d.IsDeclared("Ajar"))
	assert.True(t, d.IsPreset("Locked"))
	assert.False(t, d.IsPreset("Open"))
	assert.Equal(t, []string{"Open", "Locked"}, d.StateNames())
}

func TestTupleString(t *testing.T) {
	tuple := Tuple{
		{State: "A", Marker: Enabled},
		{State: "B", Marker: Pass, Param: "B"},
		{State: "C", Marker: Disabled},
	}

	assert.Equal(t, "(Y, B, N)", tuple.String())
	assert.Equal(t, []string{"B"}, tuple.Params())
	assert.Equal(t, []string{"Y", "B", "N"}, TupleStrings(tuple))
}

func TestOperationPlanToValueOmitsEmptyReceiver(t *testing.T) {
	ctor := OperationPlan{Name: "New", Struct: "Door", Kind: OpConstructor}
	obj := ctor.ToValue()

	_, ok := obj["receiver"]
	assert.False(t, ok)
	assert.Equal(t, Array{}, obj["incoming"])
	assert.True(t, ctor.IsConstructor())
}
