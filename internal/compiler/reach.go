package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/stated/internal/ir"
)

// MaxReachStates bounds the number of states AnalyzeReachability explores.
// Larger declarations are skipped with a warning.
const MaxReachStates = 20

// Reachability is the transition graph of one typestate struct over
// concrete state vectors.
type Reachability struct {
	Struct       string      `json:"struct"`
	States       []string    `json:"states"`
	Nodes        []ReachNode `json:"nodes"`
	Edges        []ReachEdge `json:"edges"`
	Uncallable   []string    `json:"uncallable"`
	NeverEnabled []string    `json:"never_enabled"`
	Cycles       [][]string  `json:"cycles"`
	Skipped      bool        `json:"skipped,omitempty"`
}

// ReachNode is one reachable state vector.
type ReachNode struct {
	ID      string   `json:"id"`
	Enabled []string `json:"enabled"`
}

// ReachEdge is one operation call. From is empty for constructors.
type ReachEdge struct {
	From string `json:"from,omitempty"`
	To   string `json:"to"`
	Op   string `json:"op"`
}

type stateVector uint32

func (v stateVector) id() string {
	return fmt.Sprintf("s%d", uint32(v))
}

// masks holds one operation's rules as bitmasks over declaration order.
type masks struct {
	assert, reject, assign, delete stateVector
}

func ruleMasks(decl *ir.Declaration, rules *ir.Ruleset) masks {
	var m masks
	for i, s := range decl.States {
		bit := stateVector(1) << i
		if rules.Asserts(s.Name) {
			m.assert |= bit
		}
		if rules.Rejects(s.Name) {
			m.reject |= bit
		}
		if rules.Assigns(s.Name) {
			m.assign |= bit
		}
		if rules.Deletes(s.Name) {
			m.delete |= bit
		}
	}
	return m
}

func (m masks) callable(v stateVector) bool {
	return v&m.assert == m.assert && v&m.reject == 0
}

// apply computes the outgoing vector with the precedence assign, delete,
// assert, reject.
func (m masks) apply(v stateVector) stateVector {
	v &^= m.reject
	v |= m.assert
	v &^= m.delete
	v |= m.assign
	return v
}

// AnalyzeReachability explores every state vector reachable from the
// struct's constructors through its receiver operations.
//
// It records a W200 warning for each operation no reachable vector can
// call and a W201 warning for each state no reachable vector enables.
// Declarations with more than MaxReachStates states are skipped with W202.
func AnalyzeReachability(ctx *Context, decl *ir.Declaration, ops []ir.OperationPlan) *Reachability {
	r := &Reachability{
		Struct:       decl.Name,
		States:       decl.StateNames(),
		Nodes:        []ReachNode{},
		Edges:        []ReachEdge{},
		Uncallable:   []string{},
		NeverEnabled: []string{},
		Cycles:       [][]string{},
	}
	if len(decl.States) > MaxReachStates {
		ctx.Warnf(decl.States[0].Pos, WarnTooManyStates,
			"%s declares %d states; reachability analysis is limited to %d", decl.Name, len(decl.States), MaxReachStates)
		r.Skipped = true
		return r
	}

	var preset stateVector
	for i, s := range decl.States {
		if decl.IsPreset(s.Name) {
			preset |= stateVector(1) << i
		}
	}

	graph := newTransitionGraph()
	seen := make(map[stateVector]bool)
	var queue []stateVector
	visit := func(v stateVector) {
		if seen[v] {
			return
		}
		seen[v] = true
		queue = append(queue, v)
		graph.addNode(v.id())
		r.Nodes = append(r.Nodes, ReachNode{ID: v.id(), Enabled: enabledNames(decl, v)})
	}

	called := make(map[string]bool)
	for i := range ops {
		op := &ops[i]
		if !op.IsConstructor() {
			continue
		}
		// A constructor starts from the preset and applies its rules once.
		out := ruleMasks(decl, &op.Rules).apply(preset)
		called[op.Name] = true
		visit(out)
		r.Edges = append(r.Edges, ReachEdge{To: out.id(), Op: op.Name})
	}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for i := range ops {
			op := &ops[i]
			if op.IsConstructor() {
				continue
			}
			m := ruleMasks(decl, &op.Rules)
			if !m.callable(v) {
				continue
			}
			called[op.Name] = true
			out := m.apply(v)
			visit(out)
			graph.addEdge(v.id(), out.id())
			r.Edges = append(r.Edges, ReachEdge{From: v.id(), To: out.id(), Op: op.Name})
		}
	}

	for i := range ops {
		if !called[ops[i].Name] {
			r.Uncallable = append(r.Uncallable, ops[i].Name)
			ctx.Warnf(ops[i].Pos, WarnUncallable, "operation %s of %s is never callable", ops[i].Name, decl.Name)
		}
	}

	var union stateVector
	for v := range seen {
		union |= v
	}
	for i, s := range decl.States {
		if union&(stateVector(1)<<i) == 0 {
			r.NeverEnabled = append(r.NeverEnabled, s.Name)
			ctx.Warnf(s.Pos, WarnNeverEnabled, "state %s of %s is never enabled", s.Name, decl.Name)
		}
	}

	r.Cycles = append(r.Cycles, graph.cycles()...)
	return r
}

func enabledNames(decl *ir.Declaration, v stateVector) []string {
	names := []string{}
	for i, s := range decl.States {
		if v&(stateVector(1)<<i) != 0 {
			names = append(names, s.Name)
		}
	}
	return names
}

// Label renders a node's enabled states, or "none".
func (n ReachNode) Label() string {
	if len(n.Enabled) == 0 {
		return "none"
	}
	return strings.Join(n.Enabled, ", ")
}

// DOT renders the graph in Graphviz syntax. Constructors start from a point
// node named "start".
func (r *Reachability) DOT() string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", r.Struct)
	b.WriteString("\trankdir=LR;\n")
	b.WriteString("\tstart [shape=point];\n")
	for _, n := range r.Nodes {
		fmt.Fprintf(&b, "\t%s [label=%q];\n", n.ID, n.Label())
	}
	for _, e := range r.Edges {
		from := e.From
		if from == "" {
			from = "start"
		}
		fmt.Fprintf(&b, "\t%s -> %s [label=%q];\n", from, e.To, e.Op)
	}
	b.WriteString("}\n")
	return b.String()
}
