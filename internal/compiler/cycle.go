package compiler

import (
	"slices"
)

// transitionGraph maps a state-vector node ID to the node IDs one operation
// call away. order keeps discovery order so results are deterministic.
type transitionGraph struct {
	edges map[string][]string
	order []string
}

func newTransitionGraph() *transitionGraph {
	return &transitionGraph{edges: make(map[string][]string)}
}

func (g *transitionGraph) addNode(id string) {
	if _, ok := g.edges[id]; ok {
		return
	}
	g.edges[id] = []string{}
	g.order = append(g.order, id)
}

func (g *transitionGraph) addEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	if !slices.Contains(g.edges[from], to) {
		g.edges[from] = append(g.edges[from], to)
	}
}

// hasSelfLoop checks if a node has an edge to itself.
func (g *transitionGraph) hasSelfLoop(node string) bool {
	return slices.Contains(g.edges[node], node)
}

// cycles returns every group of state vectors that can be left and entered
// again: strongly connected components of more than one node, and single
// nodes with a self-loop. Each cycle lists its nodes in discovery order.
func (g *transitionGraph) cycles() [][]string {
	var out [][]string
	for _, scc := range tarjanSCC(g) {
		if len(scc) > 1 || g.hasSelfLoop(scc[0]) {
			slices.SortFunc(scc, func(a, b string) int {
				return slices.Index(g.order, a) - slices.Index(g.order, b)
			})
			out = append(out, scc)
		}
	}
	slices.SortFunc(out, func(a, b []string) int {
		return slices.Index(g.order, a[0]) - slices.Index(g.order, b[0])
	})
	return out
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(g *transitionGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root: pop its component.
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}
	return sccs
}
