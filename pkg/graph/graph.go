package graph

import (
	"fmt"

	"github.com/spinje/pflow/pkg/ir"
)

// Graph wraps a workflow's nodes and edges for DAG analysis.
type Graph struct {
	nodes []ir.Node
	edges []ir.Edge
	index map[string]int // node id -> document position
}

// New creates a Graph from nodes and edges. Edges referencing unknown nodes
// are reported by Validate / TopologicalSort, not here.
func New(nodes []ir.Node, edges []ir.Edge) *Graph {
	index := make(map[string]int, len(nodes))
	for i := range nodes {
		index[nodes[i].ID] = i
	}
	return &Graph{nodes: nodes, edges: edges, index: index}
}

// TopologicalSort computes a deterministic execution order using Kahn's
// algorithm. Among nodes whose dependencies are all satisfied, the one that
// appears first in the IR document runs first, so the plan is stable across
// runs.
//
// Returns:
//   - []string: node IDs in execution order
//   - error: ErrUnknownNode for edges naming missing nodes, ErrCycleDetected
//     when the graph is not a DAG
func (g *Graph) TopologicalSort() ([]string, error) {
	numNodes := len(g.nodes)
	if numNodes == 0 {
		return []string{}, nil
	}

	inDegree := make(map[string]int, numNodes)
	adjacency := make(map[string][]string, numNodes)
	for i := range g.nodes {
		inDegree[g.nodes[i].ID] = 0
	}
	for i := range g.edges {
		edge := &g.edges[i]
		if _, ok := g.index[edge.From]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, edge.From)
		}
		if _, ok := g.index[edge.To]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownNode, edge.To)
		}
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
		inDegree[edge.To]++
	}

	// ready holds nodes whose dependencies are satisfied, kept sorted by
	// document position so ties resolve deterministically.
	var ready []string
	for i := range g.nodes {
		if inDegree[g.nodes[i].ID] == 0 {
			ready = append(ready, g.nodes[i].ID)
		}
	}

	order := make([]string, 0, numNodes)
	for len(ready) > 0 {
		// Pick the ready node earliest in document order.
		best := 0
		for i := 1; i < len(ready); i++ {
			if g.index[ready[i]] < g.index[ready[best]] {
				best = i
			}
		}
		current := ready[best]
		ready = append(ready[:best], ready[best+1:]...)
		order = append(order, current)

		for _, neighbor := range adjacency[current] {
			inDegree[neighbor]--
			if inDegree[neighbor] == 0 {
				ready = append(ready, neighbor)
			}
		}
	}

	if len(order) != numNodes {
		return nil, ErrCycleDetected
	}
	return order, nil
}

// Sources returns the ids of nodes with no incoming edges, in document order.
func (g *Graph) Sources() []string {
	incoming := make(map[string]bool, len(g.nodes))
	for _, edge := range g.edges {
		incoming[edge.To] = true
	}
	var sources []string
	for i := range g.nodes {
		if !incoming[g.nodes[i].ID] {
			sources = append(sources, g.nodes[i].ID)
		}
	}
	return sources
}

// UnreachableNodes returns non-source nodes that cannot be reached from any
// source node. A valid multi-node workflow has none.
func (g *Graph) UnreachableNodes() []string {
	adjacency := make(map[string][]string, len(g.nodes))
	for _, edge := range g.edges {
		adjacency[edge.From] = append(adjacency[edge.From], edge.To)
	}

	reached := make(map[string]bool, len(g.nodes))
	queue := g.Sources()
	for _, id := range queue {
		reached[id] = true
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range adjacency[current] {
			if !reached[neighbor] {
				reached[neighbor] = true
				queue = append(queue, neighbor)
			}
		}
	}

	var unreachable []string
	for i := range g.nodes {
		if !reached[g.nodes[i].ID] {
			unreachable = append(unreachable, g.nodes[i].ID)
		}
	}
	return unreachable
}

// DetectCycles reports whether the graph contains a cycle.
func (g *Graph) DetectCycles() error {
	_, err := g.TopologicalSort()
	return err
}

// OutgoingEdges returns edges whose From is nodeID.
func (g *Graph) OutgoingEdges(nodeID string) []ir.Edge {
	var edges []ir.Edge
	for _, edge := range g.edges {
		if edge.From == nodeID {
			edges = append(edges, edge)
		}
	}
	return edges
}
