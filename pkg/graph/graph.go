// Package graph implements the generic labeled DAG of §4.2: nodes keyed
// by an identity string, directed edges, subgraph pattern matching, and
// iterative find-and-replace to a fixpoint.
//
// The cycle-detection half is grounded on
// crux/pkg/begat/lib/ursort.go's use of github.com/twmb/algoimpl/go/graph
// for strongly-connected-component analysis.
package graph

import (
	"github.com/pkg/errors"
	algo "github.com/twmb/algoimpl/go/graph"

	"github.com/google/maketrace/internal/mterr"
)

// Node is anything that can sit in the graph: it must produce a stable
// identity string.
type Node interface {
	ID() string
}

// Graph is a generic labeled DAG over any Node type.
type Graph[N Node] struct {
	nodes map[string]N
	out   map[string]map[string]struct{}
	in    map[string]map[string]struct{}
}

// New returns an empty graph.
func New[N Node]() *Graph[N] {
	return &Graph[N]{
		nodes: make(map[string]N),
		out:   make(map[string]map[string]struct{}),
		in:    make(map[string]map[string]struct{}),
	}
}

// AddNode inserts n, a no-op if a node with the same ID is already
// present (idempotent insertion, matching GraphBuilder's need to add the
// same file node from multiple events).
func (g *Graph[N]) AddNode(n N) {
	id := n.ID()
	if _, ok := g.nodes[id]; ok {
		return
	}
	g.nodes[id] = n
	g.out[id] = make(map[string]struct{})
	g.in[id] = make(map[string]struct{})
}

// Has reports whether a node with the given id is present.
func (g *Graph[N]) Has(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given id.
func (g *Graph[N]) Node(id string) (N, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// AddEdge adds a directed edge from -> to. Both endpoints must already
// be present.
func (g *Graph[N]) AddEdge(from, to string) error {
	if !g.Has(from) {
		return errors.Errorf("add edge: unknown source node %q", from)
	}
	if !g.Has(to) {
		return errors.Errorf("add edge: unknown destination node %q", to)
	}
	g.out[from][to] = struct{}{}
	g.in[to][from] = struct{}{}
	return nil
}

// RemoveNode deletes a node and every edge touching it.
func (g *Graph[N]) RemoveNode(id string) {
	if !g.Has(id) {
		return
	}
	for to := range g.out[id] {
		delete(g.in[to], id)
	}
	for from := range g.in[id] {
		delete(g.out[from], id)
	}
	delete(g.out, id)
	delete(g.in, id)
	delete(g.nodes, id)
}

// Outgoing returns the ids of nodes id points to.
func (g *Graph[N]) Outgoing(id string) []string {
	return keys(g.out[id])
}

// Incoming returns the ids of nodes pointing to id.
func (g *Graph[N]) Incoming(id string) []string {
	return keys(g.in[id])
}

// OutDegree and InDegree support the pattern matcher's
// exact_incoming_count / exact_outgoing_count predicates.
func (g *Graph[N]) OutDegree(id string) int { return len(g.out[id]) }
func (g *Graph[N]) InDegree(id string) int  { return len(g.in[id]) }

// Nodes returns every node id currently in the graph. Order is
// unspecified; callers that need determinism sort it themselves.
func (g *Graph[N]) Nodes() []string {
	return keys(g.nodes)
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// IsAcyclic reports whether the graph currently has no cycles, using
// strongly-connected-component analysis the same way
// crux/pkg/begat/lib/ursort.go does: a graph is acyclic iff every SCC is
// a singleton with no self-loop.
func (g *Graph[N]) IsAcyclic() bool {
	ag := algo.New(algo.Directed)
	handles := make(map[string]algo.Node)
	for id := range g.nodes {
		handles[id] = ag.MakeNode()
		*handles[id].Value = id
	}
	for from, tos := range g.out {
		for to := range tos {
			if from == to {
				return false
			}
			if err := ag.MakeEdge(handles[from], handles[to]); err != nil {
				mterr.Assert(false, "graph: unexpected MakeEdge error: %v", err)
			}
		}
	}
	for _, component := range ag.StronglyConnectedComponents() {
		if len(component) > 1 {
			return false
		}
	}
	return true
}
