package graph

import (
	"github.com/google/maketrace/internal/mtlog"
)

// Pattern describes a subgraph to look for: a sequence of node
// predicates plus the edges required between them, addressed by index
// into the pattern slice. This is the "subgraph pattern matching" mechanism of §4.2
// that StepRecognizer's three rewrite rules (§4.4) are built on.
type Pattern[N Node] struct {
	// Match reports whether the given node satisfies this pattern slot.
	Match func(n N) bool
	// ExactIncoming, if >= 0, requires the matched node to have exactly
	// this many incoming edges within the whole graph (not just the
	// matched subgraph) before it is considered a match.
	ExactIncoming int
	// ExactOutgoing mirrors ExactIncoming for outgoing edges.
	ExactOutgoing int
}

// EdgeConstraint names a required edge between two pattern slots, by
// index into the Pattern slice passed to FindSubgraph.
type EdgeConstraint struct {
	From, To int
}

// Match is one located instance of a pattern: graph ids in the same
// order as the Pattern slots that found them.
type Match struct {
	IDs []string
}

// FindSubgraph returns every match of patterns (connected via edges) in
// g. Candidate node order is unspecified (map iteration), so matches come
// back in no particular order.
func FindSubgraph[N Node](g *Graph[N], patterns []Pattern[N], edges []EdgeConstraint) []Match {
	var matches []Match
	candidates := make([][]string, len(patterns))
	for i, p := range patterns {
		for _, id := range g.Nodes() {
			n, _ := g.Node(id)
			if !p.Match(n) {
				continue
			}
			if p.ExactIncoming >= 0 && g.InDegree(id) != p.ExactIncoming {
				continue
			}
			if p.ExactOutgoing >= 0 && g.OutDegree(id) != p.ExactOutgoing {
				continue
			}
			candidates[i] = append(candidates[i], id)
		}
	}
	var assign func(slot int, chosen []string)
	assign = func(slot int, chosen []string) {
		if slot == len(patterns) {
			ids := make([]string, len(chosen))
			copy(ids, chosen)
			matches = append(matches, Match{IDs: ids})
			return
		}
		for _, id := range candidates[slot] {
			if contains(chosen, id) {
				continue
			}
			next := append(chosen, id)
			if edgesSatisfied(g, patterns, edges, next) {
				assign(slot+1, next)
			}
		}
	}
	assign(0, nil)
	return matches
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func edgesSatisfied[N Node](g *Graph[N], patterns []Pattern[N], edges []EdgeConstraint, chosen []string) bool {
	for _, ec := range edges {
		if ec.From >= len(chosen) || ec.To >= len(chosen) {
			continue // not all slots filled yet; checked again once they are
		}
		from, to := chosen[ec.From], chosen[ec.To]
		found := false
		for _, o := range g.Outgoing(from) {
			if o == to {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Rewrite is the callback StepRecognizer's rules implement: given a
// located Match, produce the replacement node and report whether the
// rewrite applies (a Match satisfying the structural pattern can still
// be rejected on semantic grounds, e.g. an argv that doesn't parse as a
// compile invocation).
type Rewrite[N Node] func(g *Graph[N], m Match) (replacement N, ok bool)

// FindAndReplaceSubgraph finds every match of patterns on each pass and
// applies rewrite to each match whose nodes are all still present,
// collapsing the matched subgraph into the single replacement node, until
// a pass applies nothing or cap passes have run. This is find_and_replace_subgraph from §4.2, and the
// iteration cap is the bounded-fixpoint mechanism §5 requires.
func FindAndReplaceSubgraph[N Node](g *Graph[N], patterns []Pattern[N], edges []EdgeConstraint, rewrite Rewrite[N], cap int) int {
	applied := 0
	for iter := 0; iter < cap; iter++ {
		matches := FindSubgraph(g, patterns, edges)
		progressed := false
		for _, m := range matches {
			if !allPresent(g, m.IDs) {
				continue // an earlier rewrite this pass already consumed one of these ids
			}
			replacement, ok := rewrite(g, m)
			if !ok {
				continue
			}
			collapse(g, m.IDs, replacement)
			applied++
			progressed = true
		}
		if !progressed {
			return applied
		}
	}
	mtlog.L().Warn("graph: find-and-replace hit its iteration cap without reaching a fixpoint")
	return applied
}

func allPresent[N Node](g *Graph[N], ids []string) bool {
	for _, id := range ids {
		if !g.Has(id) {
			return false
		}
	}
	return true
}

// collapse removes the matched node set and rewires every external edge
// touching it onto the replacement node, then inserts the replacement.
func collapse[N Node](g *Graph[N], ids []string, replacement N) {
	matched := make(map[string]bool, len(ids))
	for _, id := range ids {
		matched[id] = true
	}
	var externalIn, externalOut []string
	for _, id := range ids {
		for _, from := range g.Incoming(id) {
			if !matched[from] {
				externalIn = append(externalIn, from)
			}
		}
		for _, to := range g.Outgoing(id) {
			if !matched[to] {
				externalOut = append(externalOut, to)
			}
		}
	}
	for _, id := range ids {
		g.RemoveNode(id)
	}
	g.AddNode(replacement)
	rid := replacement.ID()
	for _, from := range externalIn {
		_ = g.AddEdge(from, rid)
	}
	for _, to := range externalOut {
		_ = g.AddEdge(rid, to)
	}
}
