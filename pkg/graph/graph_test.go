package graph

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type strNode string

func (s strNode) ID() string { return string(s) }

func TestAddAndTraverse(t *testing.T) {
	g := New[strNode]()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "c"))

	require.ElementsMatch(t, []string{"b"}, g.Outgoing("a"))
	require.ElementsMatch(t, []string{"b"}, g.Incoming("c"))
	require.True(t, g.IsAcyclic())
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New[strNode]()
	g.AddNode("a")
	require.Error(t, g.AddEdge("a", "missing"))
}

func TestIsAcyclicDetectsCycle(t *testing.T) {
	g := New[strNode]()
	g.AddNode("a")
	g.AddNode("b")
	require.NoError(t, g.AddEdge("a", "b"))
	require.NoError(t, g.AddEdge("b", "a"))
	require.False(t, g.IsAcyclic())
}

func TestRemoveNodeClearsEdges(t *testing.T) {
	g := New[strNode]()
	g.AddNode("a")
	g.AddNode("b")
	require.NoError(t, g.AddEdge("a", "b"))
	g.RemoveNode("b")
	require.Empty(t, g.Outgoing("a"))
	require.False(t, g.Has("b"))
}

func TestFindAndReplaceCollapsesChain(t *testing.T) {
	g := New[strNode]()
	g.AddNode("src")
	g.AddNode("mid")
	g.AddNode("dst")
	require.NoError(t, g.AddEdge("src", "mid"))
	require.NoError(t, g.AddEdge("mid", "dst"))

	patterns := []Pattern[strNode]{
		{Match: func(n strNode) bool { return n == "src" }, ExactIncoming: -1, ExactOutgoing: -1},
		{Match: func(n strNode) bool { return n == "mid" }, ExactIncoming: -1, ExactOutgoing: -1},
	}
	edges := []EdgeConstraint{{From: 0, To: 1}}
	rewrite := func(g *Graph[strNode], m Match) (strNode, bool) {
		return strNode("collapsed"), true
	}

	applied := FindAndReplaceSubgraph(g, patterns, edges, rewrite, 10)
	require.Equal(t, 1, applied)
	require.False(t, g.Has("src"))
	require.False(t, g.Has("mid"))
	require.True(t, g.Has("collapsed"))
	require.ElementsMatch(t, []string{"dst"}, g.Outgoing("collapsed"))
}
