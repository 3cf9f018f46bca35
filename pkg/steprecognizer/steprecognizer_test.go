package steprecognizer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/google/maketrace/internal/mtconfig"
	"github.com/google/maketrace/pkg/argvlex"
	"github.com/google/maketrace/pkg/graph"
	"github.com/google/maketrace/pkg/tracetypes"
)

func procNode(id int64, argv []string) *tracetypes.TraceNode {
	return &tracetypes.TraceNode{Kind: tracetypes.ProcessNode, ProcessID: id, Argv: argv}
}

func TestCollapseCompileRecognizesStep(t *testing.T) {
	g := graph.New[*tracetypes.TraceNode]()
	gcc := procNode(1, []string{"gcc", "-c", "a.c", "-o", "a.o"})
	g.AddNode(gcc)

	targets := Recognize(g, mtconfig.Default(), argvlex.NewNamer(""))

	require.Len(t, targets, 1)
	require.Equal(t, tracetypes.CCompile, targets[0].Kind)
	require.Equal(t, "a.o", targets[0].Output)
	require.False(t, g.Has("proc/1"))
	require.True(t, g.Has("compile/1"))
}

func TestCollapseCompileAbsorbsCC1Helper(t *testing.T) {
	g := graph.New[*tracetypes.TraceNode]()
	gcc := procNode(1, []string{"gcc", "-c", "a.c", "-o", "a.o"})
	cc1 := procNode(2, []string{"cc1", "a.c"})
	header := &tracetypes.TraceNode{Kind: tracetypes.SourceFileNode, Path: "a.h"}
	g.AddNode(gcc)
	g.AddNode(cc1)
	g.AddNode(header)
	require.NoError(t, g.AddEdge(gcc.ID(), cc1.ID()))
	require.NoError(t, g.AddEdge(header.ID(), cc1.ID()))

	targets := Recognize(g, mtconfig.Default(), argvlex.NewNamer(""))

	require.False(t, g.Has("proc/1"))
	require.False(t, g.Has("proc/2"))
	require.Len(t, targets, 1)
	require.EqualValues(t, 2, targets[0].FrontendProcessID)
	require.Len(t, targets[0].Headers, 1)
	require.Equal(t, "a.h", targets[0].Headers[0].Value)
}

func TestCollapseStaticLink(t *testing.T) {
	g := graph.New[*tracetypes.TraceNode]()
	ar := procNode(1, []string{"ar", "rcs", "libfoo.a", "a.o", "b.o"})
	g.AddNode(ar)

	targets := Recognize(g, mtconfig.Default(), argvlex.NewNamer(""))

	require.Len(t, targets, 1)
	require.Equal(t, tracetypes.CLink, targets[0].Kind)
	require.Equal(t, "libfoo.a", targets[0].Output)
}

func TestCollapseDynamicLinkWalksThroughCollect2(t *testing.T) {
	g := graph.New[*tracetypes.TraceNode]()
	gccDriver := procNode(1, []string{"gcc", "-o", "app", "a.o", "b.o"})
	collect2 := procNode(2, []string{"collect2", "-o", "app", "a.o", "b.o"})
	ld := procNode(3, []string{"ld", "-o", "app", "a.o", "b.o"})
	g.AddNode(gccDriver)
	g.AddNode(collect2)
	g.AddNode(ld)
	require.NoError(t, g.AddEdge(gccDriver.ID(), collect2.ID()))
	require.NoError(t, g.AddEdge(collect2.ID(), ld.ID()))

	targets := Recognize(g, mtconfig.Default(), argvlex.NewNamer(""))

	require.Len(t, targets, 1)
	require.Equal(t, "app", targets[0].Output)
	require.False(t, g.Has("proc/1"))
	require.False(t, g.Has("proc/2"))
	require.False(t, g.Has("proc/3"))
}
