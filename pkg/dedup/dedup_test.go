package dedup

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/google/maketrace/internal/mtconfig"
	"github.com/google/maketrace/pkg/tracetypes"
)

func compileTarget(name, output string, args []string) *tracetypes.BuildTarget {
	return &tracetypes.BuildTarget{
		Kind:          tracetypes.CCompile,
		QualifiedName: name,
		Output:        output,
		Tool:          "gcc",
		Args:          args,
	}
}

func TestCanonicalizeIgnoresDiscardableFlags(t *testing.T) {
	cfg := mtconfig.Default()
	a := compileTarget("a", "a.o", []string{"-c", "a.c", "-DPIC", "-Iinclude", "-o", "a.o"})
	bT := compileTarget("b", "a.o", []string{"-c", "a.c"})

	require.Equal(t, Canonicalize(cfg, a), Canonicalize(cfg, bT))
}

func TestCanonicalizeKeepsNonDiscardableDefines(t *testing.T) {
	cfg := mtconfig.Default()
	a := compileTarget("a", "a.o", []string{"-c", "a.c", "-DDEBUG"})
	bT := compileTarget("b", "a.o", []string{"-c", "a.c"})

	require.NotEqual(t, Canonicalize(cfg, a), Canonicalize(cfg, bT))
}

func TestDedupeMergesIdenticalTargets(t *testing.T) {
	cfg := mtconfig.Default()
	targets := []*tracetypes.BuildTarget{
		compileTarget("a", "a.o", []string{"-c", "a.c", "-Iinclude"}),
		compileTarget("a#2", "a.o", []string{"-c", "a.c"}),
	}

	merged := Dedupe(cfg, targets, 10)
	require.Len(t, merged, 1)
	require.Equal(t, "a", merged[0].QualifiedName)
}

func TestDedupeFixpointUpdatesReferences(t *testing.T) {
	cfg := mtconfig.Default()
	obj1 := compileTarget("obj1", "a.o", []string{"-c", "a.c"})
	obj2 := compileTarget("obj1#2", "a.o", []string{"-c", "a.c", "-Iinclude"})
	link := &tracetypes.BuildTarget{
		Kind: tracetypes.CLink, QualifiedName: "app", Output: "app", Tool: "ld",
		Inputs: []tracetypes.Reference{{Kind: tracetypes.BuildTargetRef, Value: "obj1#2"}},
	}

	merged := Dedupe(cfg, []*tracetypes.BuildTarget{obj1, obj2, link}, 10)
	require.Len(t, merged, 2)
	var linkOut *tracetypes.BuildTarget
	for _, m := range merged {
		if m.QualifiedName == "app" {
			linkOut = m
		}
	}
	require.NotNil(t, linkOut)
	require.Equal(t, "obj1", linkOut.Inputs[0].Value)
}
