package refresolve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/google/maketrace/pkg/tracetypes"
)

func TestResolveRewritesReferenceToBuildTarget(t *testing.T) {
	obj := &tracetypes.BuildTarget{QualifiedName: "a.o", Output: "a.o"}
	link := &tracetypes.BuildTarget{
		QualifiedName: "app",
		Output:        "app",
		Inputs:        []tracetypes.Reference{{Kind: tracetypes.RelativeToBuildDir, Value: "a.o"}},
	}

	Resolve([]*tracetypes.BuildTarget{obj, link})

	require.Equal(t, tracetypes.BuildTargetRef, link.Inputs[0].Kind)
	require.Equal(t, "a.o", link.Inputs[0].Value)
}

func TestResolveSkipsSelfReference(t *testing.T) {
	t1 := &tracetypes.BuildTarget{
		QualifiedName: "a.o",
		Output:        "a.o",
		Inputs:        []tracetypes.Reference{{Kind: tracetypes.RelativeToBuildDir, Value: "a.o"}},
	}

	Resolve([]*tracetypes.BuildTarget{t1})

	require.Equal(t, tracetypes.RelativeToBuildDir, t1.Inputs[0].Kind)
}

func TestResolveKeepsFirstProducerOnCollision(t *testing.T) {
	first := &tracetypes.BuildTarget{QualifiedName: "first", Output: "out"}
	second := &tracetypes.BuildTarget{QualifiedName: "second", Output: "out"}
	link := &tracetypes.BuildTarget{
		QualifiedName: "app",
		Inputs:        []tracetypes.Reference{{Kind: tracetypes.RelativeToBuildDir, Value: "out"}},
	}

	Resolve([]*tracetypes.BuildTarget{first, second, link})

	require.Equal(t, "first", link.Inputs[0].Value)
}

func TestResolveIgnoresLibraryReferences(t *testing.T) {
	link := &tracetypes.BuildTarget{
		QualifiedName: "app",
		Inputs:        []tracetypes.Reference{{Kind: tracetypes.Library, Value: "m"}},
	}
	Resolve([]*tracetypes.BuildTarget{link})
	require.Equal(t, tracetypes.Library, link.Inputs[0].Kind)
}
