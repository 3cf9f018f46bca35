package builder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/google/maketrace/pkg/tracetypes"
)

func TestApplyExecCreatesProcessEdge(t *testing.T) {
	b := New(nil)
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "execve", Argv: []string{"make"}})
	b.Apply(tracetypes.Event{ProcID: 2, ParentID: 1, Syscall: "execve", Argv: []string{"gcc", "-c", "a.c", "-o", "a.o"}})

	g := b.Graph()
	require.True(t, g.Has("proc/1"))
	require.True(t, g.Has("proc/2"))
	require.Contains(t, g.Outgoing("proc/1"), "proc/2")
}

func TestApplyOpenCreatesSourceFileNode(t *testing.T) {
	b := New(nil)
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "execve", Argv: []string{"gcc", "-c", "a.c"}})
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "open", Path: "/proj/a.c"})

	g := b.Graph()
	require.True(t, g.Has("source//proj/a.c"))
	require.Contains(t, g.Outgoing("source//proj/a.c"), "proc/1")
}

func TestApplyCloseMarksGeneratorOnWrite(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "a.o")
	require.NoError(t, os.WriteFile(out, []byte("obj"), 0644))

	b := New(nil)
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "execve", Argv: []string{"gcc", "-c", "a.c", "-o", out}})
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "close", Path: out, Access: tracetypes.Created})
	b.Apply(tracetypes.Event{ProcID: 2, ParentID: 1, Syscall: "execve", Argv: []string{"ld", out}})
	b.Apply(tracetypes.Event{ProcID: 2, Syscall: "open", Path: out})

	g := b.Graph()
	require.False(t, g.Has("source/"+out))
	hashedID := "gen/9b5c0b859faba061dd60fd8070fce74fcee29d0b:" + out
	require.True(t, g.Has(hashedID))
	require.Contains(t, g.Outgoing("proc/1"), hashedID)
	require.Contains(t, g.Outgoing(hashedID), "proc/2")
}

func TestApplyCloseReadOnlyDoesNotMarkGenerator(t *testing.T) {
	b := New(nil)
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "execve", Argv: []string{"gcc", "-c", "a.c"}})
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "open", Path: "/proj/a.c"})
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "close", Path: "/proj/a.c", Access: tracetypes.Read})

	g := b.Graph()
	require.True(t, g.Has("source//proj/a.c"))
}

func TestMarkGeneratedThenReadLinksGenerator(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "a.o")
	require.NoError(t, os.WriteFile(out, []byte("obj"), 0644))

	b := New(nil)
	b.Apply(tracetypes.Event{ProcID: 1, Syscall: "execve", Argv: []string{"gcc", "-c", "a.c", "-o", out}})
	b.MarkGenerated(1, out)
	b.Apply(tracetypes.Event{ProcID: 2, ParentID: 1, Syscall: "execve", Argv: []string{"ld", out}})
	b.Apply(tracetypes.Event{ProcID: 2, Syscall: "open", Path: out})

	g := b.Graph()
	hashedID := "gen/9b5c0b859faba061dd60fd8070fce74fcee29d0b:" + out
	require.Contains(t, g.Outgoing("proc/1"), hashedID)
	// The reader must join the same hashed node the generator produced,
	// not a fresh hash-less duplicate of it.
	require.True(t, g.Has(hashedID))
	require.False(t, g.Has("gen/:"+out))
	require.Contains(t, g.Outgoing(hashedID), "proc/2")
}
