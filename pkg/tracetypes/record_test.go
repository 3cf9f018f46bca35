package tracetypes

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.Write(Event{ProcID: 1, Syscall: "execve", Argv: []string{"gcc", "-c", "a.c"}}))
	require.NoError(t, w.Write(Event{ProcID: 1, Syscall: "open", Path: "/tmp/a.o"}))
	require.NoError(t, w.Flush())

	r := NewReader(&buf)
	events, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, int64(1), events[0].Seq)
	require.Equal(t, "execve", events[0].Syscall)
	require.Equal(t, int64(2), events[1].Seq)
	require.Equal(t, "/tmp/a.o", events[1].Path)
}

func TestNodeIdentity(t *testing.T) {
	n := &TraceNode{Kind: SourceFileNode, Path: "/proj/a.c"}
	require.Equal(t, "source//proj/a.c", n.ID())

	g := &TraceNode{Kind: GeneratedFileNode, Path: "a.o", Hash: "deadbeef"}
	require.Equal(t, "gen/deadbeef:a.o", g.ID())

	p := &TraceNode{Kind: ProcessNode, ProcessID: 7}
	require.Equal(t, "proc/7", p.ID())
}

func TestAccessString(t *testing.T) {
	require.Equal(t, "CREATED", Created.String())
	require.Equal(t, "WRITTEN_BUT_UNCHANGED", WrittenButUnchanged.String())
}
