//go:build linux

package tracer

import (
	"bytes"
	"syscall"

	"github.com/pkg/errors"
)

// TraceeMemory reads a traced process's address space through
// PTRACE_PEEKDATA, word at a time, the only portable way to reach into a
// tracee without CAP_SYS_PTRACE-gated process_vm_readv plumbing.
type TraceeMemory struct {
	pid int
}

// NewTraceeMemory returns an accessor for pid's address space.
func NewTraceeMemory(pid int) *TraceeMemory {
	return &TraceeMemory{pid: pid}
}

// ReadCString reads a NUL-terminated string starting at addr, e.g. the
// pathname argument to open/openat/execve. maxLen bounds runaway reads
// against a corrupted or hostile tracee.
func (m *TraceeMemory) ReadCString(addr uintptr, maxLen int) (string, error) {
	var buf bytes.Buffer
	word := make([]byte, 8)
	for buf.Len() < maxLen {
		n, err := syscall.PtracePeekData(m.pid, addr, word)
		if err != nil {
			return "", errors.Wrapf(err, "PEEKDATA at %#x", addr)
		}
		if n == 0 {
			break
		}
		if i := bytes.IndexByte(word[:n], 0); i >= 0 {
			buf.Write(word[:i])
			return buf.String(), nil
		}
		buf.Write(word[:n])
		addr += uintptr(n)
	}
	return buf.String(), nil
}

// ReadStringArray reads a NULL-terminated array of NUL-terminated
// strings (argv/envp shape) starting at addr.
func (m *TraceeMemory) ReadStringArray(addr uintptr, maxEntries int) ([]string, error) {
	var out []string
	ptr := make([]byte, 8)
	for i := 0; i < maxEntries; i++ {
		n, err := syscall.PtracePeekData(m.pid, addr+uintptr(i*8), ptr)
		if err != nil || n < 8 {
			return out, errors.Wrapf(err, "PEEKDATA array entry %d at %#x", i, addr)
		}
		entryAddr := uintptr(leUint64(ptr))
		if entryAddr == 0 {
			break
		}
		s, err := m.ReadCString(entryAddr, 4096)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
