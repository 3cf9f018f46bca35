//go:build linux && amd64

package tracer

// x86-64 syscall numbers for the handler set §4.1 names: open, openat,
// close, execve, unlink, unlinkat, rename, renameat, renameat2, dup,
// dup2, dup3, fcntl (F_DUPFD), write.
const (
	sysRead      = 0
	sysWrite     = 1
	sysClose     = 3
	sysDup       = 32
	sysDup2      = 33
	sysFcntl     = 72
	sysRename    = 82
	sysUnlink    = 87
	sysExecve    = 59
	sysOpen      = 2
	sysOpenat    = 257
	sysUnlinkat  = 263
	sysRenameat  = 264
	sysDup3      = 292
	sysRenameat2 = 316
)

var syscallNames = map[uint64]string{
	sysRead:      "read",
	sysWrite:     "write",
	sysClose:     "close",
	sysDup:       "dup",
	sysDup2:      "dup2",
	sysFcntl:     "fcntl",
	sysRename:    "rename",
	sysUnlink:    "unlink",
	sysExecve:    "execve",
	sysOpen:      "open",
	sysOpenat:    "openat",
	sysUnlinkat:  "unlinkat",
	sysRenameat:  "renameat",
	sysDup3:      "dup3",
	sysRenameat2: "renameat2",
}

// syscallName returns the handler-relevant name for num, if any. Every
// other syscall number is simply not in this handler set and is ignored
// by handleSyscallStop.
func syscallName(num uint64) (string, bool) {
	name, ok := syscallNames[num]
	return name, ok
}
