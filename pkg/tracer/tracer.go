//go:build linux

package tracer

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"

	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sys/unix"

	"github.com/google/maketrace/internal/mtlog"
	"github.com/google/maketrace/pkg/fshash"
	"github.com/google/maketrace/pkg/tracetypes"
)

// ptOptions mixes syscall's option bits with unix.PTRACE_O_EXITKILL, which
// the syscall package never got around to exporting: if maketrace itself
// dies, the tracees shouldn't be left running unsupervised.
const ptOptions = syscall.PTRACE_O_TRACECLONE |
	syscall.PTRACE_O_TRACEFORK |
	syscall.PTRACE_O_TRACEVFORK |
	syscall.PTRACE_O_TRACEEXEC |
	syscall.PTRACE_O_TRACESYSGOOD |
	syscall.PTRACE_O_TRACEEXIT |
	unix.PTRACE_O_EXITKILL

// metrics mirrors the way crux/pkg/crux/fire.go exposes crux's own
// Prometheus counters: a handful of process-wide counters registered
// once and incremented throughout a trace session.
var metrics = struct {
	processes  prometheus.Counter
	syscalls   prometheus.Counter
	filesHashed prometheus.Counter
}{
	processes: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maketrace_tracer_processes_total",
		Help: "Number of processes observed by the tracer.",
	}),
	syscalls: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maketrace_tracer_syscalls_total",
		Help: "Number of syscalls handled by the tracer.",
	}),
	filesHashed: prometheus.NewCounter(prometheus.CounterOpts{
		Name: "maketrace_tracer_files_hashed_total",
		Help: "Number of files hashed at process exit.",
	}),
}

func init() {
	prometheus.MustRegister(metrics.processes, metrics.syscalls, metrics.filesHashed)
}

// PidState tracks one live tracee between ptrace stops: whether it is
// currently waiting on syscall-entry or syscall-exit (ptrace alternates
// the two), its maketrace-assigned process id, and its open file
// descriptor table.
type PidState struct {
	ProcID       int64
	EnteringCall bool
	Files        map[int]*FileState
	// closed holds FileStates whose fd has already gone away (a normal
	// close, or a rename observed on a path this process never opened)
	// but that still need to be folded into a "close" event at process
	// exit, per §4.1's process-exit finalization fold.
	closed []*FileState
	// pendingSyscall/pendingPath hold the syscall name and resolved path
	// captured at entry, read back at the matching exit stop once the
	// return value (e.g. a new fd) is available.
	pendingSyscall      string
	pendingPath         string
	pendingOpenOrdering int64
}

// FileState tracks one open file descriptor's lifecycle across dup/
// dup2/dup3/fcntl(F_DUPFD), which all make one underlying file visible
// under multiple descriptors; ref-counting here is what lets the Tracer
// tell "last close, finalize the access record" apart from "one of
// several aliases closed".
type FileState struct {
	Path         string
	RefCount     int
	HashBefore   string
	BytesWritten bool
	RenamedFrom  string
	OpenOrdering int64
}

// Tracer drives ptrace over a build command's whole process tree,
// emitting Events to its Writer for forks, execs, the open/unlink/rename
// syscalls it handles, each file's final "close" classification, and
// process exit.
type Tracer struct {
	writer *tracetypes.Writer
	runTag string

	mu    sync.Mutex
	pids  map[int]*PidState
	nextProcID int64
}

// New returns a Tracer that emits events to w.
func New(w *tracetypes.Writer) *Tracer {
	return &Tracer{
		writer: w,
		runTag: uuid.New(),
		pids:   make(map[int]*PidState),
	}
}

// Run starts argv[0] with argv as its arguments (and the given
// environment and working directory), traces its entire process tree to
// completion, and returns the root's exit status.
func (t *Tracer) Run(argv []string, env []string, dir string) (int, error) {
	log := mtlog.L().WithField("tracer", t.runTag)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Args = argv
	cmd.Env = env
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true}

	if err := cmd.Start(); err != nil {
		return -1, errors.Wrap(err, "starting traced command")
	}
	rootPid := cmd.Process.Pid

	var ws syscall.WaitStatus
	if _, err := syscall.Wait4(rootPid, &ws, 0, nil); err != nil {
		return -1, errors.Wrap(err, "waiting for initial tracee stop")
	}
	if err := syscall.PtraceSetOptions(rootPid, ptOptions); err != nil {
		return -1, errors.Wrap(err, "setting ptrace options")
	}
	t.register(rootPid, 0)

	if err := syscall.PtraceSyscall(rootPid, 0); err != nil {
		return -1, errors.Wrap(err, "starting syscall tracing")
	}

	exitCode := -1
	for len(t.pids) > 0 {
		var status syscall.WaitStatus
		wpid, err := syscall.Wait4(-1, &status, syscall.WALL, nil)
		if err != nil {
			if err == syscall.ECHILD {
				break
			}
			log.Warnf("wait4 error: %v", err)
			continue
		}
		code, handled := t.handleStop(wpid, status, rootPid)
		if wpid == rootPid && handled {
			exitCode = code
		}
	}
	return exitCode, nil
}

func (t *Tracer) register(pid int, parentProcID int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextProcID++
	id := t.nextProcID
	t.pids[pid] = &PidState{ProcID: id, Files: make(map[int]*FileState)}
	metrics.processes.Inc()
	_ = t.writer.Write(tracetypes.Event{ProcID: id, ParentID: parentProcID, Syscall: "fork"})
	return id
}

// handleStop processes one wait4-reported stop and decides whether to
// keep the tracee running. Returns (exitCode, true) if pid fully exited.
func (t *Tracer) handleStop(pid int, status syscall.WaitStatus, rootPid int) (int, bool) {
	t.mu.Lock()
	state, known := t.pids[pid]
	t.mu.Unlock()

	if status.Exited() {
		t.finalizeExit(pid, state, status.ExitStatus())
		t.mu.Lock()
		delete(t.pids, pid)
		t.mu.Unlock()
		return status.ExitStatus(), true
	}
	if status.Signaled() {
		t.mu.Lock()
		delete(t.pids, pid)
		t.mu.Unlock()
		return -1, pid == rootPid
	}
	if !status.Stopped() {
		return -1, false
	}

	const traceSysGoodBit = 0x80
	sig := int(status.StopSignal())
	switch {
	case sig == int(syscall.SIGTRAP)|traceSysGoodBit:
		if known {
			t.handleSyscallStop(pid, state)
		}
	case status.TrapCause() == syscall.PTRACE_EVENT_CLONE,
		status.TrapCause() == syscall.PTRACE_EVENT_FORK,
		status.TrapCause() == syscall.PTRACE_EVENT_VFORK:
		if newPid, err := syscall.PtraceGetEventMsg(pid); err == nil {
			parentID := int64(0)
			if known {
				parentID = state.ProcID
			}
			t.register(int(newPid), parentID)
		}
	case status.TrapCause() == syscall.PTRACE_EVENT_EXEC:
		if known {
			t.handleExec(pid, state)
		}
	}

	_ = syscall.PtraceSyscall(pid, 0)
	return -1, false
}

func (t *Tracer) handleExec(pid int, state *PidState) {
	regs, err := GetRegisters(pid)
	if err != nil {
		return
	}
	mem := NewTraceeMemory(pid)
	argv, _ := mem.ReadStringArray(uintptr(regs.Arg(1)), 256)
	cwd, _ := os.Readlink("/proc/" + strconv.Itoa(pid) + "/cwd")
	_ = t.writer.Write(tracetypes.Event{ProcID: state.ProcID, Syscall: "execve", Argv: argv, Cwd: cwd})
}

// handleSyscallStop distinguishes entry from exit for the handful of
// syscalls §4.1 cares about (open/openat/close/unlink/unlinkat/rename/
// dup/dup2/dup3/fcntl F_DUPFD/write), toggling PidState.EnteringCall
// each time since ptrace delivers entry and exit as separate stops with
// no other signal between them.
func (t *Tracer) handleSyscallStop(pid int, state *PidState) {
	metrics.syscalls.Inc()
	state.EnteringCall = !state.EnteringCall
	regs, err := GetRegisters(pid)
	if err != nil {
		return
	}
	if state.EnteringCall {
		t.handleSyscallEntry(pid, state, regs)
		return
	}
	t.handleSyscallExit(state, regs)
}

func (t *Tracer) handleSyscallEntry(pid int, state *PidState, regs *Registers) {
	name, ok := syscallName(regs.SyscallNumber())
	if !ok {
		return
	}
	mem := NewTraceeMemory(pid)
	state.pendingSyscall = name
	state.pendingPath = ""

	switch name {
	case "open", "openat":
		pathArg := uintptr(regs.Arg(0))
		if name == "openat" {
			pathArg = uintptr(regs.Arg(1))
		}
		path, _ := mem.ReadCString(pathArg, 4096)
		state.pendingPath = path
		_ = t.writer.Write(tracetypes.Event{ProcID: state.ProcID, Syscall: "open", Path: path})
		state.pendingOpenOrdering = t.writer.LastSeq()
	case "unlink", "unlinkat":
		pathArg := uintptr(regs.Arg(0))
		if name == "unlinkat" {
			pathArg = uintptr(regs.Arg(1))
		}
		path, _ := mem.ReadCString(pathArg, 4096)
		_ = t.writer.Write(tracetypes.Event{ProcID: state.ProcID, Syscall: "unlink", Path: path})
	case "rename", "renameat", "renameat2":
		oldArg, newArg := uintptr(regs.Arg(0)), uintptr(regs.Arg(1))
		if name != "rename" {
			oldArg, newArg = uintptr(regs.Arg(1)), uintptr(regs.Arg(3))
		}
		oldPath, _ := mem.ReadCString(oldArg, 4096)
		newPath, _ := mem.ReadCString(newArg, 4096)
		_ = t.writer.Write(tracetypes.Event{ProcID: state.ProcID, Syscall: "rename", Path: oldPath, NewPath: newPath})
		t.handleRename(state, oldPath, newPath)
	case "write":
		fd := int(regs.Arg(0))
		if fs, ok := state.Files[fd]; ok {
			fs.BytesWritten = true
		}
	case "close":
		fd := int(regs.Arg(0))
		if fs, ok := state.Files[fd]; ok {
			if fs.RefCount > 1 {
				fs.RefCount--
			} else {
				state.closed = append(state.closed, fs)
				delete(state.Files, fd)
			}
		}
	case "dup", "dup2", "dup3":
		state.pendingPath = fmt.Sprintf("dup:%d", int(regs.Arg(0)))
	case "fcntl":
		if regs.Arg(1) == fcntlFDupFD {
			state.pendingPath = fmt.Sprintf("dup:%d", int(regs.Arg(0)))
		}
	}
}

// handleRename updates the FileState tracking oldPath, if this process
// has one open, to reflect its new name; otherwise it synthesizes a
// closed FileState so the rename is still folded into a FileRecord at
// process exit even though this process never opened the file itself.
func (t *Tracer) handleRename(state *PidState, oldPath, newPath string) {
	if fs := findOpenFileByPath(state, oldPath); fs != nil {
		fs.RenamedFrom = oldPath
		fs.Path = newPath
		return
	}
	before, _ := fshash.HashFile(oldPath)
	state.closed = append(state.closed, &FileState{
		Path:         newPath,
		RenamedFrom:  oldPath,
		HashBefore:   before,
		OpenOrdering: t.writer.LastSeq(),
	})
}

func findOpenFileByPath(state *PidState, path string) *FileState {
	for _, fs := range state.Files {
		if fs.Path == path {
			return fs
		}
	}
	return nil
}

// handleSyscallExit completes the bookkeeping that needs the syscall's
// return value: a new fd from open/openat/dup-family calls is recorded
// in the process's file table.
func (t *Tracer) handleSyscallExit(state *PidState, regs *Registers) {
	ret := regs.ReturnValue()
	switch state.pendingSyscall {
	case "open", "openat":
		if ret >= 0 && state.pendingPath != "" {
			before, _ := fshash.HashFile(state.pendingPath) // "" if it didn't exist yet
			state.Files[int(ret)] = &FileState{
				Path:         state.pendingPath,
				RefCount:     1,
				HashBefore:   before,
				OpenOrdering: state.pendingOpenOrdering,
			}
		}
	case "dup", "dup2", "dup3", "fcntl":
		if ret >= 0 && len(state.pendingPath) > 4 {
			oldFd := state.pendingPath[4:]
			if src, ok := state.Files[atoiSafe(oldFd)]; ok {
				src.RefCount++
				state.Files[int(ret)] = src
			}
		}
	}
	state.pendingSyscall = ""
	state.pendingPath = ""
	state.pendingOpenOrdering = 0
}

const fcntlFDupFD = 0

func atoiSafe(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

// finalizeExit applies §4.1's process-exit finalization fold: every
// still-open file descriptor is treated as closed, then every closed
// file (both those closed during the process's life and those still
// open at exit) is resolved to its final access classification by
// comparing its pre- and post-process content hash, and one "exit"
// event carries the process's real exit status.
func (t *Tracer) finalizeExit(pid int, state *PidState, exitCode int) {
	if state == nil {
		return
	}
	for fd, fs := range state.Files {
		if fs.RefCount > 1 {
			fs.RefCount--
			continue
		}
		state.closed = append(state.closed, fs)
		delete(state.Files, fd)
	}
	for _, fs := range state.closed {
		after, err := fshash.HashFile(fs.Path)
		if err != nil {
			after = "" // gone, or never hashable (device, pseudo-fs)
		}
		metrics.filesHashed.Inc()
		access := classifyAccess(fs.HashBefore, after, fs.BytesWritten)
		_ = t.writer.Write(tracetypes.Event{
			ProcID:       state.ProcID,
			Syscall:      "close",
			Path:         fs.Path,
			RenamedFrom:  fs.RenamedFrom,
			Access:       access,
			OpenOrdering: fs.OpenOrdering,
		})
	}
	_ = t.writer.Write(tracetypes.Event{ProcID: state.ProcID, Syscall: "exit", ExitCode: exitCode})
}

// classifyAccess folds one file's before/after content hash and whether
// a write syscall was ever observed on it into §3's Access enum,
// implementing §4.1's reduction table and reconciliation rules.
func classifyAccess(before, after string, written bool) tracetypes.Access {
	switch {
	case before == "" && after == "":
		// Never hashable before or after (e.g. a device, a pseudo-fs
		// entry, or a path that never existed): reconciles to READ
		// regardless of a write attempt, per "CREATED but no content
		// hashable -> READ".
		return tracetypes.Read
	case before == "" && after != "":
		return tracetypes.Created
	case before != "" && after == "":
		return tracetypes.Deleted
	case !written:
		if before != after {
			// No write syscall was ever observed, but the content still
			// changed underneath the file (e.g. another process wrote
			// it, or a truncating open): "READ but hashes differ ->
			// promote to MODIFIED".
			return tracetypes.Modified
		}
		return tracetypes.Read
	case before == after:
		return tracetypes.WrittenButUnchanged
	default:
		return tracetypes.Modified
	}
}
