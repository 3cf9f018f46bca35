//go:build linux && amd64

// Package tracer is the Tracer component of §4.1: a ptrace-based
// supervisor that follows a build command's whole process tree and
// emits file-access events.
//
// The low-level PTRACE_SYSCALL/wait4/PTRACE_GETEVENTMSG loop and the
// PTRACE_O_* option set follow the docker-slim ptrace tracer's approach;
// the control-loop shape around it follows
// crux/pkg/begat/lib/execute.go's Chore.execute()/step().
package tracer

import "syscall"

// Registers wraps the x86-64 user_regs_struct layout syscall.PtraceRegs
// exposes, naming the fields §4.1 cares about: the syscall number and
// its six argument registers, plus the return value register read back
// on syscall-exit.
type Registers struct {
	raw syscall.PtraceRegs
}

// GetRegisters snapshots pid's current register file.
func GetRegisters(pid int) (*Registers, error) {
	var regs syscall.PtraceRegs
	if err := syscall.PtraceGetRegs(pid, &regs); err != nil {
		return nil, err
	}
	return &Registers{raw: regs}, nil
}

// Set writes r back as pid's register file. Nothing in the Tracer calls
// it: syscall arguments are only read, never rewritten (redirect-root
// sandboxing is out of scope, per §9 Open Question 1).
func (r *Registers) Set(pid int) error {
	return syscall.PtraceSetRegs(pid, &r.raw)
}

// SyscallNumber returns orig_rax, the syscall number for the current
// stop.
func (r *Registers) SyscallNumber() uint64 { return r.raw.Orig_rax }

// ReturnValue returns rax, the syscall's return value once the tracee
// has been allowed to run to syscall-exit.
func (r *Registers) ReturnValue() int64 { return int64(r.raw.Rax) }

// Arg returns the n'th (0-indexed) syscall argument register, following
// the x86-64 Linux syscall argument order: rdi, rsi, rdx, r10, r8, r9.
func (r *Registers) Arg(n int) uint64 {
	switch n {
	case 0:
		return r.raw.Rdi
	case 1:
		return r.raw.Rsi
	case 2:
		return r.raw.Rdx
	case 3:
		return r.raw.R10
	case 4:
		return r.raw.R8
	case 5:
		return r.raw.R9
	default:
		return 0
	}
}
