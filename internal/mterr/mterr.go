// Package mterr provides the two error conventions used across maketrace:
// a stack-carrying Err for the fatal supervisor/parse error classes in
// spec §7, and Assert for invariants that must never fail.
package mterr

import (
	"fmt"

	"github.com/go-stack/stack"
)

// Err is an error with a captured call stack, for the fatal error classes
// where a caller needs both error identity and a stack to print.
type Err struct {
	msg   string
	stack stack.CallStack
	cause error
}

func callers() stack.CallStack {
	return stack.Trace().TrimRuntime()
}

// New creates an Err with a captured call stack.
func New(msg string) *Err {
	return &Err{msg: msg, stack: callers()}
}

// Errorf creates an Err with a formatted message and a captured call stack.
func Errorf(format string, args ...interface{}) *Err {
	return &Err{msg: fmt.Sprintf(format, args...), stack: callers()}
}

// Wrap attaches a message and call stack to an existing error.
func Wrap(cause error, msg string) *Err {
	if cause == nil {
		return nil
	}
	return &Err{msg: msg, stack: callers(), cause: cause}
}

func (e *Err) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.msg, e.cause.Error())
	}
	return e.msg
}

// Unwrap allows errors.Is / errors.As to see through to the cause.
func (e *Err) Unwrap() error {
	return e.cause
}

// Stack renders the captured call stack, for diagnostics.
func (e *Err) Stack() string {
	return fmt.Sprintf("%+v", e.stack)
}

// Assert panics with a stack trace if cond is false. Reserved for
// invariants that genuinely cannot fail short of a logic bug. Rewrite
// loops that reach their iteration cap do not call it: the graph and
// steprecognizer loops log a warning and return, and dedup.Dedupe
// returns its last result.
func Assert(cond bool, msg string, args ...interface{}) {
	if !cond {
		panic(Errorf(msg, args...).Error() + "\n" + fmt.Sprintf("%+v", callers()))
	}
}
