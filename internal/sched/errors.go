package sched

import (
	"fmt"

	"github.com/zoobzio/capitan"

	"github.com/gmsched/gmsched/internal/obs"
)

// fatalError is the payload of a panic raised for an invariant violation
// spec §7 classifies as fatal: bad status transitions, negative mcpu,
// double-idle installs, gget inconsistency, split-stack overflow, mcall on
// the scheduler stack, failed recovery, and deadlock detection. None of
// these are ever surfaced to user code as an error value — they propagate
// as a Go panic carrying this type so a caller (for example a test) can
// tell a scheduler invariant violation apart from a user task
// panic.
type fatalError struct {
	msg string
}

func (f fatalError) Error() string { return f.msg }

// throw logs the violation and panics with a fatalError, mirroring the
// runtime's throw() primitive: always fatal, never retried.
func throw(h *obs.Handle, msg string) {
	if h != nil {
		obs.LogError(obs.SignalFatal, capitan.NewStringKey("reason").Field(msg))
	}
	panic(fatalError{msg})
}

// throwf is throw with a formatted message.
func throwf(h *obs.Handle, format string, args ...any) {
	throw(h, fmt.Sprintf(format, args...))
}

// IsFatal reports whether v (typically recovered from a panic) is a
// scheduler-internal invariant violation rather than a user task panic.
func IsFatal(v any) (string, bool) {
	if fe, ok := v.(fatalError); ok {
		return fe.msg, true
	}
	return "", false
}
