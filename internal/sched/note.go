package sched

// note is the one-shot wait/wake primitive spec §1 lists as an external
// collaborator ("a one-shot wait/wake event"). The real runtime's note is a
// futex/semaphore pair tuned to avoid syscalls in the common case;
// alphadose-ZenQ's ThreadParker achieves something similar by parking a
// real goroutine via //go:linkname into runtime.gopark/goready. Doing that
// here would be reaching past the boundary that's appropriate for code
// built on top of goroutines rather than inside the runtime itself — see
// DESIGN.md's per-component ledger — so this is a plain buffered channel,
// which is exactly the "thread-local semaphore with zero cost" spec §9's
// design notes call out as the single-threaded equivalent, generalized to
// be safe for the multi-worker case too.
type note struct {
	ch chan struct{}
}

func newNote() *note {
	return &note{ch: make(chan struct{}, 1)}
}

// clear drains any pending wakeup, so a stale signal from a previous
// sleep/wakeup cycle cannot be mistaken for a fresh one.
func (n *note) clear() {
	select {
	case <-n.ch:
	default:
	}
}

// sleep blocks until wakeup is called (at least once since the last clear).
func (n *note) sleep() {
	<-n.ch
}

// wakeup signals the note. Safe to call even if nothing is sleeping yet —
// the next sleep returns immediately, matching the one-shot semantics the
// scheduler relies on (a wakeup racing ahead of sleep must not be lost).
func (n *note) wakeup() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}
