package sched

import (
	"fmt"
	"strings"

	"github.com/gmsched/gmsched/internal/obs"
)

// deferRecord is spec §3's D: a deferred action on a task's LIFO chain.
// siz/pc/argp from the original contract collapse to label, an
// introspection-only identity string, because this rewrite rides on Go's
// own defer/call-frame mechanics rather than raw argument blobs — see
// DESIGN.md, "Design adaptations", point 2.
type deferRecord struct {
	label string
	link  *deferRecord
}

// panicRecord is spec §3's P: one in-flight panic. stackBase captures the
// segment in effect when the panic started, as spec requires, using
// internal/stack's bookkeeping rather than a real SP.
type panicRecord struct {
	arg       any
	link      *panicRecord
	stackBase uintptr
	recovered bool
}

// Defer registers fn as a deferred action and returns a thunk the caller
// must invoke with Go's own defer statement immediately:
//
//	done := t.Defer("close-file", func() { f.Close() })
//	defer done()
//
// This is the adapted equivalent of spec §4.10's defer(siz, fn, pc, argp):
// the LIFO push happens here; the pop-and-call happens when the returned
// thunk actually runs, which Go's real defer already schedules LIFO with
// respect to other deferred calls in the same function — so the two chains
// (ours for introspection, Go's real one for control flow) stay in lockstep
// as long as callers pair Defer with an immediate `defer done()`.
func (t *Task) Defer(label string, fn func()) func() {
	t.deferMu.Lock()
	d := &deferRecord{label: label, link: t.deferTop}
	t.deferTop = d
	t.deferMu.Unlock()

	return func() {
		t.deferMu.Lock()
		if t.deferTop != d {
			t.deferMu.Unlock()
			throwf(t.obs, "defer_return: frame mismatch for goid=%d label=%q", t.GoID, label)
		}
		t.deferTop = d.link
		t.deferMu.Unlock()
		fn()
	}
}

// Panic pushes a new panic record (spec §4.10's panic(value)) and invokes
// Go's real panic, which will run the deferred thunks installed via Defer
// in LIFO order as the goroutine unwinds — exactly the "loop, popping Ds
// and invoking each" spec describes, performed by the host runtime instead
// of by hand.
func (t *Task) Panic(v any) {
	t.deferMu.Lock()
	p := &panicRecord{arg: v, link: t.panicTop}
	if t.stackChain != nil {
		p.stackBase = t.stackChain.Top().Base()
	}
	t.panicTop = p
	t.deferMu.Unlock()

	if t.obs != nil {
		t.obs.Metrics.Counter(obs.CounterPanics).Inc()
	}
	panic(v)
}

// Recover is spec §4.10's recover(argp). The built-in recover() only
// returns non-nil when called directly by a deferred function — a call
// to it from inside a helper method one frame further down always sees
// nil, even during an active panic. So unlike Defer, Recover cannot call
// recover() on the caller's behalf; the caller must call the builtin
// itself, directly in its own deferred function, and hand the result
// here to update the bookkeeping ledger:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        t.Recover(r)
//	    }
//	}()
//
// This is what enforces invariant 2/3 of spec's recover contract ("argp is
// the topmost frame of a deferred call") — by construction, since Go's own
// recover() already refused to fire otherwise. Recover marks the top panic
// record handled (if one is in flight and not already recovered) and
// returns v unchanged, so callers can write `t.Recover(recover())` inline.
func (t *Task) Recover(v any) any {
	if v == nil {
		return nil
	}
	t.deferMu.Lock()
	p := t.panicTop
	if p == nil || p.recovered {
		t.deferMu.Unlock()
		return v
	}
	p.recovered = true
	if t.panicTop == p {
		t.panicTop = p.link
	}
	t.deferMu.Unlock()
	return v
}

// handleUnrecovered is called from the task's run loop when Go's panic
// machinery reaches the top of the goroutine without anyone recovering —
// spec's "If the defer chain empties without recovery, print the panic
// chain (innermost first, indented) and abort."
func (t *Task) handleUnrecovered(r any) {
	t.deferMu.Lock()
	if t.panicTop == nil || t.panicTop.recovered {
		// Go's own panic(r) call site is what's unrecovered; synthesize a
		// record so the chain print below has something to walk even if
		// the panic didn't originate from t.Panic (e.g. a stray builtin
		// panic() inside user code).
		t.panicTop = &panicRecord{arg: r, link: t.panicTop}
	}
	chain := t.panicTop
	t.deferMu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "panic: goroutine %d:\n", t.GoID)
	indent := ""
	for p := chain; p != nil; p = p.link {
		fmt.Fprintf(&b, "%spanic: %v\n", indent, p.arg)
		indent += "\t"
	}
	if t.obs != nil {
		t.obs.Panics.Emit(noctx(), obs.EventPanic, obs.PanicEvent{GoID: t.GoID, Value: r}) //nolint:errcheck
	}
	throw(t.obs, b.String())
}
