package sched

import (
	"sync"
	"sync/atomic"

	"github.com/gmsched/gmsched/internal/obs"
	"github.com/gmsched/gmsched/internal/stack"
)

// Status is a Task's position in the state machine of spec §4.3.
type Status int

const (
	Idle Status = iota
	Runnable
	Running
	Syscall
	Waiting
	Moribund
	Dead
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Runnable:
		return "runnable"
	case Running:
		return "running"
	case Syscall:
		return "syscall"
	case Waiting:
		return "waiting"
	case Moribund:
		return "moribund"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// legalTransition enforces spec §4.3's diagram. It is checked by every
// call site that mutates Task.status.
func legalTransition(from, to Status) bool {
	switch from {
	case Idle:
		return to == Waiting
	case Waiting:
		return to == Runnable
	case Runnable:
		return to == Running
	case Running:
		return to == Runnable || to == Syscall || to == Moribund || to == Running
	case Syscall:
		return to == Runnable || to == Running
	case Moribund:
		return to == Dead
	case Dead:
		return to == Waiting // reuse via gfree
	default:
		return false
	}
}

// Task is one cooperative computation (G in spec terms). Its exported
// fields mirror spec §3's contract; unexported fields are the Go-shaded
// substrate described in DESIGN.md ("Design adaptations").
type Task struct {
	GoID   int64
	fn     func(*Task)
	status atomic.Int32

	stackChain *stack.Chain

	// lockedm/idlem: at most one is ever set (spec invariant).
	lockedm *Worker
	idlem   *Worker

	readyonstop atomic.Bool
	ispanic     atomic.Bool

	// defer/panic ledgers, see unwind.go. Guarded by deferMu because
	// Defer/Panic/Recover can race a concurrent GC-style walk in a real
	// runtime; here they race nothing but a task's own goroutine plus
	// introspection from tests, so a mutex is sufficient and simpler than
	// lock-free chains.
	deferMu  sync.Mutex
	deferTop *deferRecord
	panicTop *panicRecord

	// channel handoff standing in for mcall/gogo (DESIGN.md point 1).
	resume chan struct{}
	events chan taskEvent

	worker *Worker // the Worker currently running this task, if any
	sched  *Scheduler

	// listLink is the intrusive link of the ready queue (ghead/gtail). The
	// free list (gfree) is a slice and does not use it.
	listLink *Task

	obs *obs.Handle
}

type taskEventKind int

const (
	evYield taskEventKind = iota
	evSyscallEnter
	evDone
)

type taskEvent struct {
	kind taskEventKind
}

func (t *Task) loadStatus() Status { return Status(t.status.Load()) }

// setStatus performs the transition, throwing a fatal error if it violates
// spec §4.3 (e.g. a Grunning/Grunnable task re-readied, or a Gdead task
// rescheduled).
func (t *Task) setStatus(to Status) {
	from := Status(t.status.Swap(int32(to)))
	if !legalTransition(from, to) {
		throwf(t.obs, "bad g->status: goid=%d %s -> %s", t.GoID, from, to)
	}
	if t.obs != nil {
		obs.Log(obs.SignalTaskDispatched,
			obs.FieldGoID.Field(int(t.GoID)),
			obs.FieldStatus.Field(to.String()),
		)
	}
}

// IsPinned reports whether this task is locked to a specific worker.
func (t *Task) IsPinned() bool { return t.lockedm != nil }
