package sched

import "github.com/gmsched/gmsched/internal/obs"

// Worker is one OS thread (M in spec terms). In this Go rewrite each Worker
// is driven by one dedicated goroutine running the schedule loop
// (DESIGN.md point 1) rather than a raw OS thread — spawn_os_thread is an
// external collaborator spec explicitly puts out of scope, and a goroutine
// is this rewrite's idiomatic stand-in for it (see spawner.go).
type Worker struct {
	id int32

	g0 *Task // the worker's scheduler task; never returned by gget (unused
	// as a runnable slot in this rewrite, kept for field-shape fidelity
	// with spec §3; nothing assigns it).

	curg *Task // task currently executing on this worker, else nil
	nextg *Task // handoff slot (mnextg target)

	havenextg *note // one-shot wait/wake note, blocked on when idle
	waitnextg bool  // true while blocked on havenextg

	lockedg *Task // mirrors Task.lockedm
	idleg   *Task // mirrors Task.idlem

	schedlink *Worker // intrusive link in the idle-worker (mhead) list

	profilehz int32
	mallocing int32 // reentrancy guard: matchmg refuses to run while set
	gcing     int32 // reentrancy guard: matchmg refuses to run while set
	locks     int32

	stop chan struct{} // created with each worker; nothing closes or receives from it

	obs *obs.Handle
}

func (w *Worker) reentrant() bool { return w.mallocing != 0 || w.gcing != 0 }
