package sched

import "context"

// noctx is the background context used for observability calls that have
// no request-scoped context of their own (scheduler-internal bookkeeping,
// not user task code).
func noctx() context.Context { return context.Background() }

// The real runtime's mcall/gogo/gogocall/gosave/jmpdefer/lessstack and
// getcallerpc are assembly intrinsics that switch between a task's stack
// and its worker's g0 scheduling stack. Spec §9 calls these out as a small,
// swappable "context-switch module". This rewrite's substrate for that
// module is a pair of channels on every Task (see task.go): resume, which a
// worker's schedule loop sends on to hand control to a task's goroutine
// (the gogo analog — "resume a saved context"), and events, which a task
// sends on to hand control back (the mcall analog — "switch to the
// scheduler task"). Unlike real mcall/gogo this never touches a stack
// pointer: the task's goroutine simply blocks on a channel receive, which
// is the only suspension primitive available without assembly.
//
// taskEvent's three kinds map onto spec's three ways a dispatch round ends
// from the worker's point of view:
//
//   - evYield:        cooperative Gosched() — requeue and dispatch another.
//   - evSyscallEnter: the worker detaches from this task (it keeps running
//     independently through the blocking call) and goes back to
//     scheduling other work.
//   - evDone:         the task's function returned (or panicked fatally);
//     run the Moribund cleanup and dispatch another.
//
// exit_syscall's slow path (spec §4.7) reuses evYield's shape: it has no
// worker still listening on its events channel (the one that dispatched it
// already moved on after evSyscallEnter), so instead of sending an event it
// re-queues itself directly via gosched and blocks on resume for whichever
// worker's next_and_unlock picks it up next — see syscall.go.
//
// exit_syscall's fast path is the one case where a task keeps running
// without ever blocking on resume: nobody is listening on its events
// channel either, since the worker that dispatched it detached on
// evSyscallEnter and went on to other work. newWorkerForReturn (matcher.go)
// attaches a fresh worker whose sole first act is to receive that task's
// next event — see loop.go's resumeAfterSyscall — before it too falls into
// the ordinary scheduling loop.

// dispatch hands control to t on the calling worker's behalf: send resume,
// then wait for the task's next event. Must be called with the scheduler
// lock NOT held (the task may itself need the lock, e.g. to yield).
func (s *Scheduler) dispatch(t *Task) taskEvent {
	t.resume <- struct{}{}
	return <-t.events
}

// gosched implements spec §4.5/§4.6's cooperative suspension for
// exit_syscall's slow path (Yield does the same re-queue inline, since it
// must also report evYield — see public.go): re-queue t as Runnable, ask the
// matcher to keep other workers busy, then block until some worker's
// next_and_unlock dispatches it again.
func (s *Scheduler) gosched(t *Task) {
	s.lock()
	t.setStatus(Runnable)
	s.gput(t)
	s.matchmg(nil)
	s.unlock()
	<-t.resume
}
