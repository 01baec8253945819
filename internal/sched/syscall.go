package sched

import "github.com/gmsched/gmsched/internal/obs"

// EnterSyscall implements spec §4.7's fast path: a task about to block in a
// syscall gives up its mcpu slot so the matcher can immediately hand that
// slot to someone else, without the task's own worker ever touching the
// ready queue. It is the Task's own goroutine that calls this, synchronously
// before performing the real blocking operation.
func (t *Task) EnterSyscall() {
	s := t.sched
	t.setStatus(Syscall)
	s.obs.Metrics.Counter(obs.CounterSyscalls).Inc()
	obs.Log(obs.SignalSyscallEntered, obs.FieldGoID.Field(int(t.GoID)))

	s.lock()
	s.word.addMcpu(-1)
	slow := s.haveG(nil) || s.word.waitstop()
	if slow {
		// Slow path (spec §4.7): other work is ready, or a stop-the-world is
		// pending — let the matcher react to the freed slot immediately
		// instead of waiting for this worker's next dispatch round.
		s.matchmg(nil)
		if s.word.waitstop() && s.word.mcpu() <= s.word.mcpumax() {
			s.word.clearWaitstop()
			s.stopped.wakeup()
		}
	}
	t.worker = nil
	s.unlock()

	// Either way, tell the worker driving this task to detach: it must not
	// wait for this goroutine to come back on events, because a syscall may
	// block indefinitely. The task's own goroutine keeps running past this
	// point to perform the real blocking call — it never touches resume
	// until it next yields through gosched.
	t.events <- taskEvent{kind: evSyscallEnter}
}

// ExitSyscall implements spec §4.7's return path: try to reclaim an mcpu
// slot immediately (fast path); if none is free, behave like a cooperative
// yield and wait to be redispatched (slow path).
func (t *Task) ExitSyscall() {
	s := t.sched
	s.lock()
	if s.word.tryAddMcpu() {
		// Fast path: a slot was free, so this goroutine simply keeps running
		// as the task — it never blocked on resume, so there is no gosched
		// round-trip. But the worker that originally dispatched it already
		// detached to serve other work the moment it entered the syscall
		// (schedule's evSyscallEnter case), so nobody is left listening on
		// t.events for whatever this task does next. newWorkerForReturn
		// attaches a fresh worker for exactly that purpose before this
		// call returns control to the running task. grunning is untouched
		// here: EnterSyscall's dispatch round never decremented it
		// (schedule skips afterRun entirely for evSyscallEnter), because a
		// Syscall task still counts as live per spec §8's invariant
		// ("grunning equals the number of tasks in {Running, Syscall}");
		// resumeAfterSyscall's own afterRun call pays that credit back
		// exactly once when the task eventually does stop running.
		t.setStatus(Running)
		s.newWorkerForReturn(t)
		s.unlock()
		obs.Log(obs.SignalSyscallExited, obs.FieldGoID.Field(int(t.GoID)))
		return
	}
	// No slot free: this task is about to sit on the ready queue like any
	// other Runnable task and get picked up by some worker's normal
	// next_and_unlock dispatch, which will grunning++ it from scratch — so
	// release the implicit "still counted as live" credit it has carried
	// since EnterSyscall (which never decremented grunning for this task)
	// before handing off to gosched.
	s.grunning--
	s.unlock()
	obs.Log(obs.SignalSyscallExited,
		obs.FieldGoID.Field(int(t.GoID)),
		obs.FieldReason.Field("no mcpu slot, queued"),
	)
	s.gosched(t)
}
