package sched

import (
	"context"

	"github.com/gmsched/gmsched/internal/obs"
	"github.com/gmsched/gmsched/internal/stack"
)

// Spawn implements spec §6's spawn(fn, args, ret_size, caller_pc): create a
// Task, give it an initial stack segment sized for argSize bytes of
// arguments, and enqueue it runnable. fn receives the Task so it can call
// Yield/ExitCurrent/EnterSyscall/Defer/Panic/Recover on itself.
func (s *Scheduler) Spawn(fn func(*Task), argSize int) (*Task, error) {
	chain, err := stack.NewChain(argSize)
	if err != nil {
		return nil, err
	}

	s.lock()
	t := s.gfget()
	if t == nil {
		t = &Task{obs: s.obs}
	}
	t.GoID = s.nextGoID()
	t.fn = fn
	t.stackChain = chain
	t.lockedm = nil
	t.idlem = nil
	t.deferTop = nil
	t.panicTop = nil
	t.sched = s
	t.resume = make(chan struct{})
	t.events = make(chan taskEvent)
	t.status.Store(int32(Idle))
	t.setStatus(Waiting)
	t.setStatus(Runnable)

	s.gcount++
	s.allTasks = append(s.allTasks, t)
	s.gput(t)
	s.obs.Metrics.Counter(obs.CounterSpawned).Inc()
	s.obs.Metrics.Gauge(obs.GaugeGCount).Set(float64(s.gcount))
	s.matchmg(nil)
	s.unlock()

	s.spawner.Spawn(func() { s.runLoop(t) })

	return t, nil
}

// runLoop is the task's driver goroutine: block for a resume signal, run the
// task body once (recovering any unrecovered panic into the spec's panic
// chain), then report Moribund and return — the task has no further
// resume signals coming since schedule() reclaims it in afterRun.
func (s *Scheduler) runLoop(t *Task) {
	<-t.resume
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			if _, ok := r.(exitCurrentSentinel); ok {
				return
			}
			t.handleUnrecovered(r)
		}()
		t.fn(t)
	}()
	t.setStatus(Moribund)
	t.events <- taskEvent{kind: evDone}
}

// Yield implements spec §6's yield(): fatal if called on the worker's own
// scheduler task (g0). Yielding while holding a lock is not detected.
//
// Unlike exit_syscall's slow path (which reuses gosched directly — see
// context.go), a worker is actively blocked in dispatch's `<-t.events`
// waiting to hear back about this exact task, so Yield must report evYield
// before it goes quiet, or that worker would park forever believing this
// task is still running.
func (t *Task) Yield() {
	if t.worker != nil && t.worker.g0 == t {
		throwf(t.obs, "yield: called on the scheduler task")
	}
	s := t.sched
	s.lock()
	t.setStatus(Runnable)
	s.gput(t)
	s.matchmg(nil)
	s.unlock()
	t.events <- taskEvent{kind: evYield}
	<-t.resume
}

// ExitCurrent implements spec §6's exit_current(): it panics with
// exitCurrentSentinel, so Go runs the task's deferred calls (including
// thunks from Defer) as the goroutine unwinds; runLoop recovers the
// sentinel and marks the task Moribund. Tasks call this explicitly when
// they want to terminate early from nested code rather than by returning.
func (t *Task) ExitCurrent() {
	panic(exitCurrentSentinel{})
}

// exitCurrentSentinel is recovered by runLoop's outer defer without being
// treated as an unrecovered user panic.
type exitCurrentSentinel struct{}

// SetParallelism implements spec §6's set_parallelism(n) -> old: clamp n,
// update mcpumax, and wake the matcher in case the new ceiling freed up
// room for queued tasks.
func (s *Scheduler) SetParallelism(n int32) int32 {
	if n < 1 {
		n = 1
	}
	if n > s.cfg.MaxGomaxprocs {
		n = s.cfg.MaxGomaxprocs
	}
	s.lock()
	old := s.cfg.Gomaxprocs
	s.cfg.Gomaxprocs = n
	s.word.casMcpumax(n)
	s.obs.Metrics.Gauge(obs.GaugeMCPUMax).Set(float64(n))
	s.matchmg(nil)
	s.unlock()
	return old
}

// Parallelism implements spec §6's parallelism(): the current gomaxprocs.
func (s *Scheduler) Parallelism() int32 {
	s.lock()
	defer s.unlock()
	return s.cfg.Gomaxprocs
}

// TaskCount implements spec §6's task_count(): gcount.
func (s *Scheduler) TaskCount() int32 {
	s.lock()
	defer s.unlock()
	return s.gcount
}

// WorkerCount implements spec §6's worker_count(): mcount.
func (s *Scheduler) WorkerCount() int32 {
	s.lock()
	defer s.unlock()
	return s.mcount
}

// Wait blocks until gcount has transitioned to 0 (spec §6's exit-code
// contract). The scheduler itself never calls os.Exit; ending the process
// is left to the caller.
func (s *Scheduler) Wait() { <-s.exitCh }

// PinToThread implements spec §6's pin_to_thread(): lock the calling task
// to whichever worker is currently running it. Fatal if called before the
// scheduler has left its startup phase.
func (t *Task) PinToThread() {
	if t.sched.predawn {
		throwf(t.obs, "pin_to_thread: called before scheduler init completed")
	}
	w := t.worker
	if w == nil {
		throwf(t.obs, "pin_to_thread: called from outside a dispatched task")
	}
	t.sched.lock()
	t.lockedm = w
	w.lockedg = t
	t.sched.unlock()
}

// UnpinFromThread implements spec §6's unpin_from_thread(): clear the
// lockedg/lockedm pairing.
func (t *Task) UnpinFromThread() {
	t.sched.lock()
	if t.lockedm != nil {
		t.lockedm.lockedg = nil
		t.lockedm = nil
	}
	t.sched.unlock()
}

// SetCPUProfiler implements spec §6's set_cpu_profiler(fn, hz): install or
// remove a periodic sampling hook. A zero rate disables sampling; fn
// receives each obs.ProfileSample via the returned unsubscribe-capable
// Hooks subscription (see internal/obs).
func (s *Scheduler) SetCPUProfiler(hz int32, fn func(obs.ProfileSample)) (unsubscribe func()) {
	s.lock()
	if s.prof != nil {
		s.prof.Stop()
		s.prof = nil
	}
	s.unlock()

	if hz <= 0 || fn == nil {
		return func() {}
	}

	_, err := s.obs.Profile.Hook(obs.EventProfile, func(_ context.Context, sample obs.ProfileSample) error {
		fn(sample)
		return nil
	})
	if err != nil {
		return func() {}
	}

	s.lock()
	s.prof = s.startProfiler(hz)
	s.unlock()
	return func() {
		s.lock()
		if s.prof != nil {
			s.prof.Stop()
			s.prof = nil
		}
		s.unlock()
	}
}
