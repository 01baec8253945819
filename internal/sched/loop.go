package sched

import "github.com/gmsched/gmsched/internal/obs"

// mstart is the initial entry point of a worker's driver goroutine (spec
// §4.5): it has no task to hand back yet, so it enters schedule with a nil
// prev.
func (s *Scheduler) mstart(w *Worker) {
	s.schedule(w, nil)
}

// schedule is spec §4.5's schedule(prev), reshaped into a for-loop instead
// of the tail-recursive "never returns normally" description (spec: "the
// next entry is via gosched/mcall") — a Go goroutine can't tail-call into
// itself without growing the real call stack, so the loop body plays the
// role of each successive "call" spec describes.
func (s *Scheduler) schedule(w *Worker, prev *Task) {
	for {
		s.lock()
		if prev != nil {
			s.afterRun(w, prev)
		}
		next := s.nextAndUnlock(w) // drops the lock internally

		s.lock()
		w.curg = next
		next.worker = w
		s.unlock()
		next.setStatus(Running)
		if s.obs != nil {
			obs.Log(obs.SignalTaskDispatched,
				obs.FieldGoID.Field(int(next.GoID)),
				obs.FieldWorker.Field(int(w.id)),
			)
		}

		ev := s.dispatch(next)
		prev = s.afterDispatch(w, next, ev)
	}
}

// afterDispatch interprets one event already received for next — whether
// from dispatch's own `<-t.events` or from resumeAfterSyscall's, below —
// updating w's attachment to next accordingly. It returns the prev to feed
// into schedule's next iteration: nil if the worker should detach from
// next entirely (evSyscallEnter) and go find other work, else next itself.
func (s *Scheduler) afterDispatch(w *Worker, next *Task, ev taskEvent) *Task {
	switch ev.kind {
	case evSyscallEnter:
		w.curg = nil
		return nil
	default: // evYield, evDone
		return next
	}
}

// resumeAfterSyscall hosts a task that exit_syscall's fast path (spec
// §4.7) has just resumed running in place. The worker that originally
// dispatched the task already detached to go serve other work the moment
// the task entered its syscall (schedule's evSyscallEnter case, above);
// since the task's own goroutine kept running independently through the
// blocking call rather than parking on resume, nobody was left listening
// for whatever it does next. w is a freshly attached worker standing in
// for that purpose: it has nothing to send — t is already running — only
// t's next event to receive, after which it falls into the ordinary
// scheduling loop like any other worker.
func (s *Scheduler) resumeAfterSyscall(w *Worker, t *Task) {
	prev := s.afterDispatch(w, t, <-t.events)
	s.schedule(w, prev)
}

// afterRun is spec §4.5 step 2-3: account for the task that just stopped
// running and, if it terminated, reclaim it.
func (s *Scheduler) afterRun(w *Worker, prev *Task) {
	s.grunning--
	s.word.addMcpu(-1)

	switch prev.loadStatus() {
	case Running:
		prev.setStatus(Runnable)
		s.gput(prev)
	case Moribund:
		prev.setStatus(Dead)
		if prev.lockedm != nil {
			prev.lockedm.lockedg = nil
			prev.lockedm = nil
		}
		if prev.idlem != nil {
			prev.idlem.idleg = nil
			prev.idlem = nil
		}
		s.gfput(prev)
		s.gcount--
		s.obs.Metrics.Gauge(obs.GaugeGCount).Set(float64(s.gcount))
		obs.Log(obs.SignalTaskExited, obs.FieldGoID.Field(int(prev.GoID)))
		if s.gcount == 0 {
			close(s.exitCh)
		}
	}

	if prev.readyonstop.Load() {
		prev.readyonstop.Store(false)
	}
}

// nextAndUnlock is spec §4.6: called with the lock held, returns with it
// dropped, always yielding a dispatchable task (blocking inside if none is
// immediately available).
func (s *Scheduler) nextAndUnlock(w *Worker) *Task {
	for {
		if w.nextg != nil {
			g := w.nextg
			w.nextg = nil
			s.grunning++
			s.unlock()
			return g
		}

		if w.lockedg != nil {
			s.matchmg(w)
			if w.nextg != nil {
				continue
			}
		} else {
			var dispatched *Task
			for s.haveG(w) && s.word.tryAddMcpu() {
				g := s.gget(w)
				if g == nil {
					s.word.addMcpu(-1)
					break
				}
				if g.lockedm != nil && g.lockedm != w {
					s.mnextg(g.lockedm, g)
					continue
				}
				dispatched = g
				break
			}
			if dispatched != nil {
				s.grunning++
				s.unlock()
				return dispatched
			}
		}

		// No dispatchable task: park this worker.
		if w.lockedg == nil {
			s.mput(w)
		}
		w.waitnextg = true
		w.havenextg.clear()

		if s.word.waitstop() && s.word.mcpu() <= s.word.mcpumax() {
			s.word.clearWaitstop()
			s.stopped.wakeup()
		}

		if s.grunning == 0 && s.gcount > 0 {
			s.unlock()
			throwf(s.obs, "all goroutines are asleep - deadlock")
		}

		s.unlock()
		obs.Log(obs.SignalWorkerParked, obs.FieldWorker.Field(int(w.id)))
		w.havenextg.sleep()
		s.lock()
		w.waitnextg = false
		if w.nextg == nil {
			throwf(s.obs, "gget inconsistency: worker woke with no nextg")
		}
		g := w.nextg
		w.nextg = nil
		s.grunning++
		s.unlock()
		return g
	}
}
