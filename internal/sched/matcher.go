package sched

import (
	"context"

	"github.com/gmsched/gmsched/internal/obs"
)

// matchmg is spec §4.4: while the ready queue has work and canaddmcpu
// succeeds, pair a task with a worker — its lockedm if pinned, else an idle
// worker, else a freshly spawned one — and hand it off. Refuses to run
// while the calling worker is mallocing/gcing (reentrancy guard). Must be
// called with the lock held; the caller keeps the lock for the whole batch, matching spec's description of matchmg as a
// lock-held operation invoked from next_and_unlock and enter_syscall's slow
// path.
func (s *Scheduler) matchmg(caller *Worker) {
	if caller != nil && caller.reentrant() {
		return
	}
	if s.predawn {
		return
	}
	_, span := s.obs.Tracer.StartSpan(context.Background(), obs.SpanMatch)
	defer span.Finish()
	matched := 0

	for s.haveG(nil) && s.word.tryAddMcpu() {
		g := s.gget(nil)
		if g == nil {
			// Lost the race between haveG and gget (can't happen under a
			// held lock, but mirrors the real runtime's defensive check).
			s.word.addMcpu(-1)
			break
		}
		if g.lockedm != nil && g.lockedm != caller {
			s.mnextg(g.lockedm, g)
			continue
		}
		w := s.mget(g)
		if w == nil {
			w = s.newWorker()
		}
		s.mnextg(w, g)
		matched++
	}

	if matched > 0 {
		s.obs.Metrics.Gauge(obs.GaugeReadyQueue).Set(float64(s.gwait))
	}
}

// newWorker constructs a fresh Worker and launches its driver goroutine via
// the configured ThreadSpawner (spec §4.4's "allocate a new OS thread
// entering mstart"). Must be called with the lock held.
func (s *Scheduler) newWorker() *Worker {
	s.mcount++
	w := &Worker{
		id:        s.mcount,
		havenextg: newNote(),
		stop:      make(chan struct{}),
		obs:       s.obs,
	}
	s.obs.Metrics.Gauge(obs.GaugeMCount).Set(float64(s.mcount))
	obs.Log(obs.SignalWorkerSpawned, obs.FieldWorker.Field(int(w.id)))
	s.spawner.Spawn(func() { s.mstart(w) })
	return w
}

// newWorkerForReturn constructs a fresh Worker to host t, which
// exit_syscall's fast path (spec §4.7) has just resumed running in place.
// Unlike newWorker it does not enter mstart's dispatch loop — t is already
// running, not parked on resume — it only needs somewhere to report its
// next event, since the worker that originally dispatched t already
// detached to serve other work the instant t entered its syscall. Must be
// called with the lock held.
func (s *Scheduler) newWorkerForReturn(t *Task) *Worker {
	s.mcount++
	w := &Worker{
		id:        s.mcount,
		havenextg: newNote(),
		stop:      make(chan struct{}),
		obs:       s.obs,
		curg:      t,
	}
	t.worker = w
	s.obs.Metrics.Gauge(obs.GaugeMCount).Set(float64(s.mcount))
	obs.Log(obs.SignalWorkerSpawned, obs.FieldWorker.Field(int(w.id)))
	s.spawner.Spawn(func() { s.resumeAfterSyscall(w, t) })
	return w
}
