package sched

import (
	"context"

	"github.com/gmsched/gmsched/internal/obs"
)

// StopTheWorld implements spec §4.8: clamp mcpumax to 1, set waitstop, and
// block until mcpu <= mcpumax, i.e. at most one worker is still executing
// task code. Must be called from outside any worker's
// schedule loop (e.g. the caller's own goroutine, not a task).
func StopTheWorld(s *Scheduler) {
	_, span := s.obs.Tracer.StartSpan(context.Background(), obs.SpanStopWorld)
	defer span.Finish()
	obs.Log(obs.SignalStopWorldBegin)

	s.lock()
	s.word.casMcpumax(1)
	for {
		w := s.word.load()
		if unpackMcpu(w) <= unpackMcpumax(w) {
			s.unlock()
			break
		}
		if s.word.casWaitstop(w, true) {
			s.unlock()
			s.stopped.sleep()
			s.lock()
			continue
		}
		s.unlock()
		s.lock()
	}
	s.obs.Metrics.Counter(obs.CounterStopWorld).Inc()
}

// StartTheWorld implements spec §4.8's resumption: restore mcpumax to the
// configured parallelism and let the matcher redispatch anything that
// queued up while the world was stopped.
func StartTheWorld(s *Scheduler) {
	s.lock()
	s.word.casMcpumax(s.cfg.Gomaxprocs)
	s.matchmg(nil)
	s.unlock()
	obs.Log(obs.SignalStopWorldEnd)
}
