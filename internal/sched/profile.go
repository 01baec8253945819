package sched

import (
	"context"
	"time"

	"github.com/gmsched/gmsched/internal/obs"
)

// profiler runs the ticker backing set_cpu_profiler (spec §6): a real
// runtime samples the interrupted PC at hz per second; this rewrite has no
// interrupt to sample, so it emits one obs.ProfileSample per tick naming
// whichever task each live worker currently has as curg — a coarse but
// honest stand-in, documented in SPEC_FULL.md §12.
type profiler struct {
	sched *Scheduler
	hz    int32
	stop  chan struct{}
}

// startProfiler launches a ticker goroutine at the given rate using the
// scheduler's clockz.Clock (so tests can drive it with a FakeClock instead
// of real time). hz <= 0 is a no-op, matching spec's "zero rate disables".
func (s *Scheduler) startProfiler(hz int32) *profiler {
	if hz <= 0 {
		return nil
	}
	p := &profiler{sched: s, hz: hz, stop: make(chan struct{})}
	interval := time.Second / time.Duration(hz)
	s.spawner.Spawn(func() {
		for {
			select {
			case <-p.stop:
				return
			case now := <-s.obs.Clock.After(interval):
				p.sample(now)
			}
		}
	})
	return p
}

func (p *profiler) sample(now time.Time) {
	s := p.sched
	s.lock()
	samples := make([]obs.ProfileSample, 0, s.mcount)
	for _, t := range s.allTasks {
		if t.loadStatus() == Running && t.worker != nil {
			samples = append(samples, obs.ProfileSample{GoID: t.GoID, At: now})
		}
	}
	s.unlock()
	for _, smp := range samples {
		s.obs.Profile.Emit(context.Background(), obs.EventProfile, smp) //nolint:errcheck
	}
}

func (p *profiler) Stop() {
	if p == nil {
		return
	}
	close(p.stop)
}
