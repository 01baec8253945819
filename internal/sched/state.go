package sched

import (
	"sync"

	"github.com/gmsched/gmsched/internal/obs"
)

// Config mirrors the environment-derived knobs of spec §6.
type Config struct {
	// MaxGomaxprocs clamps set_parallelism's input, defaulting to the
	// 15-bit field's usable range (spec §4.1).
	MaxGomaxprocs int32
	// Gomaxprocs is the initial parallelism ceiling (GOMAXPROCS).
	Gomaxprocs int32
}

// DefaultConfig returns a Config with Gomaxprocs=1 and the spec-mandated
// maximum ceiling, the same conservative default real GOMAXPROCS=1 used to
// have before it tracked NumCPU.
func DefaultConfig() Config {
	return Config{MaxGomaxprocs: maxGomaxprocs, Gomaxprocs: 1}
}

// Scheduler is the process-wide singleton of spec §3 ("S"), threaded
// explicitly as a value here instead of a package-global so tests can
// construct an independent instance each time (spec §9, "Shared-mutable
// global").
type Scheduler struct {
	mu   sync.Mutex
	word schedWord

	ghead, gtail *Task
	gwait        int

	gfree []*Task // LIFO free list of reusable Dead tasks

	grunning int32
	gcount   int32
	goidgen  int64

	mhead  *Worker // idle-worker LIFO list
	mcount int32

	predawn bool
	stopped *note
	mwakeup *Worker // batched-wakeup slot, signaled only at unlock (spec §4.4)

	allTasks []*Task

	spawner ThreadSpawner
	obs     *obs.Handle
	cfg     Config
	prof    *profiler

	// exitCh closes the moment gcount transitions to 0 (spec §6: "the
	// process exits with status 0 exactly when gcount transitions to 0").
	// The scheduler never calls os.Exit itself; Wait blocks on this channel
	// and ending the process is left to the caller.
	exitCh chan struct{}
}

// New constructs a Scheduler ready to accept Spawn calls.
func New(cfg Config) *Scheduler {
	if cfg.MaxGomaxprocs <= 0 || cfg.MaxGomaxprocs > maxGomaxprocs {
		cfg.MaxGomaxprocs = maxGomaxprocs
	}
	if cfg.Gomaxprocs <= 0 {
		cfg.Gomaxprocs = 1
	}
	if cfg.Gomaxprocs > cfg.MaxGomaxprocs {
		cfg.Gomaxprocs = cfg.MaxGomaxprocs
	}
	s := &Scheduler{
		stopped: newNote(),
		spawner: goroutineSpawner{},
		obs:     obs.New(),
		cfg:     cfg,
		predawn: true,
		exitCh:  make(chan struct{}),
	}
	s.word.initMcpumax(cfg.Gomaxprocs)
	s.predawn = false
	return s
}

// Close releases the scheduler's observability subscriptions. It does not
// stop any running worker or task — callers are expected to have driven
// gcount to zero (or simply be done with the process) first.
func (s *Scheduler) Close() { s.obs.Close() }

func (s *Scheduler) lock()   { s.mu.Lock() }
func (s *Scheduler) unlock() {
	// Batched wakeup (spec §4.4, second-order contract): the matcher
	// records the most-recently-woken worker in mwakeup and the actual
	// note signal is deferred to here, so the woken worker does not race
	// to reacquire the lock the current holder still holds.
	w := s.mwakeup
	s.mwakeup = nil
	s.mu.Unlock()
	if w != nil {
		w.havenextg.wakeup()
	}
}

// gput implements spec §4.2's gput. Must be called with the lock held.
func (s *Scheduler) gput(g *Task) {
	if g.lockedm != nil {
		if s.word.tryAddMcpu() {
			s.mnextg(g.lockedm, g)
			return
		}
		// lockedm exists but has no room right now: fall through and sit
		// on the ready queue like any other task until it's picked up by
		// name in next_and_unlock.
	}
	if g.idlem != nil {
		if g.idlem.idleg != nil {
			throw(s.obs, "double idle")
		}
		g.idlem.idleg = g
		return
	}
	g.listLink = nil
	if s.ghead == nil {
		s.ghead = g
	} else {
		s.gtail.listLink = g
	}
	s.gtail = g
	s.gwait++
	if s.gwait == 1 {
		s.word.setGwaiting(true)
	}
}

// gget implements spec §4.2's gget, scoped to a specific worker so it can
// also return that worker's idle-task slot. Must be called with the lock
// held.
func (s *Scheduler) gget(self *Worker) *Task {
	if g := s.ghead; g != nil {
		s.ghead = g.listLink
		if s.ghead == nil {
			s.gtail = nil
		}
		g.listLink = nil
		s.gwait--
		if s.gwait == 0 {
			s.word.setGwaiting(false)
		}
		return g
	}
	if self != nil && self.idleg != nil {
		g := self.idleg
		self.idleg = nil
		return g
	}
	return nil
}

// haveG reports whether gget would return a task right now (spec's
// have_g()). Must be called with the lock held.
func (s *Scheduler) haveG(self *Worker) bool {
	return s.ghead != nil || (self != nil && self.idleg != nil)
}

// mput implements spec §4.2's mput: LIFO-push to the idle-worker list.
// Must be called with the lock held.
func (s *Scheduler) mput(m *Worker) {
	m.schedlink = s.mhead
	s.mhead = m
}

// mget implements spec §4.2's mget: prefer g's lockedm, else LIFO-pop
// mhead. Must be called with the lock held.
func (s *Scheduler) mget(g *Task) *Worker {
	if g != nil && g.lockedm != nil {
		return g.lockedm
	}
	if m := s.mhead; m != nil {
		s.mhead = m.schedlink
		m.schedlink = nil
		return m
	}
	return nil
}

// gfput pushes a Dead task onto the reusable free list. Spec requires
// intact stack bounds (stackguard - guard == stack0); we check the
// equivalent via stack.Chain.Valid(). Must be called with the lock held.
func (s *Scheduler) gfput(g *Task) {
	if g.stackChain != nil && !g.stackChain.Valid() {
		throwf(s.obs, "gfput: invalid stack bounds for goid=%d", g.GoID)
	}
	s.gfree = append(s.gfree, g)
}

// gfget pops a reusable Dead task, or returns nil if none are free. Must be
// called with the lock held.
func (s *Scheduler) gfget() *Task {
	n := len(s.gfree)
	if n == 0 {
		return nil
	}
	g := s.gfree[n-1]
	s.gfree = s.gfree[:n-1]
	return g
}

// mnextg publishes g to m's handoff slot and wakes it if parked, batching
// the actual note signal into mwakeup per spec §4.4. Must be called with
// the lock held.
func (s *Scheduler) mnextg(m *Worker, g *Task) {
	m.nextg = g
	if m.waitnextg {
		m.waitnextg = false
		s.mwakeup = m
	}
}

func (s *Scheduler) nextGoID() int64 {
	s.goidgen++
	return s.goidgen
}
