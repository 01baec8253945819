// Package obs wires the scheduler's ambient observability concerns — structured
// logging, metrics, tracing, hooks and time — behind a single handle so that
// internal/sched never imports the zoobzio libraries directly.
package obs

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Metric keys. Gauges reflect point-in-time scheduler state; counters are
// monotonic totals.
const (
	GaugeMCPU        = metricz.Key("sched.mcpu")
	GaugeMCPUMax     = metricz.Key("sched.mcpumax")
	GaugeGCount      = metricz.Key("sched.gcount")
	GaugeMCount      = metricz.Key("sched.mcount")
	GaugeReadyQueue  = metricz.Key("sched.runq.depth")
	CounterSpawned   = metricz.Key("sched.tasks.spawned.total")
	CounterExited    = metricz.Key("sched.tasks.exited.total")
	CounterSyscalls  = metricz.Key("sched.syscalls.entered.total")
	CounterStopWorld = metricz.Key("sched.stopworld.cycles.total")
	CounterPanics    = metricz.Key("sched.panics.total")
)

// Span keys.
const (
	SpanSchedule   = tracez.Key("sched.schedule")
	SpanMatch      = tracez.Key("sched.matchmg")
	SpanSyscall    = tracez.Key("sched.syscall")
	SpanStopWorld  = tracez.Key("sched.stopworld")
	SpanStackGrow  = tracez.Key("sched.stack.grow")
	SpanStackShrin = tracez.Key("sched.stack.shrink")
)

// Common tags.
const (
	TagGoID    = tracez.Tag("goid")
	TagWorker  = tracez.Tag("worker")
	TagOutcome = tracez.Tag("outcome")
)

// Hook event keys.
const (
	EventPanic   = hookz.Key("sched.panic.unrecovered")
	EventProfile = hookz.Key("sched.profile.sample")
)

// Log signals.
const (
	SignalWorkerSpawned    capitan.Signal = "worker.spawned"
	SignalWorkerParked     capitan.Signal = "worker.parked"
	SignalTaskDispatched   capitan.Signal = "task.dispatched"
	SignalTaskExited       capitan.Signal = "task.exited"
	SignalSyscallEntered   capitan.Signal = "syscall.entered"
	SignalSyscallExited    capitan.Signal = "syscall.exited"
	SignalStopWorldBegin   capitan.Signal = "stopworld.begin"
	SignalStopWorldEnd     capitan.Signal = "stopworld.end"
	SignalPanicUnrecovered capitan.Signal = "panic.unrecovered"
	SignalFatal            capitan.Signal = "fatal"
)

// Log field keys.
var (
	FieldGoID    = capitan.NewIntKey("goid")
	FieldWorker  = capitan.NewIntKey("worker")
	FieldStatus  = capitan.NewStringKey("status")
	FieldReason  = capitan.NewStringKey("reason")
	FieldMCPU    = capitan.NewIntKey("mcpu")
	FieldMCPUMax = capitan.NewIntKey("mcpumax")
)

// PanicEvent is emitted via Hooks whenever a task panics without recovery,
// before the chain is printed and the process throws.
type PanicEvent struct {
	GoID  int64
	Value any
	Depth int
}

// ProfileSample is emitted on every simulated CPU profiler tick.
type ProfileSample struct {
	GoID int64
	At   time.Time
}

// Handle bundles one scheduler instance's observability surface.
type Handle struct {
	Clock   clockz.Clock
	Metrics *metricz.Registry
	Tracer  *tracez.Tracer
	Panics  *hookz.Hooks[PanicEvent]
	Profile *hookz.Hooks[ProfileSample]
}

// New builds a Handle with the real clock and fresh registries. Clock is a
// plain field, so a clockz.FakeClock can be put in its place.
func New() *Handle {
	m := metricz.New()
	m.Gauge(GaugeMCPU)
	m.Gauge(GaugeMCPUMax)
	m.Gauge(GaugeGCount)
	m.Gauge(GaugeMCount)
	m.Gauge(GaugeReadyQueue)
	m.Counter(CounterSpawned)
	m.Counter(CounterExited)
	m.Counter(CounterSyscalls)
	m.Counter(CounterStopWorld)
	m.Counter(CounterPanics)

	return &Handle{
		Clock:   clockz.RealClock,
		Metrics: m,
		Tracer:  tracez.New(),
		Panics:  hookz.New[PanicEvent](),
		Profile: hookz.New[ProfileSample](),
	}
}

// Close releases hook subscriptions. Safe to call multiple times.
func (h *Handle) Close() {
	if h == nil {
		return
	}
	h.Panics.Close()
	h.Profile.Close()
}

// Log emits a structured signal. Failures to emit a hook are deliberately
// swallowed the way zoobzio/pipz does at call sites — observability must
// never be allowed to break scheduling.
func Log(sig capitan.Signal, fields ...capitan.Field) {
	capitan.Info(context.Background(), sig, fields...)
}

// LogWarn emits a structured warning signal.
func LogWarn(sig capitan.Signal, fields ...capitan.Field) {
	capitan.Warn(context.Background(), sig, fields...)
}

// LogError emits a structured error signal, used for fatal invariant violations.
func LogError(sig capitan.Signal, fields ...capitan.Field) {
	capitan.Error(context.Background(), sig, fields...)
}
