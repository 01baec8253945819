// Package stack simulates the segmented-stack growth and unwinding model of
// spec §4.9 on top of a host language (Go) whose own goroutine stacks are
// already contiguous and grow transparently. It exists as a standalone,
// testable bookkeeping structure — not as the real memory backing any
// goroutine's execution — because spec names newstack/oldstack/unwindstack
// as a required module with its own round-trip invariant. See DESIGN.md,
// "Design adaptations", point 3.
//
// A Segment reserves a real []byte buffer so that stackbase/stackguard are
// genuine addresses (via unsafe.Pointer/uintptr), not bare counters — the
// guard-band invariant stackguard+guard <= stackbase is checked against real
// memory, in the style of alphadose-ZenQ's runtime-adjacent pointer code.
package stack

import (
	"fmt"
	"unsafe"
)

const (
	// StackMin is the size of a task's initial stack segment.
	StackMin = 8192
	// GuardBand is the reserved headroom below stackguard that the
	// compiler prologue compares SP against in the real runtime; here it
	// is the minimum slack a new segment must leave between its guard and
	// its base.
	GuardBand = 1024
	// StackExtra is additional headroom added to a grown segment beyond
	// the caller's stated requirement, mirroring the real allocator's
	// "don't grow one frame at a time" heuristic.
	StackExtra = 1024
	// StackSystem is placeholder headroom for OS/runtime bookkeeping atop
	// the requested segment size.
	StackSystem = 512
)

// Segment is one link of a task's segmented stack.
type Segment struct {
	buf        []byte
	base       uintptr // stackbase: high address, top of usable space
	guard      uintptr // stackguard: low address threshold
	argSize    int     // size of the argument region copied in from the caller
	free       bool    // true if this segment was heap-allocated (vs. reused headroom)
	panicTag   bool    // Stktop.panic: true iff created to run a deferred call during panic
	prev       *Segment
	frameToken uint64 // synthetic "argp" identity for this segment's top frame
}

// Chain is the segmented stack owned by one task.
type Chain struct {
	top   *Segment
	depth int
	next  uint64
}

// NewChain allocates the initial StackMin segment for a freshly spawned task.
// argSize is the size in bytes of the entry function's arguments; spawning
// with an argSize that leaves less than GuardBand of headroom on a StackMin
// segment is rejected (spec §8 boundary behavior).
func NewChain(argSize int) (*Chain, error) {
	if argSize > StackMin-GuardBand {
		return nil, fmt.Errorf("stack: initial argument size %d exceeds StackMin-%d (%d)", argSize, GuardBand, StackMin-GuardBand)
	}
	seg := newSegment(StackMin, argSize, false, false)
	return &Chain{top: seg, depth: 1, next: 1}, nil
}

func newSegment(size, argSize int, free, panicTag bool) *Segment {
	buf := make([]byte, size)
	base := uintptr(unsafe.Pointer(&buf[size-1])) + 1
	guard := uintptr(unsafe.Pointer(&buf[0]))
	return &Segment{
		buf:      buf,
		base:     base,
		guard:    guard,
		argSize:  argSize,
		free:     free,
		panicTag: panicTag,
	}
}

// Top returns the current top-of-chain segment.
func (c *Chain) Top() *Segment { return c.top }

// Depth returns the number of linked segments, for tests and metrics.
func (c *Chain) Depth() int { return c.depth }

// Base reports stackbase for the current segment.
func (s *Segment) Base() uintptr { return s.base }

// Guard reports stackguard for the current segment.
func (s *Segment) Guard() uintptr { return s.guard }

// Panic reports whether this segment was created to run a deferred call
// during an active panic (Stktop.panic).
func (s *Segment) Panic() bool { return s.panicTag }

// ArgP returns the synthetic argument-pointer identity of this segment's top
// frame, standing in for the real SP-derived argp spec's recover() check
// uses. See DESIGN.md point 2 — real recover() semantics do the heavy
// lifting; this is bookkeeping for introspection and tests only.
func (s *Segment) ArgP() uint64 { return s.frameToken }

// Valid checks the guard-band invariant for the current segment:
// stackguard + GuardBand <= stackbase.
func (c *Chain) Valid() bool {
	return c.top.guard+GuardBand <= c.top.base
}

// Grow implements newstack: push a new segment sized to hold frameSize +
// argSize (+headroom), tagged panicTag if it is being created to run a
// deferred call during panic walk (spec §4.10's ispanic propagation).
// Grow always allocates a new segment: reusing headroom on the current
// segment for the reflective-call trampoline case is not modeled.
func (c *Chain) Grow(frameSize, argSize int, panicTag bool) *Segment {
	need := frameSize + argSize + StackExtra
	if need < StackMin {
		need = StackMin
	}
	seg := newSegment(need+StackSystem, argSize, true, panicTag)
	seg.prev = c.top
	seg.frameToken = c.next
	c.next++
	c.top = seg
	c.depth++
	return seg
}

// Shrink implements oldstack: pop the current segment, freeing it if it was
// heap-allocated, and resume on its predecessor. Returns false if there is no
// predecessor (the base segment cannot be shrunk further).
func (c *Chain) Shrink() bool {
	if c.top.prev == nil {
		return false
	}
	freed := c.top
	c.top = c.top.prev
	c.depth--
	freed.prev = nil
	freed.buf = nil // release the backing array
	return true
}

// Unwind implements unwindstack(g, sp): walk and free segments from the top
// until the segment whose frameToken equals target is reached, or the base
// segment (prev == nil) is hit. It refuses (returns false) if asked to
// unwind past the base without finding target, matching spec's "refusing to
// unwind... is a fatal condition" for the caller to enforce.
func (c *Chain) Unwind(target uint64) bool {
	for c.top.frameToken != target {
		if c.top.prev == nil {
			return false
		}
		c.Shrink()
	}
	return true
}
