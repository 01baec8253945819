package sched

import "sync/atomic"

// word packs mcpu (15 bits), mcpumax (15 bits), waitstop (1 bit) and
// gwaiting (1 bit) into a single uint32, per spec §4.1. Packing them
// together lets enter_syscall/exit_syscall read-modify-write one word
// without taking the scheduler lock in the common case.
//
//	bit 0..14  mcpu
//	bit 15..29 mcpumax
//	bit 30     waitstop
//	bit 31     gwaiting
const (
	mcpuBits    = 15
	mcpuMask    = 1<<mcpuBits - 1
	mcpumaxShift = mcpuBits
	mcpumaxMask  = uint32(mcpuMask) << mcpumaxShift
	waitstopBit  = uint32(1) << 30
	gwaitingBit  = uint32(1) << 31

	// maxGomaxprocs is the maximum permitted mcpumax, reserving high
	// values of the 15-bit field to detect underflow (spec §4.1).
	maxGomaxprocs = 1<<mcpuBits - 11
)

type schedWord struct {
	v atomic.Uint32
}

func packWord(mcpu, mcpumax int32, waitstop, gwaiting bool) uint32 {
	w := uint32(mcpu) & mcpuMask
	w |= (uint32(mcpumax) & mcpuMask) << mcpumaxShift
	if waitstop {
		w |= waitstopBit
	}
	if gwaiting {
		w |= gwaitingBit
	}
	return w
}

func unpackMcpu(w uint32) int32    { return int32(w & mcpuMask) }
func unpackMcpumax(w uint32) int32 { return int32((w & mcpumaxMask) >> mcpumaxShift) }
func unpackWaitstop(w uint32) bool { return w&waitstopBit != 0 }
func unpackGwaiting(w uint32) bool { return w&gwaitingBit != 0 }

func (s *schedWord) load() uint32 { return s.v.Load() }

func (s *schedWord) mcpu() int32    { return unpackMcpu(s.load()) }
func (s *schedWord) mcpumax() int32 { return unpackMcpumax(s.load()) }
func (s *schedWord) waitstop() bool { return unpackWaitstop(s.load()) }
func (s *schedWord) gwaiting() bool { return unpackGwaiting(s.load()) }

// initMcpumax seeds mcpumax at scheduler creation time; no other field may
// be non-zero yet, so a plain store is safe (no CAS race possible before any
// worker exists).
func (s *schedWord) initMcpumax(n int32) {
	s.v.Store(packWord(0, n, false, false))
}

// setGwaiting CASes the gwaiting bit to match nonEmpty, looping until it
// succeeds against concurrent mcpu fast-path updates. Called under S.lock
// whenever the ready-queue length transitions across zero (spec §4.1/§4.2).
func (s *schedWord) setGwaiting(nonEmpty bool) {
	for {
		old := s.load()
		if unpackGwaiting(old) == nonEmpty {
			return
		}
		var next uint32
		if nonEmpty {
			next = old | gwaitingBit
		} else {
			next = old &^ gwaitingBit
		}
		if s.v.CompareAndSwap(old, next) {
			return
		}
	}
}

// casMcpumax attempts to set mcpumax to n, leaving the other fields
// untouched, retrying against concurrent mcpu changes. Used by
// set_parallelism and stop_the_world/start_the_world.
func (s *schedWord) casMcpumax(n int32) {
	for {
		old := s.load()
		next := (old &^ mcpumaxMask) | ((uint32(n) & mcpuMask) << mcpumaxShift)
		if s.v.CompareAndSwap(old, next) {
			return
		}
	}
}

// casWaitstop attempts 0->1 (set=true) or 1->0 (set=false) conditional on
// the word still matching expect, per stop_the_world's "CAS waitstop
// from 0->1 conditional on the previously observed word still being
// current" (spec §4.8). Returns whether the CAS succeeded.
func (s *schedWord) casWaitstop(expect uint32, set bool) bool {
	var next uint32
	if set {
		next = expect | waitstopBit
	} else {
		next = expect &^ waitstopBit
	}
	return s.v.CompareAndSwap(expect, next)
}

// clearWaitstop unconditionally clears the waitstop bit (used after it has
// been observed and acted on, e.g. in enter_syscall's slow path).
func (s *schedWord) clearWaitstop() {
	for {
		old := s.load()
		if !unpackWaitstop(old) {
			return
		}
		if s.v.CompareAndSwap(old, old&^waitstopBit) {
			return
		}
	}
}

// tryAddMcpu is canaddmcpu (spec §4.2): succeeds iff mcpu < mcpumax,
// atomically incrementing mcpu.
func (s *schedWord) tryAddMcpu() bool {
	for {
		old := s.load()
		cpu := unpackMcpu(old)
		max := unpackMcpumax(old)
		if cpu >= max {
			return false
		}
		next := (old &^ uint32(mcpuMask)) | (uint32(cpu+1) & mcpuMask)
		if s.v.CompareAndSwap(old, next) {
			return true
		}
	}
}

// addMcpu performs an unconditional atomic fetch-add of delta onto mcpu,
// the fast path enter_syscall/exit_syscall use (spec §4.7). It throws if
// mcpu would go negative (spec §7's "negative mcpu" invariant violation).
func (s *schedWord) addMcpu(delta int32) int32 {
	for {
		old := s.load()
		cpu := unpackMcpu(old)
		next := cpu + delta
		if next < 0 {
			panic(fatalError{"negative mcpu"})
		}
		packed := (old &^ uint32(mcpuMask)) | (uint32(next) & mcpuMask)
		if s.v.CompareAndSwap(old, packed) {
			return next
		}
	}
}
