package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchedWord_TryAddMcpu_RespectsCeiling(t *testing.T) {
	var w schedWord
	w.initMcpumax(2)

	assert.True(t, w.tryAddMcpu())
	assert.True(t, w.tryAddMcpu())
	assert.False(t, w.tryAddMcpu(), "mcpu must not exceed mcpumax")
	assert.Equal(t, int32(2), w.mcpu())
}

func TestSchedWord_AddMcpu_NegativePanics(t *testing.T) {
	var w schedWord
	w.initMcpumax(1)
	assert.Panics(t, func() { w.addMcpu(-1) })
}

func TestSchedWord_SetGwaiting_RoundTrips(t *testing.T) {
	var w schedWord
	w.initMcpumax(4)
	assert.False(t, w.gwaiting())
	w.setGwaiting(true)
	assert.True(t, w.gwaiting())
	w.setGwaiting(false)
	assert.False(t, w.gwaiting())
}

func TestSchedWord_CasMcpumax_PreservesOtherFields(t *testing.T) {
	var w schedWord
	w.initMcpumax(4)
	w.tryAddMcpu()
	w.setGwaiting(true)

	w.casMcpumax(8)

	assert.Equal(t, int32(8), w.mcpumax())
	assert.Equal(t, int32(1), w.mcpu())
	assert.True(t, w.gwaiting())
}

func TestSchedWord_WaitstopRoundTrip(t *testing.T) {
	var w schedWord
	w.initMcpumax(1)
	assert.False(t, w.waitstop())

	old := w.load()
	ok := w.casWaitstop(old, true)
	assert.True(t, ok)
	assert.True(t, w.waitstop())

	w.clearWaitstop()
	assert.False(t, w.waitstop())
}

func TestSchedWord_Invariant_McpuNeverExceedsMcpumax(t *testing.T) {
	var w schedWord
	w.initMcpumax(3)
	for i := 0; i < 10; i++ {
		w.tryAddMcpu()
	}
	assert.LessOrEqual(t, w.mcpu(), w.mcpumax())
	assert.LessOrEqual(t, w.mcpumax(), int32(maxGomaxprocs))
}
