package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_Defer_RunsLIFO(t *testing.T) {
	task := newTestTask()
	var order []int

	done1 := task.Defer("first", func() { order = append(order, 1) })
	done2 := task.Defer("second", func() { order = append(order, 2) })
	done3 := task.Defer("third", func() { order = append(order, 3) })

	done3()
	done2()
	done1()

	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestTask_Defer_FrameMismatchThrows(t *testing.T) {
	task := newTestTask()
	done1 := task.Defer("outer", func() {})
	_ = task.Defer("inner", func() {})

	assert.Panics(t, func() { done1() }, "popping out of order must be fatal")
}

func TestTask_PanicRecover_RecoversOnce(t *testing.T) {
	task := newTestTask()

	var recovered any
	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = task.Recover(r)
			}
		}()
		task.Panic("boom")
	}()

	require.Equal(t, "boom", recovered)

	// The panic record is already marked recovered; a stray second call
	// (not inside any active panic) is a no-op, not a crash.
	assert.Nil(t, task.Recover(nil))
}

func TestTask_Recover_NoPanicInFlightReturnsNil(t *testing.T) {
	task := newTestTask()
	assert.Nil(t, task.Recover(nil))
}

func TestTask_HandleUnrecovered_BuildsChain(t *testing.T) {
	task := newTestTask()
	task.GoID = 42

	defer func() {
		r := recover()
		require.NotNil(t, r)
		msg, ok := IsFatal(r)
		require.True(t, ok)
		assert.Contains(t, msg, "goroutine 42")
		assert.Contains(t, msg, "panic: unrecovered boom")
	}()

	func() {
		defer func() {
			r := recover()
			require.NotNil(t, r)
			task.handleUnrecovered(r)
		}()
		task.Panic("unrecovered boom")
	}()
}
