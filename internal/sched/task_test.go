package sched

import (
	"testing"

	"github.com/gmsched/gmsched/internal/obs"
	"github.com/stretchr/testify/assert"
)

func newTestTask() *Task {
	return &Task{GoID: 1, obs: obs.New()}
}

func TestLegalTransition_TableMatchesStateMachine(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{Idle, Waiting, true},
		{Waiting, Runnable, true},
		{Runnable, Running, true},
		{Running, Runnable, true},
		{Running, Syscall, true},
		{Running, Moribund, true},
		{Syscall, Runnable, true},
		{Syscall, Running, true},
		{Moribund, Dead, true},
		{Dead, Waiting, true},
		{Idle, Running, false},
		{Runnable, Syscall, false},
		{Moribund, Running, false},
		{Dead, Runnable, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, legalTransition(c.from, c.to), "%s -> %s", c.from, c.to)
	}
}

func TestTask_SetStatus_IllegalTransitionThrows(t *testing.T) {
	task := newTestTask()
	task.status.Store(int32(Idle))
	assert.Panics(t, func() { task.setStatus(Running) })
}

func TestTask_SetStatus_LegalTransitionSucceeds(t *testing.T) {
	task := newTestTask()
	task.status.Store(int32(Idle))
	assert.NotPanics(t, func() { task.setStatus(Waiting) })
	assert.Equal(t, Waiting, task.loadStatus())
}

func TestTask_IsPinned(t *testing.T) {
	task := newTestTask()
	assert.False(t, task.IsPinned())
	task.lockedm = &Worker{}
	assert.True(t, task.IsPinned())
}
