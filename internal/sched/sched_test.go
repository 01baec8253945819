package sched

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_SingleProc_FIFOOrder(t *testing.T) {
	s := New(Config{Gomaxprocs: 1})
	defer s.Close()

	var mu sync.Mutex
	var order []int

	const n = 5
	for i := 0; i < n; i++ {
		i := i
		_, err := s.Spawn(func(task *Task) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}, 0)
		require.NoError(t, err)
	}

	waitForExit(t, s, 2*time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, n)
	for i := 0; i < n; i++ {
		assert.Equal(t, i, order[i], "tasks must run in spawn order on a single proc")
	}
}

func TestScheduler_Parallelism_CountersStayConsistent(t *testing.T) {
	s := New(Config{Gomaxprocs: 4})
	defer s.Close()

	var running int32
	var maxObserved int32
	var wg sync.WaitGroup
	wg.Add(8)

	for i := 0; i < 8; i++ {
		_, err := s.Spawn(func(task *Task) {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxObserved)
				if n <= m || atomic.CompareAndSwapInt32(&maxObserved, m, n) {
					break
				}
			}
			atomic.AddInt32(&running, -1)
		}, 0)
		require.NoError(t, err)
	}

	wg.Wait()
	assert.LessOrEqual(t, maxObserved, int32(4), "observed parallelism must never exceed mcpumax")
}

func TestScheduler_TaskCount_ReflectsLiveTasks(t *testing.T) {
	s := New(Config{Gomaxprocs: 2})
	defer s.Close()

	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		_, err := s.Spawn(func(task *Task) { wg.Done() }, 0)
		require.NoError(t, err)
	}
	wg.Wait()
	waitForExit(t, s, 2*time.Second)
	assert.Equal(t, int32(0), s.TaskCount())
}

func TestScheduler_PinnedTaskNeverMigratesWorker(t *testing.T) {
	s := New(Config{Gomaxprocs: 4})
	defer s.Close()

	seen := make(map[*Worker]struct{})
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(1)

	_, err := s.Spawn(func(task *Task) {
		task.PinToThread()
		defer task.UnpinFromThread()
		for i := 0; i < 5; i++ {
			mu.Lock()
			seen[task.worker] = struct{}{}
			mu.Unlock()
			task.Yield()
		}
		wg.Done()
	}, 0)
	require.NoError(t, err)

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, seen, 1, "a pinned task must always be redispatched onto the same worker")
}

func TestScheduler_SyscallFastPath_TaskCompletesAndWaitReturns(t *testing.T) {
	s := New(Config{Gomaxprocs: 2})
	defer s.Close()

	// A second, always-runnable task keeps mcpu/grunning bookkeeping
	// honest without ever contending for the one slot the syscalling task
	// gives up and immediately reclaims.
	var wg sync.WaitGroup
	wg.Add(2)

	_, err := s.Spawn(func(task *Task) {
		defer wg.Done()
		task.EnterSyscall()
		task.ExitSyscall() // nothing else holds the freed slot: fast path
	}, 0)
	require.NoError(t, err)

	_, err = s.Spawn(func(task *Task) {
		defer wg.Done()
	}, 0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out: a task that returned via exit_syscall's fast path never completed")
	}

	select {
	case <-s.exitCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() would hang: gcount never reached 0 after a fast-path syscall return")
	}
}

func TestScheduler_SyscallSlowPath_RequeuesAndCompletes(t *testing.T) {
	s := New(Config{Gomaxprocs: 1})
	defer s.Close()

	var order []string
	var mu sync.Mutex
	record := func(label string) {
		mu.Lock()
		order = append(order, label)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)

	// With a single mcpu slot, the second task keeps it occupied while the
	// first is in its syscall, forcing exit_syscall's slow path (no slot
	// free) when the first task returns.
	blockerReady := make(chan struct{})
	releaseBlocker := make(chan struct{})

	_, err := s.Spawn(func(task *Task) {
		defer wg.Done()
		task.EnterSyscall()
		close(blockerReady)
		<-releaseBlocker
		task.ExitSyscall()
		record("blocker")
	}, 0)
	require.NoError(t, err)

	_, err = s.Spawn(func(task *Task) {
		defer wg.Done()
		<-blockerReady
		record("occupier")
		close(releaseBlocker)
	}, 0)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out: exit_syscall's slow path never redispatched the blocked task")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"occupier", "blocker"}, order)
}

func TestScheduler_StopTheWorld_HaltsProgressUntilStarted(t *testing.T) {
	s := New(Config{Gomaxprocs: 4})
	defer s.Close()

	var ticks int64
	var wg sync.WaitGroup
	const n = 6
	wg.Add(n)

	for i := 0; i < n; i++ {
		_, err := s.Spawn(func(task *Task) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				atomic.AddInt64(&ticks, 1)
				task.Yield()
			}
		}, 0)
		require.NoError(t, err)
	}

	time.Sleep(5 * time.Millisecond)
	StopTheWorld(s)

	before := atomic.LoadInt64(&ticks)
	time.Sleep(20 * time.Millisecond)
	after := atomic.LoadInt64(&ticks)
	assert.Equal(t, before, after, "no task may make progress while the world is stopped")

	StartTheWorld(s)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out: tasks never resumed after start_the_world")
	}
}

func TestScheduler_SetParallelism_ClampsToMax(t *testing.T) {
	s := New(Config{Gomaxprocs: 1, MaxGomaxprocs: 4})
	defer s.Close()

	old := s.SetParallelism(100)
	assert.Equal(t, int32(1), old)
	assert.Equal(t, int32(4), s.Parallelism())
}

// waitForExit polls TaskCount until it reaches zero, failing the test if
// that does not happen within timeout (a bounded poll, where Wait() would
// block forever).
func waitForExit(t *testing.T, s *Scheduler, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.TaskCount() == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for all tasks to exit")
}
