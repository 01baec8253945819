package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmsched/gmsched/internal/sched"
)

var parallelCmd = &cobra.Command{
	Use:   "parallel",
	Short: "Bounded-parallelism demo",
	Long: `Spawns a batch of busy tasks under a fixed parallelism ceiling and reports
the maximum number observed running concurrently, demonstrating that mcpu never
exceeds mcpumax.`,
	RunE: runParallel,
}

var (
	parallelProcs int
	parallelTasks int
)

func init() {
	parallelCmd.Flags().IntVar(&parallelProcs, "procs", 4, "parallelism ceiling (gomaxprocs)")
	parallelCmd.Flags().IntVar(&parallelTasks, "tasks", 32, "number of tasks to spawn")
}

func runParallel(cmd *cobra.Command, args []string) error {
	s := sched.New(sched.Config{Gomaxprocs: int32(parallelProcs)})
	defer s.Close()

	var running, maxObserved int32
	var wg sync.WaitGroup
	wg.Add(parallelTasks)

	for i := 0; i < parallelTasks; i++ {
		if _, err := s.Spawn(func(t *sched.Task) {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxObserved)
				if n <= m || atomic.CompareAndSwapInt32(&maxObserved, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&running, -1)
		}, 0); err != nil {
			return err
		}
	}

	wg.Wait()
	fmt.Printf("ceiling=%d max concurrent observed=%d\n", parallelProcs, maxObserved)
	return nil
}
