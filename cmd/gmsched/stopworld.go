package main

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmsched/gmsched/internal/sched"
)

var stopworldCmd = &cobra.Command{
	Use:   "stopworld",
	Short: "Stop-the-world barrier demo",
	Long: `Spawns a batch of looping tasks, calls StopTheWorld, prints how far their
shared tick counter moved while stopped, then calls StartTheWorld and lets them finish.`,
	RunE: runStopworld,
}

func runStopworld(cmd *cobra.Command, args []string) error {
	s := sched.New(sched.Config{Gomaxprocs: 4})
	defer s.Close()

	var ticks int64
	var done sync.WaitGroup
	done.Add(6)

	for i := 0; i < 6; i++ {
		if _, err := s.Spawn(func(t *sched.Task) {
			defer done.Done()
			for j := 0; j < 20; j++ {
				atomic.AddInt64(&ticks, 1)
				t.Yield()
			}
		}, 0); err != nil {
			return err
		}
	}

	time.Sleep(5 * time.Millisecond)
	sched.StopTheWorld(s)
	before := atomic.LoadInt64(&ticks)
	time.Sleep(20 * time.Millisecond)
	after := atomic.LoadInt64(&ticks)
	fmt.Printf("ticks while stopped: %d -> %d (delta %d)\n", before, after, after-before)
	sched.StartTheWorld(s)

	done.Wait()
	fmt.Println("all tasks completed after StartTheWorld")
	return nil
}
