package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmsched/gmsched/internal/sched"
)

var fifoCmd = &cobra.Command{
	Use:   "fifo",
	Short: "Single-worker FIFO ordering demo",
	Long: `Spawns several tasks with gomaxprocs=1 and prints the order they ran in,
demonstrating that a single-proc scheduler dispatches strictly in spawn order.`,
	RunE: runFIFO,
}

var fifoCount int

func init() {
	fifoCmd.Flags().IntVar(&fifoCount, "count", 8, "number of tasks to spawn")
}

func runFIFO(cmd *cobra.Command, args []string) error {
	s := sched.New(sched.Config{Gomaxprocs: 1})
	defer s.Close()

	var mu sync.Mutex
	var order []int

	for i := 0; i < fifoCount; i++ {
		i := i
		if _, err := s.Spawn(func(t *sched.Task) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}, 0); err != nil {
			return err
		}
	}

	for s.TaskCount() > 0 {
		time.Sleep(time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	fmt.Println("dispatch order:", order)
	return nil
}
