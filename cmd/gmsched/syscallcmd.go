package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/gmsched/gmsched/internal/sched"
)

var syscallCmd = &cobra.Command{
	Use:   "syscall",
	Short: "Syscall-coordination demo",
	Long: `Spawns one task that blocks for a while inside EnterSyscall/ExitSyscall
alongside several compute-bound tasks, demonstrating that the blocking task does
not hold up the others — its mcpu slot is freed for the duration of the call.`,
	RunE: runSyscall,
}

func runSyscall(cmd *cobra.Command, args []string) error {
	s := sched.New(sched.Config{Gomaxprocs: 2})
	defer s.Close()

	var mu sync.Mutex
	var log []string

	record := func(msg string) {
		mu.Lock()
		log = append(log, msg)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(3)

	if _, err := s.Spawn(func(t *sched.Task) {
		defer wg.Done()
		record("blocker: entering syscall")
		t.EnterSyscall()
		time.Sleep(50 * time.Millisecond)
		t.ExitSyscall()
		record("blocker: returned from syscall")
	}, 0); err != nil {
		return err
	}

	for i := 0; i < 2; i++ {
		i := i
		if _, err := s.Spawn(func(t *sched.Task) {
			defer wg.Done()
			record(fmt.Sprintf("compute-%d: ran while blocker was syscalling", i))
		}, 0); err != nil {
			return err
		}
	}

	wg.Wait()
	mu.Lock()
	defer mu.Unlock()
	for _, line := range log {
		fmt.Println(line)
	}
	return nil
}
