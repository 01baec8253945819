package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmsched/gmsched/internal/sched"
)

var panicCmd = &cobra.Command{
	Use:   "panic",
	Short: "Panic/recover demo",
	Long: `Spawns one task that panics and recovers, and a second that panics without
recovering, printing the panic chain the scheduler prints for the unrecovered case.`,
	RunE: runPanic,
}

func runPanic(cmd *cobra.Command, args []string) error {
	s := sched.New(sched.Config{Gomaxprocs: 1})
	defer s.Close()

	done := make(chan struct{})
	if _, err := s.Spawn(func(t *sched.Task) {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				fmt.Printf("recovered: %v\n", t.Recover(r))
			}
		}()
		t.Panic("expected demo panic")
	}, 0); err != nil {
		return err
	}
	<-done

	fmt.Println("a second task will now panic without recovering and abort the process")
	if _, err := s.Spawn(func(t *sched.Task) {
		t.Panic("unrecovered demo panic")
	}, 0); err != nil {
		return err
	}

	s.Wait()
	return nil
}
