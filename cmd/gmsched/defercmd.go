package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gmsched/gmsched/internal/sched"
)

var deferCmd = &cobra.Command{
	Use:   "defer",
	Short: "Deferred-cleanup LIFO ordering demo",
	Long:  `Spawns a task that registers several deferred actions and prints the LIFO order they ran in.`,
	RunE:  runDefer,
}

func runDefer(cmd *cobra.Command, args []string) error {
	s := sched.New(sched.Config{Gomaxprocs: 1})
	defer s.Close()

	done := make(chan struct{})
	if _, err := s.Spawn(func(t *sched.Task) {
		defer close(done)
		for _, label := range []string{"open-connection", "begin-transaction", "acquire-lock"} {
			label := label
			cleanup := t.Defer(label, func() { fmt.Println("cleanup:", label) })
			defer cleanup()
		}
		fmt.Println("task body running")
	}, 0); err != nil {
		return err
	}
	<-done
	return nil
}
