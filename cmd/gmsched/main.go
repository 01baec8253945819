// Command gmsched runs end-to-end demonstrations of the gmsched task
// scheduler: FIFO ordering, parallel dispatch, syscall coordination,
// stop-the-world, and panic/defer unwinding.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "gmsched",
	Short:   "Demonstrations of the gmsched G/M task scheduler",
	Version: version,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(fifoCmd)
	rootCmd.AddCommand(parallelCmd)
	rootCmd.AddCommand(syscallCmd)
	rootCmd.AddCommand(stopworldCmd)
	rootCmd.AddCommand(panicCmd)
	rootCmd.AddCommand(deferCmd)
	rootCmd.AddCommand(monitorCmd)
}
