package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ferry",
	Short: "Task Lifecycle & Queue Management Engine",
	Long: `Ferry tracks tasks through four collections (queued, active, done,
interrupted), breaks each task into todo steps scored by complexity,
and runs a background queue engine that promotes queued work, retires
completed work, and reacts to external edits of the shared data files.

Core capabilities:
- Creates tasks with generated todo steps (template or Claude-backed)
- Auto-completes a task the moment its last todo is marked done
- Promotes queued tasks into active capacity (FIFO or newest-first)
- Interrupts and resumes work with a recorded resumption marker
- Purges done tasks past the retention window`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(todoCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(interruptCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
