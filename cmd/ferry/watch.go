package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/ferry/internal/tui"
)

var watchTUI bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run the queue engine in the foreground",
	Long: `Run the background queue engine: promote queued tasks into active
capacity, retire completed tasks into done, and react to external edits
of the data files. Runs until interrupted.

With --tui, also show a live view of collection counts and active
tasks.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchTUI, "tui", false, "Show the live terminal view")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchTUI {
		go func() {
			if err := a.eng.Run(ctx); err != nil {
				a.logger.Log("queue engine exited: %v", err)
			}
		}()
		return tui.Run(a.mgr, a.store, a.cfg.WatchInterval)
	}

	fmt.Println("Queue engine running. Press Ctrl-C to stop.")
	return a.eng.Run(ctx)
}
