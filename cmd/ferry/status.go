package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/ferry/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection counts and the resumption marker",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println(color.New(color.Bold).Sprint("Collections"))
	total := 0
	for _, c := range models.Collections {
		tasks, err := a.store.Load(c)
		if err != nil {
			return err
		}
		total += len(tasks)
		fmt.Printf("  %-12s %d\n", c, len(tasks))
	}
	if total == 0 {
		fmt.Println("\nNo tasks yet. Run 'ferry create <description>' to start.")
		return nil
	}

	pos, ok, err := a.tracker.LastPosition()
	if err != nil {
		return err
	}
	if ok {
		fmt.Println()
		fmt.Println(color.New(color.Bold).Sprint("Last position"))
		fmt.Printf("  task %s", color.CyanString(shortID(pos.TaskID)))
		if pos.Locator != "" {
			fmt.Printf(" (%s)", pos.Locator)
		}
		fmt.Printf(", recorded %s\n", pos.RecordedAt.Format("2006-01-02 15:04"))
	}

	return nil
}
