package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <task-id>",
	Short: "Move an interrupted task back to active with its progress intact",
	Args:  cobra.ExactArgs(1),
	RunE:  runResume,
}

func runResume(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	task, _, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}

	if err := a.eng.Resume(task.ID); err != nil {
		return err
	}

	fmt.Printf("%s Resumed %s\n", color.GreenString("✓"), shortID(task.ID))
	return nil
}
