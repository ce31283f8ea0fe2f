package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var interruptCmd = &cobra.Command{
	Use:   "interrupt <task-id> [reason]",
	Short: "Move an active task to interrupted and record where you left off",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runInterrupt,
}

func runInterrupt(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	task, _, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}

	reason := strings.Join(args[1:], " ")
	if err := a.eng.Interrupt(task.ID, reason); err != nil {
		return err
	}

	fmt.Printf("%s Interrupted %s", color.YellowString("⚠"), shortID(task.ID))
	if reason != "" {
		fmt.Printf(" (%s)", reason)
	}
	fmt.Println()
	return nil
}
