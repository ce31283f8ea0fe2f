package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/ferry/pkg/models"
)

var createQueued bool

var createCmd = &cobra.Command{
	Use:   "create <description>",
	Short: "Create a task with generated todo steps",
	Long: `Create a task from a description. The description is scored for
complexity; complex tasks get Claude-generated steps (when configured),
simple tasks get template steps. The task lands in the active
collection unless --queue is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().BoolVar(&createQueued, "queue", false, "Create into the queued collection instead of active")
}

func runCreate(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	target := models.CollectionActive
	if createQueued {
		target = models.CollectionQueued
	}

	description := strings.Join(args, " ")
	task, err := a.mgr.CreateTask(cmd.Context(), description, target)
	if err != nil {
		return err
	}

	fmt.Printf("%s Created task %s in %s\n", color.GreenString("✓"), color.CyanString(shortID(task.ID)), target)
	for _, td := range task.Todos {
		fmt.Printf("  %d. %s\n", td.Index+1, td.Text)
	}
	return nil
}

// shortID trims a uuid down to a display prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
