package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listTodos bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List active tasks, newest first",
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listTodos, "todos", false, "Show the todo steps of each task")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	tasks, err := a.mgr.ListActive()
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		fmt.Println("No active tasks. Run 'ferry create <description>' to start.")
		return nil
	}

	for _, t := range tasks {
		done := 0
		for _, td := range t.Todos {
			if td.Done {
				done++
			}
		}
		fmt.Printf("%s [%d/%d] %s\n", color.CyanString(shortID(t.ID)), done, len(t.Todos), t.Description)

		if listTodos {
			for _, td := range t.Todos {
				mark := color.New(color.FgHiBlack).Sprint("○")
				if td.Done {
					mark = color.GreenString("●")
				}
				fmt.Printf("    %s %d. %s\n", mark, td.Index+1, td.Text)
			}
		}
	}
	return nil
}
