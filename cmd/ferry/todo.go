package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Manage the todo steps of a task",
}

var todoAddCmd = &cobra.Command{
	Use:   "add <task-id> <text>",
	Short: "Append a todo step to a task",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTodoAdd,
}

var todoDoneCmd = &cobra.Command{
	Use:   "done <task-id> <number>",
	Short: "Mark a todo step done",
	Long: `Mark a todo step done by its 1-based number as shown by 'ferry list'.
When the last open step of a task is marked done, the task itself
flips to done and the queue engine retires it on its next cycle.`,
	Args: cobra.ExactArgs(2),
	RunE: runTodoDone,
}

var todoRmCmd = &cobra.Command{
	Use:   "rm <task-id> <number>",
	Short: "Remove a todo step from a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTodoRm,
}

func init() {
	todoCmd.AddCommand(todoAddCmd)
	todoCmd.AddCommand(todoDoneCmd)
	todoCmd.AddCommand(todoRmCmd)
}

func runTodoAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	task, _, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}

	text := strings.Join(args[1:], " ")
	if err := a.mgr.AddTodo(task.ID, text); err != nil {
		return err
	}

	fmt.Printf("%s Added step to %s: %s\n", color.GreenString("✓"), shortID(task.ID), text)
	return nil
}

func runTodoDone(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	task, _, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}

	index, err := parseTodoNumber(args[1])
	if err != nil {
		return err
	}

	if err := a.mgr.CompleteTodo(task.ID, index); err != nil {
		return err
	}

	updated, _, err := a.mgr.Find(task.ID)
	if err != nil {
		return err
	}
	fmt.Printf("%s Step %s done on %s\n", color.GreenString("✓"), args[1], shortID(task.ID))
	if updated.AllTodosDone() {
		fmt.Printf("%s Task %s completed\n", color.GreenString("✓"), shortID(task.ID))
	}
	return nil
}

func runTodoRm(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	task, _, err := a.resolveTask(args[0])
	if err != nil {
		return err
	}

	index, err := parseTodoNumber(args[1])
	if err != nil {
		return err
	}

	if err := a.mgr.DeleteTodo(task.ID, index); err != nil {
		return err
	}

	fmt.Printf("%s Removed step %s from %s\n", color.GreenString("✓"), args[1], shortID(task.ID))
	return nil
}

// parseTodoNumber converts the 1-based display number to a 0-based
// todo index.
func parseTodoNumber(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid step number %q (want 1, 2, ...)", arg)
	}
	return n - 1, nil
}
