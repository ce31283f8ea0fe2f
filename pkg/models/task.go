package models

import "time"

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusQueued indicates the task is waiting to be promoted.
	TaskStatusQueued TaskStatus = "queued"
	// TaskStatusActive indicates the task is being worked on.
	TaskStatusActive TaskStatus = "active"
	// TaskStatusDone indicates the task completed successfully.
	TaskStatusDone TaskStatus = "done"
	// TaskStatusInterrupted indicates work on the task was set aside.
	TaskStatusInterrupted TaskStatus = "interrupted"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusActive, TaskStatusDone, TaskStatusInterrupted:
		return true
	default:
		return false
	}
}

// Collection names the four durable partitions a task can live in.
// A task ID appears in at most one collection at any time.
type Collection string

const (
	CollectionQueued      Collection = "queued"
	CollectionActive      Collection = "active"
	CollectionDone        Collection = "done"
	CollectionInterrupted Collection = "interrupted"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{
	CollectionQueued,
	CollectionActive,
	CollectionDone,
	CollectionInterrupted,
}

// Valid returns true if the collection is a known value.
func (c Collection) Valid() bool {
	switch c {
	case CollectionQueued, CollectionActive, CollectionDone, CollectionInterrupted:
		return true
	default:
		return false
	}
}

// Todo is a single step within a task. Index values within one task are
// unique and contiguous from 0.
type Todo struct {
	// Index is the position within the parent task's sequence.
	Index int `json:"index"`
	// Text describes the step.
	Text string `json:"text"`
	// Done marks the step complete.
	Done bool `json:"done"`
}

// Task represents a unit of work in the system.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Description is the free-text description of the work.
	Description string `json:"description"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Todos is the ordered list of steps; order is execution order.
	Todos []Todo `json:"todos"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is refreshed on every mutation of this task.
	UpdatedAt time.Time `json:"updated_at"`
	// InterruptReason records why the task was interrupted, if it was.
	InterruptReason string `json:"interrupt_reason,omitempty"`
}

// AllTodosDone reports whether every todo is complete. A task with no
// todos never counts as complete; the predicate must not hold vacuously.
func (t *Task) AllTodosDone() bool {
	if len(t.Todos) == 0 {
		return false
	}
	for _, td := range t.Todos {
		if !td.Done {
			return false
		}
	}
	return true
}

// OpenTodos returns the number of todos not yet done.
func (t *Task) OpenTodos() int {
	open := 0
	for _, td := range t.Todos {
		if !td.Done {
			open++
		}
	}
	return open
}

// Reindex rewrites todo indexes so they are contiguous from 0.
// Called after a deletion to restore the index invariant.
func (t *Task) Reindex() {
	for i := range t.Todos {
		t.Todos[i].Index = i
	}
}

// Clone returns a deep copy of the task. Collections hand out copies so
// callers cannot mutate store-owned state in place.
func (t *Task) Clone() Task {
	c := *t
	c.Todos = make([]Todo, len(t.Todos))
	copy(c.Todos, t.Todos)
	return c
}
