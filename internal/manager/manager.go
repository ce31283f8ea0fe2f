// Package manager is the CRUD surface over tasks and their todo steps.
// It owns the auto-completion rule (all steps done means the task is
// done) and computes cross-collection relocations as single atomic
// units against the store.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/ferry/internal/complexity"
	"github.com/ShayCichocki/ferry/internal/logging"
	"github.com/ShayCichocki/ferry/internal/store"
	"github.com/ShayCichocki/ferry/internal/todogen"
	"github.com/ShayCichocki/ferry/pkg/models"
)

var (
	// ErrTaskNotFound indicates the task ID resolves in no collection.
	ErrTaskNotFound = errors.New("task not found")
	// ErrTodoNotFound indicates the todo index is out of range.
	ErrTodoNotFound = errors.New("todo not found")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidTarget indicates a collection tasks cannot be created into.
	ErrInvalidTarget = errors.New("tasks can only be created into queued or active")
)

// Propagator regenerates derived views after a mutation. Its failures
// are logged and never propagated; the primary mutation has already
// succeeded by the time it runs.
type Propagator interface {
	Sync() error
}

// Manager coordinates task mutations. A single mutex serializes
// read-modify-write cycles so the foreground caller and the queue
// engine never interleave within one logical transaction.
type Manager struct {
	store      store.Store
	gen        *todogen.Generator
	propagator Propagator
	logger     *logging.DebugLogger

	mu sync.Mutex
}

// Option configures a Manager.
type Option func(*Manager)

// WithPropagator sets the consistency propagator invoked after every
// successful mutation.
func WithPropagator(p Propagator) Option {
	return func(m *Manager) { m.propagator = p }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(m *Manager) { m.logger = l }
}

// New creates a Manager over a store and todo generator.
func New(s store.Store, gen *todogen.Generator, opts ...Option) *Manager {
	m := &Manager{store: s, gen: gen}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateTask assigns an ID and timestamps, scores the description,
// generates initial todos, and persists the task into the requested
// collection (queued or active).
func (m *Manager) CreateTask(ctx context.Context, description string, target models.Collection) (models.Task, error) {
	if target != models.CollectionQueued && target != models.CollectionActive {
		return models.Task{}, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}

	score := complexity.Score(description)
	steps := m.gen.Generate(ctx, description, score)

	now := time.Now()
	task := models.Task{
		ID:          uuid.New().String(),
		Description: description,
		Status:      statusFor(target),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, text := range steps {
		task.Todos = append(task.Todos, models.Todo{Index: i, Text: text})
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tasks, err := m.store.Load(target)
	if err != nil {
		return models.Task{}, err
	}
	tasks = append(tasks, task)
	if err := m.store.Save(target, tasks); err != nil {
		return models.Task{}, err
	}

	m.logger.Log("created task %s (score %d, %d todos) in %s", task.ID, score, len(task.Todos), target)
	m.propagate()
	return task, nil
}

// AddTodo appends a step with the next contiguous index.
func (m *Manager) AddTodo(taskID, text string) error {
	return m.mutateTask(taskID, func(t *models.Task) error {
		t.Todos = append(t.Todos, models.Todo{Index: len(t.Todos), Text: text})
		// A done task gains an open todo and is no longer complete.
		if t.Status == models.TaskStatusDone {
			t.Status = models.TaskStatusActive
		}
		return nil
	})
}

// CompleteTodo marks a step done. If that makes every todo of the task
// done, the task status flips to done in the same write.
func (m *Manager) CompleteTodo(taskID string, index int) error {
	return m.mutateTask(taskID, func(t *models.Task) error {
		if index < 0 || index >= len(t.Todos) {
			return fmt.Errorf("%w: task %s has no todo %d", ErrTodoNotFound, taskID, index)
		}
		t.Todos[index].Done = true
		return nil
	})
}

// DeleteTodo removes a step and re-indexes the remaining ones
// contiguously. Removing the last open todo triggers auto-completion;
// removing the final todo entirely does not (an empty task is never
// done).
func (m *Manager) DeleteTodo(taskID string, index int) error {
	return m.mutateTask(taskID, func(t *models.Task) error {
		if index < 0 || index >= len(t.Todos) {
			return fmt.Errorf("%w: task %s has no todo %d", ErrTodoNotFound, taskID, index)
		}
		t.Todos = append(t.Todos[:index], t.Todos[index+1:]...)
		t.Reindex()
		return nil
	})
}

// ListActive returns the active collection sorted by creation time
// descending (newest work surfaces first), excluding done tasks that
// the engine has not yet relocated.
func (m *Manager) ListActive() ([]models.Task, error) {
	tasks, err := m.store.Load(models.CollectionActive)
	if err != nil {
		return nil, err
	}

	listed := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == models.TaskStatusDone {
			continue
		}
		listed = append(listed, t)
	}
	sort.SliceStable(listed, func(i, j int) bool {
		return listed[i].CreatedAt.After(listed[j].CreatedAt)
	})
	return listed, nil
}

// SetStatus overrides a task's status in place. It does not relocate
// the task, the queue engine does that. Done is not settable here:
// completion is derived from the todo predicate, never asserted
// directly.
func (m *Manager) SetStatus(taskID string, status models.TaskStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	if status == models.TaskStatusDone {
		return fmt.Errorf("%w: done is derived from todo completion", ErrInvalidStatus)
	}
	return m.mutateTask(taskID, func(t *models.Task) error {
		t.Status = status
		return nil
	})
}

// Find returns a task and the collection it currently lives in.
func (m *Manager) Find(taskID string) (models.Task, models.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.findLocked(taskID)
}

// Relocate moves a task between collections as one atomic unit,
// applying mutate to the moved task (mutate may be nil). Both the
// source and destination collections are persisted together; no
// observer sees the task in neither or both.
func (m *Manager) Relocate(taskID string, from, to models.Collection, mutate func(*models.Task)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, err := m.store.Load(from)
	if err != nil {
		return err
	}

	idx := -1
	for i := range src {
		if src[i].ID == taskID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s not in %s", ErrTaskNotFound, taskID, from)
	}

	dst, err := m.store.Load(to)
	if err != nil {
		return err
	}

	task := src[idx]
	src = append(src[:idx], src[idx+1:]...)
	if mutate != nil {
		mutate(&task)
	}
	task.UpdatedAt = time.Now()
	dst = append(dst, task)

	batch := map[models.Collection][]models.Task{
		from: src,
		to:   dst,
	}
	if err := m.store.SaveAll(batch); err != nil {
		return err
	}

	m.logger.Log("relocated task %s: %s -> %s", taskID, from, to)
	m.propagate()
	return nil
}

// PurgeAged removes done tasks older than the retention window.
func (m *Manager) PurgeAged(retentionDays int) (int, error) {
	m.mu.Lock()
	removed, err := m.store.PurgeAged(retentionDays)
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		m.logger.Log("purged %d aged done tasks", removed)
		m.propagate()
	}
	return removed, nil
}

// mutateTask locates a task in whichever collection holds it, applies
// the mutation, re-evaluates the auto-completion predicate, refreshes
// the updated timestamp, and persists the collection.
func (m *Manager) mutateTask(taskID string, mutate func(*models.Task) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range models.Collections {
		tasks, err := m.store.Load(c)
		if err != nil {
			return err
		}
		for i := range tasks {
			if tasks[i].ID != taskID {
				continue
			}

			if err := mutate(&tasks[i]); err != nil {
				return err
			}

			// Auto-completion: checked on every mutation that could make
			// the all-done predicate newly true. AllTodosDone is never
			// true for an empty todo list.
			if tasks[i].AllTodosDone() {
				tasks[i].Status = models.TaskStatusDone
			}
			tasks[i].UpdatedAt = time.Now()

			// A task in the done collection that is no longer done has
			// been reopened; the engine only retires work, so it moves
			// back to active here, in the same write.
			if c == models.CollectionDone && tasks[i].Status != models.TaskStatusDone {
				return m.reopenLocked(tasks, i)
			}

			if err := m.store.Save(c, tasks); err != nil {
				return err
			}

			m.propagate()
			return nil
		}
	}

	return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}

// reopenLocked moves a reopened task out of the done collection into
// the collection matching its new status, as one atomic unit. Caller
// holds the mutex; done is the done collection with the reopened task
// at index i.
func (m *Manager) reopenLocked(done []models.Task, i int) error {
	task := done[i]
	remaining := append(done[:i], done[i+1:]...)

	dest := collectionFor(task.Status)
	dst, err := m.store.Load(dest)
	if err != nil {
		return err
	}
	dst = append(dst, task)

	batch := map[models.Collection][]models.Task{
		models.CollectionDone: remaining,
		dest:                  dst,
	}
	if err := m.store.SaveAll(batch); err != nil {
		return err
	}

	m.logger.Log("reopened task %s: done -> %s", task.ID, dest)
	m.propagate()
	return nil
}

// collectionFor maps a non-done status to its home collection.
func collectionFor(s models.TaskStatus) models.Collection {
	switch s {
	case models.TaskStatusQueued:
		return models.CollectionQueued
	case models.TaskStatusInterrupted:
		return models.CollectionInterrupted
	default:
		return models.CollectionActive
	}
}

// findLocked searches every collection for the task. Caller holds the
// mutex.
func (m *Manager) findLocked(taskID string) (models.Task, models.Collection, error) {
	for _, c := range models.Collections {
		tasks, err := m.store.Load(c)
		if err != nil {
			return models.Task{}, "", err
		}
		for i := range tasks {
			if tasks[i].ID == taskID {
				return tasks[i].Clone(), c, nil
			}
		}
	}
	return models.Task{}, "", fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
}

// propagate regenerates derived views. Failures degrade to stale side
// files; they never fail the mutation that triggered them.
func (m *Manager) propagate() {
	if m.propagator == nil {
		return
	}
	if err := m.propagator.Sync(); err != nil {
		m.logger.Log("sync failed (derived views stale): %v", err)
	}
}

// statusFor maps a creation target collection to the matching status.
func statusFor(c models.Collection) models.TaskStatus {
	if c == models.CollectionQueued {
		return models.TaskStatusQueued
	}
	return models.TaskStatusActive
}
