package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/ferry/internal/manager"
	"github.com/ShayCichocki/ferry/internal/session"
	"github.com/ShayCichocki/ferry/internal/store"
	"github.com/ShayCichocki/ferry/internal/todogen"
	"github.com/ShayCichocki/ferry/pkg/models"
)

func setupEngine(t *testing.T, cfg Config) (*Engine, *manager.Manager, *store.FileStore) {
	t.Helper()
	dir := t.TempDir()
	fs, err := store.NewFileStore(dir, store.DefaultRetentionDays)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	mgr := manager.New(fs, todogen.New(nil))
	tracker := session.NewTracker(dir)
	return New(mgr, fs, tracker, cfg, WithWatchDir(dir)), mgr, fs
}

func seedTask(t *testing.T, fs *store.FileStore, c models.Collection, id string, status models.TaskStatus, created time.Time) {
	t.Helper()
	tasks, err := fs.Load(c)
	if err != nil {
		t.Fatalf("Load %s failed: %v", c, err)
	}
	tasks = append(tasks, models.Task{
		ID:        id,
		Status:    status,
		Todos:     []models.Todo{{Index: 0, Text: "step"}},
		CreatedAt: created,
		UpdatedAt: created,
	})
	if err := fs.Save(c, tasks); err != nil {
		t.Fatalf("Save %s failed: %v", c, err)
	}
}

func ids(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.ID
	}
	return out
}

func TestReconcileRelocatesCompleted(t *testing.T) {
	eng, mgr, fs := setupEngine(t, Config{})

	task, err := mgr.CreateTask(context.Background(), "research the options", models.CollectionActive)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	// Complete every todo; the manager flips status but leaves the task
	// in active for the engine to move.
	for i := range task.Todos {
		if err := mgr.CompleteTodo(task.ID, i); err != nil {
			t.Fatalf("CompleteTodo(%d) failed: %v", i, err)
		}
	}

	eng.Reconcile()

	active, _ := fs.Load(models.CollectionActive)
	done, _ := fs.Load(models.CollectionDone)
	if len(active) != 0 {
		t.Errorf("active still holds %v after reconcile", ids(active))
	}
	if len(done) != 1 || done[0].ID != task.ID {
		t.Errorf("done = %v, want the completed task", ids(done))
	}
}

func TestReconcileIdempotent(t *testing.T) {
	eng, _, fs := setupEngine(t, Config{})

	now := time.Now()
	seedTask(t, fs, models.CollectionActive, "finished", models.TaskStatusDone, now)
	seedTask(t, fs, models.CollectionQueued, "waiting", models.TaskStatusQueued, now)

	eng.Reconcile()
	eng.Reconcile()
	eng.Reconcile()

	done, _ := fs.Load(models.CollectionDone)
	active, _ := fs.Load(models.CollectionActive)
	queued, _ := fs.Load(models.CollectionQueued)
	if len(done) != 1 {
		t.Errorf("done has %d tasks after repeated reconcile, want 1", len(done))
	}
	if len(queued) != 0 {
		t.Errorf("queued not drained: %v", ids(queued))
	}
	// Unbounded capacity: the queued task promoted exactly once.
	if len(active) != 1 || active[0].ID != "waiting" {
		t.Errorf("active = %v, want just the promoted task", ids(active))
	}
	if active[0].Status != models.TaskStatusActive {
		t.Errorf("promoted task status = %q, want active", active[0].Status)
	}
}

func TestPromotionRespectsCapacity(t *testing.T) {
	eng, _, fs := setupEngine(t, Config{ActiveCapacity: 2})

	now := time.Now()
	seedTask(t, fs, models.CollectionActive, "busy", models.TaskStatusActive, now)
	seedTask(t, fs, models.CollectionQueued, "first", models.TaskStatusQueued, now.Add(-2*time.Hour))
	seedTask(t, fs, models.CollectionQueued, "second", models.TaskStatusQueued, now.Add(-time.Hour))

	eng.Reconcile()

	active, _ := fs.Load(models.CollectionActive)
	queued, _ := fs.Load(models.CollectionQueued)
	if len(active) != 2 {
		t.Fatalf("active = %v, want 2 tasks at capacity", ids(active))
	}
	// FIFO default: the oldest queued task promotes first.
	if active[1].ID != "first" {
		t.Errorf("promoted %s, want the FIFO head %q", active[1].ID, "first")
	}
	if len(queued) != 1 || queued[0].ID != "second" {
		t.Errorf("queued = %v, want the remaining task", ids(queued))
	}
}

func TestPromotionNewestFirst(t *testing.T) {
	eng, _, fs := setupEngine(t, Config{ActiveCapacity: 1, PromotionOrder: PromoteNewest})

	now := time.Now()
	seedTask(t, fs, models.CollectionQueued, "older", models.TaskStatusQueued, now.Add(-time.Hour))
	seedTask(t, fs, models.CollectionQueued, "newer", models.TaskStatusQueued, now)

	eng.Reconcile()

	active, _ := fs.Load(models.CollectionActive)
	if len(active) != 1 || active[0].ID != "newer" {
		t.Errorf("active = %v, want the newest queued task", ids(active))
	}
}

func TestPromotionSkipsWhenActiveFull(t *testing.T) {
	eng, _, fs := setupEngine(t, Config{ActiveCapacity: 1})

	now := time.Now()
	seedTask(t, fs, models.CollectionActive, "busy", models.TaskStatusActive, now)
	seedTask(t, fs, models.CollectionQueued, "waiting", models.TaskStatusQueued, now)

	eng.Reconcile()

	queued, _ := fs.Load(models.CollectionQueued)
	if len(queued) != 1 {
		t.Errorf("queued = %v, want the task held back", ids(queued))
	}
}

func TestInterruptAndResume(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFileStore(dir, store.DefaultRetentionDays)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	mgr := manager.New(fs, todogen.New(nil))
	tracker := session.NewTracker(dir)
	eng := New(mgr, fs, tracker, Config{})

	task, err := mgr.CreateTask(context.Background(), "long running work", models.CollectionActive)
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	// Record some progress before the interruption.
	if err := mgr.CompleteTodo(task.ID, 0); err != nil {
		t.Fatalf("CompleteTodo failed: %v", err)
	}

	if err := eng.Interrupt(task.ID, "urgent hotfix"); err != nil {
		t.Fatalf("Interrupt failed: %v", err)
	}

	active, _ := fs.Load(models.CollectionActive)
	interrupted, _ := fs.Load(models.CollectionInterrupted)
	if len(active) != 0 {
		t.Errorf("active still holds %v after interrupt", ids(active))
	}
	if len(interrupted) != 1 {
		t.Fatalf("interrupted = %v, want the task", ids(interrupted))
	}
	if interrupted[0].Status != models.TaskStatusInterrupted {
		t.Errorf("Status = %q, want interrupted", interrupted[0].Status)
	}
	if interrupted[0].InterruptReason != "urgent hotfix" {
		t.Errorf("InterruptReason = %q, want the given reason", interrupted[0].InterruptReason)
	}

	pos, ok, err := tracker.LastPosition()
	if err != nil || !ok {
		t.Fatalf("LastPosition = (%v, %v, %v), want a recorded marker", pos, ok, err)
	}
	if pos.TaskID != task.ID || pos.Locator != "urgent hotfix" {
		t.Errorf("marker = %+v, want task ID and reason", pos)
	}

	if err := eng.Resume(task.ID); err != nil {
		t.Fatalf("Resume failed: %v", err)
	}

	active, _ = fs.Load(models.CollectionActive)
	interrupted, _ = fs.Load(models.CollectionInterrupted)
	if len(interrupted) != 0 {
		t.Errorf("interrupted still holds %v after resume", ids(interrupted))
	}
	if len(active) != 1 {
		t.Fatalf("active = %v, want the resumed task", ids(active))
	}
	got := active[0]
	if got.Status != models.TaskStatusActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if got.InterruptReason != "" {
		t.Errorf("InterruptReason = %q, want cleared", got.InterruptReason)
	}
	// Todo progress survives the round trip.
	if !got.Todos[0].Done {
		t.Error("todo progress lost across interrupt/resume")
	}

	if _, ok, _ := tracker.LastPosition(); ok {
		t.Error("resumption marker not cleared after resume")
	}
}

func TestInterruptUnknownTask(t *testing.T) {
	eng, _, _ := setupEngine(t, Config{})

	if err := eng.Interrupt("ghost", "reason"); !errors.Is(err, manager.ErrTaskNotFound) {
		t.Errorf("Interrupt unknown task error = %v, want ErrTaskNotFound", err)
	}
}

func TestResumeUnknownTask(t *testing.T) {
	eng, _, _ := setupEngine(t, Config{})

	if err := eng.Resume("ghost"); !errors.Is(err, manager.ErrTaskNotFound) {
		t.Errorf("Resume unknown task error = %v, want ErrTaskNotFound", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	eng, _, _ := setupEngine(t, Config{WatchInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	doneCh := make(chan error, 1)
	go func() { doneCh <- eng.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-doneCh:
		if err != nil {
			t.Errorf("Run returned %v on cancel, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRunPicksUpExternalChanges(t *testing.T) {
	eng, _, fs := setupEngine(t, Config{WatchInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go eng.Run(ctx)

	// External writer drops a completed task into active, the way a
	// second process sharing the data directory would.
	seedTask(t, fs, models.CollectionActive, "external", models.TaskStatusDone, time.Now())

	deadline := time.After(2 * time.Second)
	for {
		done, _ := fs.Load(models.CollectionDone)
		if len(done) == 1 && done[0].ID == "external" {
			return
		}
		select {
		case <-deadline:
			t.Fatal("engine never relocated the externally completed task")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestRelevantEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"collection write", fsnotify.Event{Name: "active.json", Op: fsnotify.Write}, true},
		{"collection rename", fsnotify.Event{Name: "queued.json", Op: fsnotify.Rename}, true},
		{"temp file", fsnotify.Event{Name: "active-12345.tmp", Op: fsnotify.Write}, false},
		{"backup file", fsnotify.Event{Name: "active.json.bak", Op: fsnotify.Write}, false},
		{"chmod only", fsnotify.Event{Name: "active.json", Op: fsnotify.Chmod}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := relevantEvent(tt.ev); got != tt.want {
				t.Errorf("relevantEvent(%v) = %v, want %v", tt.ev, got, tt.want)
			}
		})
	}
}
