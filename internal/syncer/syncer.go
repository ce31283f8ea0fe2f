// Package syncer keeps derived, human-readable snapshots of the task
// store in agreement with the store itself. It regenerates the side
// files after every mutation and can verify that they still match.
//
// Sync failures are never fatal to the mutation that triggered them:
// derived views go stale, the store stays correct.
package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/ferry/internal/store"
	"github.com/ShayCichocki/ferry/pkg/models"
)

// Side file names inside the data directory.
const (
	StatusFile   = "status.md"
	SnapshotFile = "session.yaml"
)

// Snapshot is the machine-readable session-state side file.
type Snapshot struct {
	// GeneratedAt is the newest task update the snapshot reflects, not
	// the wall-clock time it was written. Re-syncing an unchanged store
	// therefore produces identical bytes.
	GeneratedAt time.Time `yaml:"generated_at"`
	// CurrentTask is the newest non-done active task, if any.
	CurrentTask string `yaml:"current_task,omitempty"`
	// Counts maps collection name to task count.
	Counts map[string]int `yaml:"counts"`
}

// Syncer regenerates the derived side files.
type Syncer struct {
	store store.Store
	dir   string
}

// New creates a Syncer writing side files under dir.
func New(s store.Store, dir string) *Syncer {
	return &Syncer{store: s, dir: dir}
}

// Sync recomputes and persists the side files. Safe to call
// redundantly; an unchanged store produces unchanged files.
func (s *Syncer) Sync() error {
	snap, active, err := s.snapshot()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create sync directory: %w", err)
	}

	data, err := yaml.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := writeAtomic(filepath.Join(s.dir, SnapshotFile), data); err != nil {
		return err
	}

	return writeAtomic(filepath.Join(s.dir, StatusFile), []byte(renderStatus(snap, active)))
}

// Verify reports disagreements between the persisted snapshot and the
// store. An absent snapshot (never synced) verifies clean.
func (s *Syncer) Verify() ([]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, SnapshotFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	var persisted Snapshot
	if err := yaml.Unmarshal(data, &persisted); err != nil {
		return []string{"snapshot file is unreadable"}, nil
	}

	current, _, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	var mismatches []string
	if persisted.CurrentTask != current.CurrentTask {
		mismatches = append(mismatches, fmt.Sprintf(
			"current task: snapshot %q, store %q", persisted.CurrentTask, current.CurrentTask))
	}
	for _, c := range models.Collections {
		if persisted.Counts[string(c)] != current.Counts[string(c)] {
			mismatches = append(mismatches, fmt.Sprintf(
				"%s count: snapshot %d, store %d", c, persisted.Counts[string(c)], current.Counts[string(c)]))
		}
	}
	if !persisted.GeneratedAt.Equal(current.GeneratedAt) {
		mismatches = append(mismatches, fmt.Sprintf(
			"timestamp: snapshot %s, store %s",
			persisted.GeneratedAt.Format(time.RFC3339),
			current.GeneratedAt.Format(time.RFC3339)))
	}
	return mismatches, nil
}

// snapshot derives the current snapshot and the active task list from
// the store.
func (s *Syncer) snapshot() (Snapshot, []models.Task, error) {
	snap := Snapshot{Counts: make(map[string]int)}
	var active []models.Task

	for _, c := range models.Collections {
		tasks, err := s.store.Load(c)
		if err != nil {
			return Snapshot{}, nil, fmt.Errorf("load %s: %w", c, err)
		}
		snap.Counts[string(c)] = len(tasks)
		for _, t := range tasks {
			if t.UpdatedAt.After(snap.GeneratedAt) {
				snap.GeneratedAt = t.UpdatedAt
			}
		}
		if c == models.CollectionActive {
			active = tasks
		}
	}

	// Current task: newest non-done active task.
	sorted := make([]models.Task, len(active))
	copy(sorted, active)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	for _, t := range sorted {
		if t.Status != models.TaskStatusDone {
			snap.CurrentTask = t.ID
			break
		}
	}

	return snap, active, nil
}

// renderStatus formats the human-readable status summary.
func renderStatus(snap Snapshot, active []models.Task) string {
	var b strings.Builder
	b.WriteString("# Ferry Status\n\n")

	if snap.CurrentTask != "" {
		fmt.Fprintf(&b, "Current task: %s\n\n", snap.CurrentTask)
	} else {
		b.WriteString("No current task.\n\n")
	}

	b.WriteString("## Collections\n\n")
	for _, c := range models.Collections {
		fmt.Fprintf(&b, "- %s: %d\n", c, snap.Counts[string(c)])
	}

	if len(active) > 0 {
		b.WriteString("\n## Active\n\n")
		for _, t := range active {
			open := t.OpenTodos()
			fmt.Fprintf(&b, "- [%s] %s (%d/%d todos done)\n",
				t.ID, t.Description, len(t.Todos)-open, len(t.Todos))
		}
	}

	return b.String()
}

// writeAtomic writes a side file via temp-then-rename so readers never
// see a partial file.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", filepath.Base(path), err)
	}
	return nil
}
