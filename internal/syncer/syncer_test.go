package syncer

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ShayCichocki/ferry/internal/store"
	"github.com/ShayCichocki/ferry/pkg/models"
)

func setupSyncer(t *testing.T) (*Syncer, *store.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := store.NewFileStore(dir, store.DefaultRetentionDays)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	return New(fs, dir), fs, dir
}

func syncTask(id string, created time.Time) models.Task {
	return models.Task{
		ID:          id,
		Description: "work for " + id,
		Status:      models.TaskStatusActive,
		Todos:       []models.Todo{{Index: 0, Text: "step", Done: false}},
		CreatedAt:   created,
		UpdatedAt:   created,
	}
}

func TestSyncWritesSideFiles(t *testing.T) {
	s, fs, dir := setupSyncer(t)

	now := time.Now().UTC()
	if err := fs.Save(models.CollectionActive, []models.Task{syncTask("t1", now)}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	status, err := os.ReadFile(filepath.Join(dir, StatusFile))
	if err != nil {
		t.Fatalf("read status file: %v", err)
	}
	if !strings.Contains(string(status), "t1") {
		t.Errorf("status file does not mention the active task:\n%s", status)
	}

	if _, err := os.Stat(filepath.Join(dir, SnapshotFile)); err != nil {
		t.Errorf("snapshot file missing: %v", err)
	}
}

func TestSyncRedundantCallsAreStable(t *testing.T) {
	s, fs, dir := setupSyncer(t)

	now := time.Now().UTC()
	if err := fs.Save(models.CollectionActive, []models.Task{syncTask("t1", now)}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := s.Sync(); err != nil {
		t.Fatalf("first Sync failed: %v", err)
	}
	first, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	if err := s.Sync(); err != nil {
		t.Fatalf("second Sync failed: %v", err)
	}
	second, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	if string(first) != string(second) {
		t.Errorf("redundant Sync changed the snapshot:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestSyncPicksNewestNonDoneAsCurrent(t *testing.T) {
	s, fs, dir := setupSyncer(t)

	base := time.Now().UTC()
	older := syncTask("older", base.Add(-time.Hour))
	newest := syncTask("newest", base)
	newestDone := syncTask("newest-done", base.Add(time.Hour))
	newestDone.Status = models.TaskStatusDone
	newestDone.Todos[0].Done = true

	if err := fs.Save(models.CollectionActive, []models.Task{older, newest, newestDone}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	snap, err := os.ReadFile(filepath.Join(dir, SnapshotFile))
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if !strings.Contains(string(snap), "current_task: newest") || strings.Contains(string(snap), "newest-done") {
		t.Errorf("snapshot current task wrong:\n%s", snap)
	}
}

func TestVerifyCleanAfterSync(t *testing.T) {
	s, fs, _ := setupSyncer(t)

	if err := fs.Save(models.CollectionActive, []models.Task{syncTask("t1", time.Now().UTC())}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	mismatches, err := s.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("Verify after Sync reported mismatches: %v", mismatches)
	}
}

func TestVerifyDetectsStaleSnapshot(t *testing.T) {
	s, fs, _ := setupSyncer(t)

	now := time.Now().UTC()
	if err := fs.Save(models.CollectionActive, []models.Task{syncTask("t1", now)}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if err := s.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	// Mutate the store behind the snapshot's back.
	extra := syncTask("t2", now.Add(time.Minute))
	if err := fs.Save(models.CollectionActive, []models.Task{syncTask("t1", now), extra}); err != nil {
		t.Fatalf("mutate store: %v", err)
	}

	mismatches, err := s.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(mismatches) == 0 {
		t.Error("Verify missed a stale snapshot")
	}
}

func TestVerifyWithoutSnapshot(t *testing.T) {
	s, _, _ := setupSyncer(t)

	mismatches, err := s.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if len(mismatches) != 0 {
		t.Errorf("Verify with no snapshot reported mismatches: %v", mismatches)
	}
}
