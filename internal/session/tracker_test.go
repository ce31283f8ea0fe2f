package session

import (
	"os"
	"testing"
)

func TestRecordAndLastPosition(t *testing.T) {
	tr := NewTracker(t.TempDir())

	if err := tr.RecordPosition("task-1", "internal/store/file.go:120"); err != nil {
		t.Fatalf("RecordPosition failed: %v", err)
	}

	pos, ok, err := tr.LastPosition()
	if err != nil {
		t.Fatalf("LastPosition failed: %v", err)
	}
	if !ok {
		t.Fatal("LastPosition reported no marker after RecordPosition")
	}
	if pos.TaskID != "task-1" {
		t.Errorf("TaskID = %q, want %q", pos.TaskID, "task-1")
	}
	if pos.Locator != "internal/store/file.go:120" {
		t.Errorf("Locator = %q, want the recorded locator", pos.Locator)
	}
	if pos.RecordedAt.IsZero() {
		t.Error("RecordedAt is zero")
	}
}

func TestLastPositionWhenUnset(t *testing.T) {
	tr := NewTracker(t.TempDir())

	_, ok, err := tr.LastPosition()
	if err != nil {
		t.Fatalf("LastPosition failed: %v", err)
	}
	if ok {
		t.Error("LastPosition reported a marker in an empty directory")
	}
}

func TestRecordOverwritesPrevious(t *testing.T) {
	tr := NewTracker(t.TempDir())

	if err := tr.RecordPosition("first", "a"); err != nil {
		t.Fatalf("RecordPosition failed: %v", err)
	}
	if err := tr.RecordPosition("second", "b"); err != nil {
		t.Fatalf("RecordPosition failed: %v", err)
	}

	pos, ok, err := tr.LastPosition()
	if err != nil || !ok {
		t.Fatalf("LastPosition = %v, %v, %v", pos, ok, err)
	}
	if pos.TaskID != "second" || pos.Locator != "b" {
		t.Errorf("marker = %+v, want the latest record", pos)
	}
}

func TestClear(t *testing.T) {
	tr := NewTracker(t.TempDir())

	// Clearing with nothing recorded is fine.
	if err := tr.Clear(); err != nil {
		t.Fatalf("Clear on empty tracker failed: %v", err)
	}

	if err := tr.RecordPosition("task-1", "here"); err != nil {
		t.Fatalf("RecordPosition failed: %v", err)
	}
	if err := tr.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	_, ok, err := tr.LastPosition()
	if err != nil {
		t.Fatalf("LastPosition failed: %v", err)
	}
	if ok {
		t.Error("marker still present after Clear")
	}
}

func TestLastPositionCorruptFile(t *testing.T) {
	dir := t.TempDir()
	tr := NewTracker(dir)

	if err := os.WriteFile(tr.path, []byte("{broken"), 0644); err != nil {
		t.Fatalf("write corrupt marker: %v", err)
	}

	if _, _, err := tr.LastPosition(); err == nil {
		t.Error("expected error for corrupt marker file")
	}
}
