// Package session records where work was last left off so a new
// process attaching to the store can resume context. The marker is
// convenience state only; it is never authoritative over task state.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PositionFile is the name of the continuity marker file inside the
// data directory.
const PositionFile = "position.json"

// Position is an opaque "where was I" marker tied to a task.
type Position struct {
	// TaskID identifies the task the caller was working on.
	TaskID string `json:"task_id"`
	// Locator is caller-defined (file, line, step index, free text).
	Locator string `json:"locator"`
	// RecordedAt is when the marker was written.
	RecordedAt time.Time `json:"recorded_at"`
}

// Tracker persists the continuity marker as a small JSON file.
type Tracker struct {
	path string
	mu   sync.Mutex
}

// NewTracker creates a tracker storing its marker under dir.
func NewTracker(dir string) *Tracker {
	return &Tracker{path: filepath.Join(dir, PositionFile)}
}

// RecordPosition persists the marker, replacing any previous one.
func (t *Tracker) RecordPosition(taskID, locator string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := Position{
		TaskID:     taskID,
		Locator:    locator,
		RecordedAt: time.Now(),
	}
	data, err := json.MarshalIndent(pos, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal position: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("create position directory: %w", err)
	}

	tmp := t.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write position: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit position: %w", err)
	}
	return nil
}

// LastPosition returns the recorded marker. The second return value is
// false when no marker has been recorded.
func (t *Tracker) LastPosition() (Position, bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := os.ReadFile(t.path)
	if os.IsNotExist(err) {
		return Position{}, false, nil
	}
	if err != nil {
		return Position{}, false, fmt.Errorf("read position: %w", err)
	}

	var pos Position
	if err := json.Unmarshal(data, &pos); err != nil {
		return Position{}, false, fmt.Errorf("parse position: %w", err)
	}
	return pos, true, nil
}

// Clear removes the marker. Clearing an absent marker is a no-op.
func (t *Tracker) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	err := os.Remove(t.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear position: %w", err)
	}
	return nil
}
