// Package store provides durable persistence for the four task collections.
// It handles both the file-backed store (.ferry/<collection>.json) and the
// SQLite-backed store (.ferry/state.db).
package store

import (
	"errors"
	"io"
	"time"

	"github.com/ShayCichocki/ferry/pkg/models"
)

var (
	// ErrCorrupt indicates a collection failed to parse and no usable
	// backup was available. Requires operator intervention.
	ErrCorrupt = errors.New("collection data is corrupt")
	// ErrUnknownCollection indicates a collection name outside the four
	// known partitions.
	ErrUnknownCollection = errors.New("unknown collection")
)

// DefaultRetentionDays is how long done tasks are kept before the
// retention purge removes them.
const DefaultRetentionDays = 7

// Store defines the interface for collection persistence.
// Implementations must guarantee that a crash mid-write never leaves a
// collection truncated or half-written, and that SaveAll applies every
// collection or none of them.
type Store interface {
	io.Closer

	// Load returns the ordered contents of a collection. Loading the done
	// collection runs the retention purge first and persists the result
	// if anything aged out, so repeated loads are idempotent.
	Load(c models.Collection) ([]models.Task, error)

	// Save atomically replaces the contents of a collection.
	Save(c models.Collection, tasks []models.Task) error

	// SaveAll atomically replaces several collections as one unit.
	// Used for relocations so no observer sees a task in zero or two
	// collections.
	SaveAll(batch map[models.Collection][]models.Task) error

	// ModTime reports when a collection was last written. The zero time
	// means the collection has never been written.
	ModTime(c models.Collection) (time.Time, error)

	// PurgeAged removes done tasks older than the given retention window
	// and reports how many were removed. This is the on-demand form of
	// the purge that Load runs automatically.
	PurgeAged(retentionDays int) (int, error)
}

// Compile-time verification that both backends implement the interface.
var (
	_ Store = (*FileStore)(nil)
	_ Store = (*SQLiteStore)(nil)
)

// retentionCutoff returns the threshold before which done tasks are
// purged. A negative retentionDays disables the purge.
func retentionCutoff(retentionDays int, now time.Time) (time.Time, bool) {
	if retentionDays < 0 {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -retentionDays), true
}

// purgeAged filters out done tasks whose last update precedes the cutoff.
// Returns the surviving tasks and how many were removed.
func purgeAged(tasks []models.Task, retentionDays int, now time.Time) ([]models.Task, int) {
	cutoff, ok := retentionCutoff(retentionDays, now)
	if !ok {
		return tasks, 0
	}

	kept := tasks[:0]
	removed := 0
	for _, t := range tasks {
		if t.Status == models.TaskStatusDone && t.UpdatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	return kept, removed
}
