// Package engine runs the background queue loop. It is the only
// component with its own goroutine: it watches the store for changes
// (its own writes included, external edits included) and applies the
// collection transitions the foreground surface never performs itself
// (promotion into active, relocation of completed work into done, and
// the explicit interrupt/resume moves).
package engine

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ShayCichocki/ferry/internal/logging"
	"github.com/ShayCichocki/ferry/internal/manager"
	"github.com/ShayCichocki/ferry/internal/session"
	"github.com/ShayCichocki/ferry/internal/store"
	"github.com/ShayCichocki/ferry/pkg/models"
)

// Promotion orderings for a capacity-bounded active collection.
const (
	// PromoteFIFO promotes queued tasks in arrival order.
	PromoteFIFO = "fifo"
	// PromoteNewest promotes the most recently created queued task first.
	PromoteNewest = "newest"
)

// DefaultWatchInterval is the polling cadence used when the change
// notification watcher is unavailable or misses events.
const DefaultWatchInterval = 2 * time.Second

// Config holds the engine's tuning knobs.
type Config struct {
	// ActiveCapacity bounds how many non-done tasks the active
	// collection holds before promotion pauses. Zero means unbounded.
	ActiveCapacity int
	// WatchInterval is the polling fallback cadence.
	WatchInterval time.Duration
	// PromotionOrder is PromoteFIFO or PromoteNewest. Anything else is
	// treated as FIFO.
	PromotionOrder string
}

// Engine is the background queue loop. Reads go straight to the store;
// every mutation goes through the manager's Relocate so engine and
// foreground writers serialize on the same lock.
type Engine struct {
	mgr     *manager.Manager
	store   store.Store
	tracker *session.Tracker
	logger  *logging.DebugLogger
	cfg     Config

	watchDir string
	lastMod  time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithWatchDir enables filesystem change notifications on the given
// directory. Without it the engine relies on polling alone (the SQLite
// backend has no per-collection files worth watching).
func WithWatchDir(dir string) Option {
	return func(e *Engine) { e.watchDir = dir }
}

// WithLogger sets the debug logger.
func WithLogger(l *logging.DebugLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine. The tracker may be nil when no continuity
// marker should be kept.
func New(mgr *manager.Manager, s store.Store, tracker *session.Tracker, cfg Config, opts ...Option) *Engine {
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = DefaultWatchInterval
	}
	e := &Engine{mgr: mgr, store: s, tracker: tracker, cfg: cfg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes the watch loop until the context is cancelled. A failed
// cycle is logged and retried on the next wake; the loop itself never
// terminates on error.
func (e *Engine) Run(ctx context.Context) error {
	e.logger.Log("queue engine started (capacity %d, order %s, interval %s)",
		e.cfg.ActiveCapacity, e.promotionOrder(), e.cfg.WatchInterval)

	e.Reconcile()
	e.markSeen()

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if e.watchDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			e.logger.Log("watcher unavailable, polling only: %v", err)
		} else if err := watcher.Add(e.watchDir); err != nil {
			e.logger.Log("cannot watch %s, polling only: %v", e.watchDir, err)
			watcher.Close()
		} else {
			defer watcher.Close()
			events = watcher.Events
			watchErrs = watcher.Errors
		}
	}

	ticker := time.NewTicker(e.cfg.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.logger.Log("queue engine stopped")
			return nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !relevantEvent(ev) {
				continue
			}
			e.Reconcile()
			e.markSeen()

		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			e.logger.Log("watch error: %v", err)

		case <-ticker.C:
			// Polling safety net: catches external edits the watcher
			// missed (or every change, when no watcher is attached).
			if e.changedSinceLast() {
				e.Reconcile()
				e.markSeen()
			}
		}
	}
}

// Reconcile runs one idempotent pass of the state machine: completed
// active tasks relocate to done, then queued tasks promote into free
// active capacity. Safe to call at any time from any goroutine.
func (e *Engine) Reconcile() {
	e.relocateCompleted()
	e.promoteQueued()
}

// Interrupt moves an active task to the interrupted collection,
// recording the optional free-text reason and a resumption marker.
func (e *Engine) Interrupt(taskID, reason string) error {
	err := e.mgr.Relocate(taskID, models.CollectionActive, models.CollectionInterrupted, func(t *models.Task) {
		t.Status = models.TaskStatusInterrupted
		t.InterruptReason = reason
	})
	if err != nil {
		return err
	}

	if e.tracker != nil {
		if err := e.tracker.RecordPosition(taskID, reason); err != nil {
			e.logger.Log("record resumption marker for %s: %v", taskID, err)
		}
	}
	e.logger.Log("interrupted task %s (%s)", taskID, reason)
	return nil
}

// Resume moves an interrupted task back to active with its todo
// progress untouched, clearing the resumption marker if it points at
// this task.
func (e *Engine) Resume(taskID string) error {
	err := e.mgr.Relocate(taskID, models.CollectionInterrupted, models.CollectionActive, func(t *models.Task) {
		t.Status = models.TaskStatusActive
		t.InterruptReason = ""
	})
	if err != nil {
		return err
	}

	if e.tracker != nil {
		pos, ok, err := e.tracker.LastPosition()
		if err != nil {
			e.logger.Log("read resumption marker: %v", err)
		} else if ok && pos.TaskID == taskID {
			if err := e.tracker.Clear(); err != nil {
				e.logger.Log("clear resumption marker: %v", err)
			}
		}
	}
	e.logger.Log("resumed task %s", taskID)
	return nil
}

// relocateCompleted moves every active task whose status reached done
// into the done collection.
func (e *Engine) relocateCompleted() {
	active, err := e.store.Load(models.CollectionActive)
	if err != nil {
		e.logger.Log("reconcile: load active: %v", err)
		return
	}

	for _, t := range active {
		if t.Status != models.TaskStatusDone {
			continue
		}
		if err := e.mgr.Relocate(t.ID, models.CollectionActive, models.CollectionDone, nil); err != nil {
			e.logger.Log("reconcile: relocate %s to done: %v", t.ID, err)
			continue
		}
		e.logger.Log("reconcile: task %s completed, moved to done", t.ID)
	}
}

// promoteQueued fills free active capacity from the queued collection
// in the configured order.
func (e *Engine) promoteQueued() {
	queued, err := e.store.Load(models.CollectionQueued)
	if err != nil {
		e.logger.Log("reconcile: load queued: %v", err)
		return
	}
	if len(queued) == 0 {
		return
	}

	slots := -1 // unbounded
	if e.cfg.ActiveCapacity > 0 {
		active, err := e.store.Load(models.CollectionActive)
		if err != nil {
			e.logger.Log("reconcile: load active: %v", err)
			return
		}
		open := 0
		for _, t := range active {
			if t.Status != models.TaskStatusDone {
				open++
			}
		}
		slots = e.cfg.ActiveCapacity - open
		if slots <= 0 {
			return
		}
	}

	candidates := append([]models.Task(nil), queued...)
	if e.promotionOrder() == PromoteNewest {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		})
	}

	for _, t := range candidates {
		if slots == 0 {
			break
		}
		err := e.mgr.Relocate(t.ID, models.CollectionQueued, models.CollectionActive, func(t *models.Task) {
			t.Status = models.TaskStatusActive
		})
		if err != nil {
			e.logger.Log("reconcile: promote %s: %v", t.ID, err)
			continue
		}
		e.logger.Log("reconcile: promoted task %s to active", t.ID)
		if slots > 0 {
			slots--
		}
	}
}

func (e *Engine) promotionOrder() string {
	if e.cfg.PromotionOrder == PromoteNewest {
		return PromoteNewest
	}
	return PromoteFIFO
}

// changedSinceLast reports whether any collection was written after the
// last reconcile pass.
func (e *Engine) changedSinceLast() bool {
	return e.latestModTime().After(e.lastMod)
}

// markSeen records the current store write time so the next poll tick
// skips work when nothing changed.
func (e *Engine) markSeen() {
	e.lastMod = e.latestModTime()
}

func (e *Engine) latestModTime() time.Time {
	var latest time.Time
	for _, c := range models.Collections {
		mod, err := e.store.ModTime(c)
		if err != nil {
			e.logger.Log("stat %s: %v", c, err)
			continue
		}
		if mod.After(latest) {
			latest = mod
		}
	}
	return latest
}

// relevantEvent filters watcher noise: only writes to the collection
// files themselves matter, not temp or backup files.
func relevantEvent(ev fsnotify.Event) bool {
	if !strings.HasSuffix(ev.Name, ".json") {
		return false
	}
	return ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}
