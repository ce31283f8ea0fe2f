package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ShayCichocki/ferry/pkg/models"
)

// FileStore persists each collection as a JSON file under a single
// directory. Writes go through a temp-file-then-rename cycle, and every
// successful save keeps the previous contents as a .bak file used for
// recovery when the primary file fails to parse.
//
// A single mutex covers all collections. Contention is expected to be
// low (one foreground caller plus the queue engine), and a global lock
// keeps the cross-collection relocation invariant trivial to enforce.
type FileStore struct {
	dir           string
	retentionDays int

	mu sync.Mutex
}

// NewFileStore creates a file store rooted at dir, creating the
// directory if needed.
func NewFileStore(dir string, retentionDays int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir, retentionDays: retentionDays}, nil
}

// Dir returns the directory holding the collection files. The queue
// engine watches this directory for external changes.
func (s *FileStore) Dir() string {
	return s.dir
}

// Path returns the file backing a collection.
func (s *FileStore) Path(c models.Collection) string {
	return filepath.Join(s.dir, string(c)+".json")
}

func (s *FileStore) backupPath(c models.Collection) string {
	return s.Path(c) + ".bak"
}

// Load returns the ordered contents of a collection. A missing file is
// an empty collection. A file that fails to parse is recovered from the
// .bak backup when one exists; ErrCorrupt is returned only when both are
// unreadable. Loading the done collection runs the retention purge and
// persists the result if anything was removed.
func (s *FileStore) Load(c models.Collection) ([]models.Task, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.readLocked(c)
	if err != nil {
		return nil, err
	}

	if c == models.CollectionDone {
		kept, removed := purgeAged(tasks, s.retentionDays, time.Now())
		if removed > 0 {
			if err := s.writeLocked(c, kept); err != nil {
				return nil, fmt.Errorf("persist retention purge: %w", err)
			}
		}
		tasks = kept
	}

	return tasks, nil
}

// Save atomically replaces the contents of a collection.
func (s *FileStore) Save(c models.Collection, tasks []models.Task) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(c, tasks)
}

// SaveAll replaces several collections as one unit. Every payload is
// marshaled and staged as a temp file before any rename happens; if a
// rename fails partway, already-renamed collections are rolled back from
// their backups so the batch applies entirely or not at all.
func (s *FileStore) SaveAll(batch map[models.Collection][]models.Task) error {
	for c := range batch {
		if !c.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type staged struct {
		collection models.Collection
		tmp        string
	}

	var stage []staged
	cleanup := func() {
		for _, st := range stage {
			os.Remove(st.tmp)
		}
	}

	// Stage every payload before touching any primary file.
	for c, tasks := range batch {
		tmp, err := s.stageLocked(c, tasks)
		if err != nil {
			cleanup()
			return err
		}
		stage = append(stage, staged{collection: c, tmp: tmp})
	}

	// Commit: back up then rename each staged file into place.
	var committed []models.Collection
	for _, st := range stage {
		s.backupLocked(st.collection)
		if err := os.Rename(st.tmp, s.Path(st.collection)); err != nil {
			for _, c := range committed {
				s.restoreLocked(c)
			}
			cleanup()
			return fmt.Errorf("commit %s: %w", st.collection, err)
		}
		committed = append(committed, st.collection)
	}

	return nil
}

// PurgeAged removes done tasks older than the retention window and
// reports how many were removed.
func (s *FileStore) PurgeAged(retentionDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.readLocked(models.CollectionDone)
	if err != nil {
		return 0, err
	}

	kept, removed := purgeAged(tasks, retentionDays, time.Now())
	if removed == 0 {
		return 0, nil
	}
	if err := s.writeLocked(models.CollectionDone, kept); err != nil {
		return 0, fmt.Errorf("persist purge: %w", err)
	}
	return removed, nil
}

// ModTime reports when a collection file was last written.
func (s *FileStore) ModTime(c models.Collection) (time.Time, error) {
	info, err := os.Stat(s.Path(c))
	if os.IsNotExist(err) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", c, err)
	}
	return info.ModTime(), nil
}

// Close is a no-op for the file store; it holds no open handles.
func (s *FileStore) Close() error {
	return nil
}

// readLocked loads and parses a collection file, falling back to the
// backup when the primary is corrupt. Caller must hold the mutex.
func (s *FileStore) readLocked(c models.Collection) ([]models.Task, error) {
	data, err := os.ReadFile(s.Path(c))
	if os.IsNotExist(err) {
		return []models.Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", c, err)
	}

	var tasks []models.Task
	if err := json.Unmarshal(data, &tasks); err == nil {
		return tasks, nil
	}

	// Primary is corrupt; try the last-known-good backup.
	bak, bakErr := os.ReadFile(s.backupPath(c))
	if bakErr != nil {
		return nil, fmt.Errorf("%w: %s (no usable backup)", ErrCorrupt, c)
	}
	if err := json.Unmarshal(bak, &tasks); err != nil {
		return nil, fmt.Errorf("%w: %s (backup also unreadable)", ErrCorrupt, c)
	}

	// Heal the primary so the next load doesn't hit the backup again.
	// The backup is the only good copy until the rename lands, so the
	// heal must not run the usual backup step: that would copy the
	// corrupt primary over it.
	if err := s.healLocked(c, tasks); err != nil {
		return nil, fmt.Errorf("restore %s from backup: %w", c, err)
	}
	return tasks, nil
}

// writeLocked saves a collection atomically. Caller must hold the mutex.
func (s *FileStore) writeLocked(c models.Collection, tasks []models.Task) error {
	tmp, err := s.stageLocked(c, tasks)
	if err != nil {
		return err
	}

	s.backupLocked(c)
	if err := os.Rename(tmp, s.Path(c)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", c, err)
	}
	return nil
}

// healLocked rewrites the primary file from recovered tasks, leaving
// the backup untouched. Caller must hold the mutex.
func (s *FileStore) healLocked(c models.Collection, tasks []models.Task) error {
	tmp, err := s.stageLocked(c, tasks)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, s.Path(c)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit %s: %w", c, err)
	}
	return nil
}

// stageLocked marshals tasks into a temp file in the store directory and
// returns its path. The temp file lives on the same filesystem as the
// primary so the rename is atomic.
func (s *FileStore) stageLocked(c models.Collection, tasks []models.Task) (string, error) {
	if tasks == nil {
		tasks = []models.Task{}
	}

	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", c, err)
	}

	f, err := os.CreateTemp(s.dir, string(c)+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", c, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", c, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("stage %s: %w", c, err)
	}
	return f.Name(), nil
}

// backupLocked copies the current primary file to the .bak path. A
// missing primary (collection never written) leaves the backup alone.
func (s *FileStore) backupLocked(c models.Collection) {
	data, err := os.ReadFile(s.Path(c))
	if err != nil {
		return
	}
	_ = os.WriteFile(s.backupPath(c), data, 0644)
}

// restoreLocked puts the backup back as the primary after a failed
// multi-collection commit.
func (s *FileStore) restoreLocked(c models.Collection) {
	data, err := os.ReadFile(s.backupPath(c))
	if err != nil {
		return
	}
	_ = os.WriteFile(s.Path(c), data, 0644)
}
