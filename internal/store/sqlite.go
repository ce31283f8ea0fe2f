package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/ferry/pkg/models"
)

// SQLiteStore persists collections in a single SQLite database. Each
// row is one task tagged with its collection and position; SaveAll maps
// onto a single transaction, which gives the relocation atomicity the
// file store has to build by hand.
type SQLiteStore struct {
	conn          *sql.DB
	path          string
	retentionDays int
	mu            sync.Mutex
}

// OpenSQLite opens (and migrates) a SQLite store at the given path,
// creating parent directories if they don't exist. WAL mode is enabled
// for concurrent reads.
func OpenSQLite(path string, retentionDays int) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &SQLiteStore{
		conn:          conn,
		path:          path,
		retentionDays: retentionDays,
	}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the path to the database file.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			collection TEXT NOT NULL,
			position INTEGER NOT NULL,
			description TEXT,
			status TEXT NOT NULL,
			todos TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			interrupt_reason TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_collection ON tasks(collection, position);
		CREATE TABLE IF NOT EXISTS collection_meta (
			collection TEXT PRIMARY KEY,
			written_at TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// Load returns the ordered contents of a collection, running the
// retention purge for the done collection.
func (s *SQLiteStore) Load(c models.Collection) ([]models.Task, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCollection, c)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadLocked(c)
	if err != nil {
		return nil, err
	}

	if c == models.CollectionDone {
		kept, removed := purgeAged(tasks, s.retentionDays, time.Now())
		if removed > 0 {
			if err := s.saveLocked(map[models.Collection][]models.Task{c: kept}); err != nil {
				return nil, fmt.Errorf("persist retention purge: %w", err)
			}
		}
		tasks = kept
	}

	return tasks, nil
}

// Save atomically replaces the contents of a collection.
func (s *SQLiteStore) Save(c models.Collection, tasks []models.Task) error {
	return s.SaveAll(map[models.Collection][]models.Task{c: tasks})
}

// SaveAll replaces several collections inside one transaction.
func (s *SQLiteStore) SaveAll(batch map[models.Collection][]models.Task) error {
	for c := range batch {
		if !c.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownCollection, c)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(batch)
}

// PurgeAged removes done tasks older than the retention window and
// reports how many were removed.
func (s *SQLiteStore) PurgeAged(retentionDays int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks, err := s.loadLocked(models.CollectionDone)
	if err != nil {
		return 0, err
	}

	kept, removed := purgeAged(tasks, retentionDays, time.Now())
	if removed == 0 {
		return 0, nil
	}
	if err := s.saveLocked(map[models.Collection][]models.Task{models.CollectionDone: kept}); err != nil {
		return 0, fmt.Errorf("persist purge: %w", err)
	}
	return removed, nil
}

// ModTime reports when a collection was last written.
func (s *SQLiteStore) ModTime(c models.Collection) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.conn.QueryRow("SELECT written_at FROM collection_meta WHERE collection = ?", string(c))
	var written string
	err := row.Scan(&written)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read collection meta: %w", err)
	}
	return parseTime(written)
}

func (s *SQLiteStore) loadLocked(c models.Collection) ([]models.Task, error) {
	rows, err := s.conn.Query(`
		SELECT id, description, status, todos, created_at, updated_at, interrupt_reason
		FROM tasks WHERE collection = ? ORDER BY position
	`, string(c))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c, err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		var t models.Task
		var todos, createdAt, updatedAt string
		var reason sql.NullString
		if err := rows.Scan(&t.ID, &t.Description, &t.Status, &todos, &createdAt, &updatedAt, &reason); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if err := json.Unmarshal([]byte(todos), &t.Todos); err != nil {
			return nil, fmt.Errorf("%w: task %s todos", ErrCorrupt, t.ID)
		}
		if t.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("%w: task %s created_at", ErrCorrupt, t.ID)
		}
		if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, fmt.Errorf("%w: task %s updated_at", ErrCorrupt, t.ID)
		}
		if reason.Valid {
			t.InterruptReason = reason.String
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", c, err)
	}
	return tasks, nil
}

func (s *SQLiteStore) saveLocked(batch map[models.Collection][]models.Task) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(time.Now())
	for c, tasks := range batch {
		if _, err := tx.Exec("DELETE FROM tasks WHERE collection = ?", string(c)); err != nil {
			return fmt.Errorf("clear %s: %w", c, err)
		}
		for i, t := range tasks {
			todos, err := json.Marshal(t.Todos)
			if err != nil {
				return fmt.Errorf("marshal todos for %s: %w", t.ID, err)
			}
			_, err = tx.Exec(`
				INSERT INTO tasks (id, collection, position, description, status, todos, created_at, updated_at, interrupt_reason)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, t.ID, string(c), i, t.Description, string(t.Status), string(todos),
				formatTime(t.CreatedAt), formatTime(t.UpdatedAt), t.InterruptReason)
			if err != nil {
				return fmt.Errorf("insert task %s: %w", t.ID, err)
			}
		}
		_, err = tx.Exec(`
			INSERT INTO collection_meta (collection, written_at) VALUES (?, ?)
			ON CONFLICT(collection) DO UPDATE SET written_at = excluded.written_at
		`, string(c), now)
		if err != nil {
			return fmt.Errorf("update collection meta: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// formatTime serializes a timestamp for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime deserializes a stored timestamp.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
