package activity

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Record is one completed trade attempt. The log is display only; nothing
// in the trade flow reads it back.
type Record struct {
	ID        string `json:"id"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"ts"`
}

// Store is an append-only sqlite log of trade activity, guarded by a file
// lock so concurrent CLI invocations do not interleave writes.
type Store struct {
	db   *sql.DB
	lock *flock.Flock
}

func OpenStore(path, lockPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create activity store directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create activity lock directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open activity sqlite: %w", err)
	}

	queries := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		`CREATE TABLE IF NOT EXISTS activity (
			id TEXT PRIMARY KEY,
			amount TEXT NOT NULL,
			ts INTEGER NOT NULL
		);`,
		"CREATE INDEX IF NOT EXISTS idx_activity_ts ON activity(ts DESC);",
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init activity schema: %w", err)
		}
	}
	return &Store{db: db, lock: flock.New(lockPath)}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append records one attempt. An empty ID gets a fresh one; a zero timestamp
// gets the current time.
func (s *Store) Append(rec Record) (Record, error) {
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = time.Now().UTC().Unix()
	}
	if strings.TrimSpace(rec.Amount) == "" {
		return Record{}, fmt.Errorf("append activity: missing amount")
	}

	locked, err := s.lock.TryLockContext(context.Background(), 5*time.Second)
	if err != nil {
		return Record{}, fmt.Errorf("lock activity store: %w", err)
	}
	if !locked {
		return Record{}, fmt.Errorf("lock activity store: timeout acquiring lock")
	}
	defer func() { _ = s.lock.Unlock() }()

	if _, err := s.db.Exec(
		"INSERT INTO activity (id, amount, ts) VALUES (?, ?, ?)",
		rec.ID, rec.Amount, rec.Timestamp,
	); err != nil {
		return Record{}, fmt.Errorf("append activity: %w", err)
	}
	return rec, nil
}

// List returns the newest records first.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query("SELECT id, amount, ts FROM activity ORDER BY ts DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Amount, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan activity row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity rows: %w", err)
	}
	return records, nil
}
