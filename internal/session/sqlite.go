package session

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLiteStore keeps sessions as gob blobs in a single SQLite table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens or creates the session database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path == "" {
		path = "vibe-sync.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		name TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sessions table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save upserts the named session.
func (s *SQLiteStore) Save(ctx context.Context, name string, snap *Snapshot) error {
	if err := validName(name); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(name,id,created_at,payload) VALUES(?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET id=excluded.id, created_at=excluded.created_at, payload=excluded.payload`,
		name, snap.ID, snap.CreatedAt.UTC().Format(time.RFC3339Nano), buf.Bytes())
	if err != nil {
		return fmt.Errorf("upsert session %q: %w", name, err)
	}
	return nil
}

// Load reads the named session.
func (s *SQLiteStore) Load(ctx context.Context, name string) (*Snapshot, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE name=?`, name).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("load session %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select session %q: %w", name, err)
	}
	return Decode(bytes.NewReader(payload))
}

// List returns the names of saved sessions, sorted.
func (s *SQLiteStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sessions ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Delete removes the named session. It reports whether one existed.
func (s *SQLiteStore) Delete(ctx context.Context, name string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE name=?`, name)
	if err != nil {
		return false, fmt.Errorf("delete session %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
