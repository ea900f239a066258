// Package duckdb exports compiled variant tracks to DuckDB. Every track
// entry becomes one row carrying its kind and all three coordinates, so
// synchronized projects can be explored with plain SQL.
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding exported offsets.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create export directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS chromosomes (
		name VARCHAR PRIMARY KEY,
		length BIGINT
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS variant_offsets (
		genome VARCHAR,
		chrom VARCHAR,
		pos BIGINT,
		kind VARCHAR,
		length BIGINT,
		genome_pos BIGINT,
		ref_pos BIGINT,
		meta_pos BIGINT,
		ref_offset BIGINT,
		meta_offset BIGINT,
		extra_offset BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		PRIMARY KEY (genome, chrom, pos)
	)`)
	return err
}
