package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FileStore manages gob-serialized sessions on disk:
//
//	{dir}/{name}.gob       (serialized snapshot)
//	{dir}/{name}.gob.meta  (session id and source file fingerprints)
type FileStore struct {
	dir string // session directory (e.g. ~/.vibe-sync/sessions)
}

// NewFileStore creates a file store for the given directory.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (fs *FileStore) gobPath(name string) string {
	return filepath.Join(fs.dir, name+".gob")
}

func (fs *FileStore) metaPath(name string) string {
	return filepath.Join(fs.dir, name+".gob.meta")
}

// Valid checks whether the named session was saved from the given source
// files, unchanged since.
func (fs *FileStore) Valid(name string, files []Fingerprint) bool {
	meta, err := fs.readMeta(name)
	if err != nil {
		return false
	}

	if meta["files"] != strconv.Itoa(len(files)) {
		return false
	}
	for i, f := range files {
		prefix := "file." + strconv.Itoa(i) + "."
		if meta[prefix+"path"] != f.Path ||
			meta[prefix+"size"] != strconv.FormatInt(f.Size, 10) ||
			meta[prefix+"modtime"] != f.ModTime.UTC().Format(time.RFC3339Nano) {
			return false
		}
	}

	// Verify gob file exists
	if _, err := os.Stat(fs.gobPath(name)); err != nil {
		return false
	}
	return true
}

// Load reads the named session from disk.
func (fs *FileStore) Load(_ context.Context, name string) (*Snapshot, error) {
	f, err := os.Open(fs.gobPath(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load session %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	defer f.Close()

	return Decode(f)
}

// Save serializes s to disk under name, replacing any previous session.
func (fs *FileStore) Save(_ context.Context, name string, s *Snapshot) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(fs.dir, 0755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	f, err := os.Create(fs.gobPath(name))
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}

	if err := Encode(f, s); err != nil {
		f.Close()
		os.Remove(fs.gobPath(name))
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	// Write metadata
	return fs.writeMeta(name, s)
}

// List returns the names of saved sessions, sorted.
func (fs *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(fs.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".gob"); ok && !e.IsDir() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Clear removes the named session files.
func (fs *FileStore) Clear(name string) {
	os.Remove(fs.gobPath(name))
	os.Remove(fs.metaPath(name))
}

func (fs *FileStore) writeMeta(name string, s *Snapshot) error {
	lines := []string{
		"id=" + s.ID,
		"files=" + strconv.Itoa(len(s.Files)),
	}
	for i, f := range s.Files {
		prefix := "file." + strconv.Itoa(i) + "."
		lines = append(lines,
			prefix+"path="+f.Path,
			prefix+"size="+strconv.FormatInt(f.Size, 10),
			prefix+"modtime="+f.ModTime.UTC().Format(time.RFC3339Nano),
		)
	}
	lines = append(lines, "created_at="+s.CreatedAt.UTC().Format(time.RFC3339), "")
	return os.WriteFile(fs.metaPath(name), []byte(strings.Join(lines, "\n")), 0644)
}

func (fs *FileStore) readMeta(name string) (map[string]string, error) {
	data, err := os.ReadFile(fs.metaPath(name))
	if err != nil {
		return nil, err
	}

	meta := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		if k, v, ok := strings.Cut(line, "="); ok {
			meta[k] = v
		}
	}
	return meta, nil
}

func validName(name string) error {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("invalid session name %q", name)
	}
	return nil
}
