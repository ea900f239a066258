package session

import (
	"context"
	"os"
	"time"
)

// Store persists named snapshots.
type Store interface {
	Save(ctx context.Context, name string, s *Snapshot) error
	Load(ctx context.Context, name string) (*Snapshot, error)
	List(ctx context.Context) ([]string, error)
}

// Fingerprint holds stat-based identity for a source file.
type Fingerprint struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// StatFile creates a Fingerprint from an on-disk file.
func StatFile(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return Fingerprint{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// Matches reports whether f and other describe the same file contents.
func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.Path == other.Path && f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// Stale returns the recorded source files that changed or disappeared.
func (s *Snapshot) Stale() []string {
	var out []string
	for _, f := range s.Files {
		now, err := StatFile(f.Path)
		if err != nil || !now.Matches(f) {
			out = append(out, f.Path)
		}
	}
	return out
}
