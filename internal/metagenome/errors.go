package metagenome

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotSynchronized is returned by queries made before Synchronize or Restore.
	ErrNotSynchronized = errors.New("project not synchronized")

	// ErrUnknownGenome is returned for a genome name not in the project.
	ErrUnknownGenome = errors.New("unknown genome")

	// ErrUnknownChromosome is returned for a chromosome not in the project.
	ErrUnknownChromosome = errors.New("unknown chromosome")
)

// GroupError reports a failure confined to one genome group.
type GroupError struct {
	Group string
	Err   error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("group %s: %v", e.Group, e.Err)
}

func (e *GroupError) Unwrap() error { return e.Err }

// SyncError collects the failures of one Synchronize call. Groups and
// chromosomes not named here were synchronized.
type SyncError struct {
	Errs []error
}

func (e *SyncError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("synchronize: %d error(s): %s", len(e.Errs), strings.Join(msgs, "; "))
}

func (e *SyncError) Unwrap() []error { return e.Errs }
