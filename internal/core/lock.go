package core

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// LockSuffix is appended to the vault path to name its lock file.
const LockSuffix = ".lock"

// errContended is returned by a Locker when another holder has the lock.
var errContended = errors.New("lock held by another process")

// Locker is an advisory exclusive lock on a vault. TryAcquire never waits.
type Locker interface {
	TryAcquire() error
	Release() error
}

// FileLocker locks "<vault>.lock" with flock(2) or its platform equivalent.
type FileLocker struct {
	lock *flock.Flock
}

// NewFileLocker returns a Locker for the vault at path.
func NewFileLocker(path string) Locker {
	return &FileLocker{lock: flock.New(path + LockSuffix)}
}

func (l *FileLocker) TryAcquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock %s: %w", l.lock.Path(), err)
	}
	if !ok {
		return errContended
	}
	return nil
}

func (l *FileLocker) Release() error {
	return l.lock.Unlock()
}
