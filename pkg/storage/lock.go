package storage

import (
	"errors"
	"fmt"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by LockDir when another handle already owns the lock.
var ErrLocked = errors.New("directory is locked by another process")

// LockFile is the name of the lock file LockDir creates.
const LockFile = "LOCK"

// DirLock is an exclusive advisory lock on a storage directory.
type DirLock struct {
	fl *flock.Flock
}

// LockDir takes the exclusive lock on s without waiting. It fails with
// ErrLocked when the lock is held elsewhere, in this process or another.
func (s *LocalStorage) LockDir() (*DirLock, error) {
	fl := flock.New(s.resolve(LockFile))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", s.baseDir, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, s.baseDir)
	}
	return &DirLock{fl: fl}, nil
}

// Unlock releases the lock. It is safe to call more than once.
func (l *DirLock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
