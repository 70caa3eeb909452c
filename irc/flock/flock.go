//go:build !(plan9 || solaris)

// Package flock holds advisory locks on files, so that two processes don't
// write the same directory.
package flock

import (
	"github.com/gofrs/flock"
)

// TryLock takes an exclusive lock on path, creating it if needed. It fails
// with ErrLocked instead of waiting if another process holds the lock.
func TryLock(path string) (Flocker, error) {
	f := flock.New(path)
	success, err := f.TryLock()
	if err != nil {
		return nil, err
	} else if !success {
		return nil, ErrLocked
	}
	return f, nil
}
