//go:build !(plan9 || solaris)

package flock

import (
	"path/filepath"
	"testing"
)

func TestTryLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".lock")

	held, err := TryLock(path)
	if err != nil {
		t.Fatal(err)
	}
	if held.Path() != path {
		t.Errorf("unexpected lock path %s", held.Path())
	}
	if _, err := TryLock(path); err != ErrLocked {
		t.Errorf("expected ErrLocked, got %v", err)
	}

	if err := held.Unlock(); err != nil {
		t.Fatal(err)
	}
	again, err := TryLock(path)
	if err != nil {
		t.Fatalf("lock was not released: %v", err)
	}
	again.Unlock()
}
