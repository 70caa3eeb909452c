package flock

import "errors"

var (
	ErrLocked = errors.New("Couldn't acquire flock (is another uno running against this directory?)")
)

// Flocker is a held lock. github.com/gofrs/flock's Flock is not a
// sync.Locker, because its Unlock returns an error.
type Flocker interface {
	Unlock() error
	Path() string
}

type noopFlocker struct {
	path string
}

func (n *noopFlocker) Unlock() error {
	return nil
}

func (n *noopFlocker) Path() string {
	return n.path
}
