//go:build plan9 || solaris

package flock

// TryLock always succeeds where flock(2) isn't available.
func TryLock(path string) (Flocker, error) {
	return &noopFlocker{path: path}, nil
}
