// Package flock provides an advisory lock on a directory, used to give one
// process exclusive ownership of a local cube or dump target. The lock is
// held via a LOCK file inside the directory and released on Close, so the
// directory can be reopened by the same or another process afterwards.
package flock

import (
	"fmt"
	"os"
	"path/filepath"
)

// LockFileName is the name of the lock file created inside the directory.
const LockFileName = "LOCK"

// Lock is a held directory lock.
type Lock struct {
	f *os.File
}

// Acquire takes an exclusive advisory lock on dir.
// Returns an error if another process already holds the lock.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, LockFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}

	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("flock: %s already locked: %w", dir, err)
	}

	return &Lock{f: f}, nil
}

// Close releases the lock and removes the lock file.
func (l *Lock) Close() error {
	if l == nil || l.f == nil {
		return nil
	}
	path := l.f.Name()
	err := unlockFile(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	os.Remove(path)
	l.f = nil
	return err
}
