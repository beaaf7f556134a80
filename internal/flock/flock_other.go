//go:build !(unix || linux || darwin || freebsd || openbsd || netbsd)

package flock

import "os"

// Platforms without flock(2) fall back to the O_CREATE lock file alone,
// which still serializes well-behaved memcube processes.
func lockFile(_ *os.File) error { return nil }

func unlockFile(_ *os.File) error { return nil }
