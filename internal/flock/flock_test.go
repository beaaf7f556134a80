package flock

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	l, err := Acquire(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, LockFileName))
	require.NoError(t, err)

	require.NoError(t, l.Close())

	_, err = os.Stat(filepath.Join(dir, LockFileName))
	assert.True(t, os.IsNotExist(err))

	// Reacquire after release.
	l2, err := Acquire(dir)
	require.NoError(t, err)
	require.NoError(t, l2.Close())
}

func TestCloseNil(t *testing.T) {
	var l *Lock
	require.NoError(t, l.Close())
}
