package blobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBucket(t *testing.T, b Bucket) {
	t.Helper()
	ctx := context.Background()

	t.Run("OpenMissing", func(t *testing.T) {
		_, err := b.Open(ctx, "missing")
		require.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("PutOpenRoundTrip", func(t *testing.T) {
		require.NoError(t, b.Put(ctx, "a/records", []byte("payload")))

		data, err := ReadAll(ctx, b, "a/records")
		require.NoError(t, err)
		assert.Equal(t, []byte("payload"), data)
	})

	t.Run("PutReplaces", func(t *testing.T) {
		require.NoError(t, b.Put(ctx, "a/records", []byte("v2")))

		data, err := ReadAll(ctx, b, "a/records")
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), data)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, b.Put(ctx, "a/manifest", []byte("m")))
		require.NoError(t, b.Put(ctx, "b/other", []byte("o")))

		names, err := b.List(ctx, "a/")
		require.NoError(t, err)
		assert.Equal(t, []string{"a/manifest", "a/records"}, names)
	})

	t.Run("DeleteIsIdempotent", func(t *testing.T) {
		require.NoError(t, b.Delete(ctx, "a/records"))
		require.NoError(t, b.Delete(ctx, "a/records"))

		_, err := b.Open(ctx, "a/records")
		require.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestMemory(t *testing.T) {
	testBucket(t, NewMemory())
}

func TestLocal(t *testing.T) {
	b, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	testBucket(t, b)
}

func TestNewLocalMissingDir(t *testing.T) {
	_, err := NewLocal("/does/not/exist")
	require.Error(t, err)
}
