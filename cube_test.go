package memcube

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/memcube/blobstore"
	"github.com/hupe1980/memcube/embedding"
	"github.com/hupe1980/memcube/model"
	"github.com/hupe1980/memcube/reader"
)

func newTestCube(t *testing.T) *Cube {
	t.Helper()

	cube, err := newCube(model.NewCubeID(), applyOptions(nil), embedding.NewMock(testDimensions), reader.NewNaiveReader())
	require.NoError(t, err)
	return cube
}

func TestCubeSearchDefaults(t *testing.T) {
	ctx := context.Background()
	cube := newTestCube(t)

	for i := range 10 {
		_, err := cube.Add(ctx, turns(fmt.Sprintf("note number %d about coffee", i)))
		require.NoError(t, err)
	}

	// k <= 0 falls back to DefaultTopK.
	hits, err := cube.Search(ctx, "coffee", 0)
	require.NoError(t, err)
	assert.Len(t, hits, DefaultTopK)

	// k larger than the cube returns everything.
	hits, err = cube.Search(ctx, "coffee", 100)
	require.NoError(t, err)
	assert.Len(t, hits, 10)
}

func TestCubeSearchTieBreak(t *testing.T) {
	ctx := context.Background()
	cube := newTestCube(t)

	_, err := cube.Add(ctx, turns("identical note"))
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	newer, err := cube.Add(ctx, turns("identical note"))
	require.NoError(t, err)

	hits, err := cube.Search(ctx, "identical note", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	// Equal scores rank the most recent record first.
	assert.InDelta(t, hits[0].Score, hits[1].Score, 1e-6)
	assert.Equal(t, newer[0].ID, hits[0].Record.ID)
}

func TestCubeResultsAreClones(t *testing.T) {
	ctx := context.Background()
	cube := newTestCube(t)

	added, err := cube.Add(ctx, turns("original text"))
	require.NoError(t, err)
	require.Len(t, added, 1)

	// Mutating a returned record must not affect stored state.
	added[0].Text = "mutated"
	added[0].Embedding[0] = 42

	hits, err := cube.Search(ctx, "original text", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "original text", hits[0].Record.Text)
	assert.NotEqual(t, float32(42), hits[0].Record.Embedding[0])
}

func TestCubeAddKeepsProvenance(t *testing.T) {
	ctx := context.Background()
	cube := newTestCube(t)

	source := []model.Message{
		{Role: model.RoleUser, Content: "I collect vinyl records."},
		{Role: "moderator", Content: "approved"},
	}

	added, err := cube.Add(ctx, source)
	require.NoError(t, err)
	require.Len(t, added, 2)

	for _, rec := range added {
		assert.Equal(t, source, rec.SourceTurns)
	}
}

func TestCubeDeleteAndGet(t *testing.T) {
	ctx := context.Background()
	cube := newTestCube(t)

	added, err := cube.Add(ctx, turns("fact to forget", "fact to keep"))
	require.NoError(t, err)
	require.Len(t, added, 2)

	rec, err := cube.Get(added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "fact to forget", rec.Text)

	require.NoError(t, cube.Delete(added[0].ID))
	assert.Equal(t, 1, cube.Len())

	_, err = cube.Get(added[0].ID)
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, cube.Delete(added[0].ID), ErrNotFound)

	// Deleted records no longer surface in search.
	hits, err := cube.Search(ctx, "fact to forget", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, added[1].ID, hits[0].Record.ID)
}

func TestCubeConcurrentAddSearch(t *testing.T) {
	ctx := context.Background()
	cube := newTestCube(t)

	const writers = 4
	const perWriter = 25

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for w := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perWriter {
				_, err := cube.Add(ctx, turns(fmt.Sprintf("writer %d fact %d", w, i)))
				assert.NoError(t, err)
			}
		}()
	}

	// Readers must only ever observe fully formed records: pre- or
	// post-add state, never a half-inserted one.
	var readers sync.WaitGroup
	for range 4 {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}

				hits, err := cube.Search(ctx, "fact", 10)
				if !assert.NoError(t, err) {
					return
				}
				for _, hit := range hits {
					assert.NotEmpty(t, hit.Record.ID)
					assert.NotEmpty(t, hit.Record.Text)
					assert.Len(t, hit.Record.Embedding, testDimensions)
					assert.False(t, hit.Record.CreatedAt.IsZero())
				}
			}
		}()
	}

	wg.Wait()
	close(stop)
	readers.Wait()

	assert.Equal(t, writers*perWriter, cube.Len())
}

func TestCubeConcurrentAddLoad(t *testing.T) {
	ctx := context.Background()
	cube := newTestCube(t)

	_, err := cube.Add(ctx, turns("seed fact"))
	require.NoError(t, err)

	bucket := blobstore.NewMemory()
	require.NoError(t, cube.DumpTo(ctx, bucket))

	// Adds and snapshot loads interleave freely; every interleaving must
	// leave a consistent cube with its construction-time dimension.
	var wg sync.WaitGroup
	for w := range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				_, err := cube.Add(ctx, turns(fmt.Sprintf("volatile %d fact %d", w, i)))
				assert.NoError(t, err)
			}
		}()
	}
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				assert.NoError(t, cube.LoadFrom(ctx, bucket))
				assert.Equal(t, testDimensions, cube.Dimension())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, testDimensions, cube.Dimension())
	assert.GreaterOrEqual(t, cube.Len(), 1)

	hits, err := cube.Search(ctx, "fact", 5)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}
