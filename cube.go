package memcube

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/hupe1980/memcube/blobstore"
	"github.com/hupe1980/memcube/codec"
	"github.com/hupe1980/memcube/embedding"
	"github.com/hupe1980/memcube/index/flat"
	"github.com/hupe1980/memcube/internal/flock"
	"github.com/hupe1980/memcube/model"
	"github.com/hupe1980/memcube/reader"
	"github.com/hupe1980/memcube/resource"
	"github.com/hupe1980/memcube/snapshot"
)

// DefaultTopK is the per-cube result budget used when a search does not
// specify k.
const DefaultTopK = 5

// Cube is one memory cube: a record table plus an exact similarity index
// over one embedding space. Safe for concurrent use.
//
// Ingestion runs extraction and embedding outside the cube lock; the write
// lock is taken only for the final insert, so concurrent readers observe
// either the pre-add or the post-add state, never a partial one.
type Cube struct {
	id        model.CubeID
	dimension int
	embedder  embedding.Embedder
	reader    reader.Reader
	governor  *resource.Governor
	codec     codec.Codec
	compress  bool
	logger    *Logger
	metrics   MetricsCollector

	mu      sync.RWMutex
	index   *flat.Index
	records map[model.RecordID]*model.MemoryRecord
}

func newCube(id model.CubeID, o options, embedder embedding.Embedder, rd reader.Reader) (*Cube, error) {
	idx, err := flat.New(embedder.Dimensions())
	if err != nil {
		return nil, translateError(err)
	}

	return &Cube{
		id:        id,
		dimension: embedder.Dimensions(),
		embedder:  embedder,
		reader:    rd,
		governor:  o.governor,
		codec:     o.codec,
		compress:  o.compress,
		logger:    o.logger.WithCube(id),
		metrics:   o.metricsCollector,
		index:     idx,
		records:   make(map[model.RecordID]*model.MemoryRecord),
	}, nil
}

// ID returns the cube's identifier.
func (c *Cube) ID() model.CubeID { return c.id }

// Dimension returns the cube's embedding dimensionality. The dimension is
// fixed at construction; Load rejects snapshots that disagree with it.
func (c *Cube) Dimension() int { return c.dimension }

// Len returns the number of records in the cube.
func (c *Cube) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Add ingests conversation turns: extraction, embedding, then insertion.
//
// Zero extracted candidates is a valid outcome: the cube is left unchanged
// and an empty slice is returned with a nil error. A failed pipeline stage
// returns a *PipelineFault and inserts nothing.
func (c *Cube) Add(ctx context.Context, turns []model.Message) ([]*model.MemoryRecord, error) {
	start := time.Now()
	inserted, err := c.add(ctx, turns)
	c.metrics.RecordAdd(len(inserted), time.Since(start), err)
	c.logger.LogAdd(ctx, c.id, len(inserted), err)
	return inserted, err
}

func (c *Cube) add(ctx context.Context, turns []model.Message) ([]*model.MemoryRecord, error) {
	candidates, err := c.reader.Extract(ctx, turns)
	if err != nil {
		return nil, pipelineFault(StageExtract, err)
	}
	if len(candidates) == 0 {
		return []*model.MemoryRecord{}, nil
	}

	staged := make([]*model.MemoryRecord, 0, len(candidates))

	for _, text := range candidates {
		var vec []float32
		err := c.governor.Do(ctx, func(ctx context.Context) error {
			var embedErr error
			vec, embedErr = c.embedder.Embed(ctx, text)
			return embedErr
		})
		if err != nil {
			return nil, pipelineFault(StageEmbed, err)
		}
		if len(vec) != c.dimension {
			return nil, pipelineFault(StageEmbed, &DimensionMismatchError{Expected: c.dimension, Actual: len(vec)})
		}

		staged = append(staged, &model.MemoryRecord{
			ID:          model.NewRecordID(),
			Text:        text,
			Embedding:   vec,
			SourceTurns: append([]model.Message(nil), turns...),
			CreatedAt:   time.Now().UTC(),
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for i, rec := range staged {
		if err := c.index.Insert(rec.ID, rec.Embedding); err != nil {
			// Fresh ids and validated dimensions make this unreachable in
			// practice; undo so a fault never leaves a partial insert.
			for _, prev := range staged[:i] {
				_ = c.index.Remove(prev.ID)
				delete(c.records, prev.ID)
			}
			return nil, translateError(err)
		}
		c.records[rec.ID] = rec
	}

	out := make([]*model.MemoryRecord, len(staged))
	for i, rec := range staged {
		out[i] = rec.Clone()
	}
	return out, nil
}

// Delete removes a record from the table and the index. Records are
// immutable, so an update is a Delete followed by an Add.
func (c *Cube) Delete(id model.RecordID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	if err := c.index.Remove(id); err != nil {
		return translateError(err)
	}
	delete(c.records, id)
	return nil
}

// Get returns a copy of the record with the given id.
func (c *Cube) Get(id model.RecordID) (*model.MemoryRecord, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rec, ok := c.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: record %s", ErrNotFound, id)
	}
	return rec.Clone(), nil
}

// Search embeds the query and returns the k most similar records, ordered
// by descending score with ties broken by the most recent CreatedAt.
// k <= 0 selects DefaultTopK. An empty cube yields an empty result.
func (c *Cube) Search(ctx context.Context, query string, k int) ([]model.ScoredRecord, error) {
	start := time.Now()
	hits, err := c.search(ctx, query, k)
	c.metrics.RecordSearch(k, time.Since(start), err)
	c.logger.LogSearch(ctx, k, 1, len(hits), err)
	return hits, err
}

func (c *Cube) search(ctx context.Context, query string, k int) ([]model.ScoredRecord, error) {
	if k <= 0 {
		k = DefaultTopK
	}

	var vec []float32
	err := c.governor.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vec, embedErr = c.embedder.Embed(ctx, query)
		return embedErr
	})
	if err != nil {
		return nil, pipelineFault(StageEmbed, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.records) == 0 {
		return []model.ScoredRecord{}, nil
	}

	candidates, err := c.index.Query(vec, k)
	if err != nil {
		return nil, translateError(err)
	}

	hits := make([]model.ScoredRecord, 0, len(candidates))
	for _, cand := range candidates {
		rec, ok := c.records[cand.ID]
		if !ok {
			continue
		}
		hits = append(hits, model.ScoredRecord{Record: rec.Clone(), Score: cand.Score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.CreatedAt.After(hits[j].Record.CreatedAt)
	})

	return hits, nil
}

// Dump writes a self-contained snapshot of the cube into dir.
//
// Precondition: dir exists, is empty, and is writable; otherwise
// ErrPreconditionFailed is returned and nothing is modified. The directory
// is held exclusively via an advisory lock for the write duration.
//
// Snapshots carry content only: records and their embeddings, never user
// identity or access grants.
func (c *Cube) Dump(ctx context.Context, dir string) error {
	start := time.Now()
	records, err := c.dumpLocal(ctx, dir)
	c.metrics.RecordDump(records, time.Since(start), err)
	c.logger.LogDump(ctx, c.id, records, err)
	return err
}

func (c *Cube) dumpLocal(ctx context.Context, dir string) (int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: dump target %s: %w", ErrPreconditionFailed, dir, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("%w: dump target %s is not a directory", ErrPreconditionFailed, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: dump target %s is not readable: %w", ErrPreconditionFailed, dir, err)
	}
	if len(entries) > 0 {
		return 0, fmt.Errorf("%w: dump target %s is not empty", ErrPreconditionFailed, dir)
	}

	lock, err := flock.Acquire(dir)
	if err != nil {
		return 0, fmt.Errorf("%w: dump target %s is not lockable: %w", ErrPreconditionFailed, dir, err)
	}
	defer lock.Close()

	bucket, err := blobstore.NewLocal(dir)
	if err != nil {
		return 0, err
	}

	return c.writeSnapshot(ctx, bucket)
}

// DumpTo writes a snapshot into a remote bucket. The only precondition is
// that the bucket holds no snapshot yet.
func (c *Cube) DumpTo(ctx context.Context, bucket blobstore.Bucket) error {
	start := time.Now()

	records, err := func() (int, error) {
		exists, err := snapshot.Exists(ctx, bucket)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, fmt.Errorf("%w: dump target already holds a snapshot", ErrPreconditionFailed)
		}
		return c.writeSnapshot(ctx, bucket)
	}()

	c.metrics.RecordDump(records, time.Since(start), err)
	c.logger.LogDump(ctx, c.id, records, err)
	return err
}

func (c *Cube) writeSnapshot(ctx context.Context, bucket blobstore.Bucket) (int, error) {
	c.mu.RLock()
	records := make([]*model.MemoryRecord, 0, len(c.records))
	for _, rec := range c.records {
		records = append(records, rec)
	}
	c.mu.RUnlock()

	// Records are immutable after insert, so the snapshot can be written
	// off-lock from the captured references.
	sort.Slice(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.Before(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	_, err := snapshot.Write(ctx, bucket, records, c.dimension, func(o *snapshot.WriteOptions) {
		o.Codec = c.codec
		o.Compress = c.compress
	})
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// Load replaces the cube's content with a snapshot from dir. The new table
// and index are staged off-lock and swapped in atomically; a failed load
// leaves the cube untouched.
func (c *Cube) Load(ctx context.Context, dir string) error {
	bucket, err := blobstore.NewLocal(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: snapshot directory %s: %w", ErrNotFound, dir, err)
		}
		return err
	}
	return c.LoadFrom(ctx, bucket)
}

// LoadFrom replaces the cube's content with a snapshot read from a bucket.
func (c *Cube) LoadFrom(ctx context.Context, bucket blobstore.Bucket) error {
	start := time.Now()
	records, err := c.loadFrom(ctx, bucket)
	c.metrics.RecordLoad(records, time.Since(start), err)
	c.logger.LogLoad(ctx, c.id, records, err)
	return err
}

func (c *Cube) loadFrom(ctx context.Context, bucket blobstore.Bucket) (int, error) {
	manifest, records, err := snapshot.Read(ctx, bucket)
	if err != nil {
		if errors.Is(err, snapshot.ErrNoSnapshot) {
			return 0, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return 0, translateError(err)
	}

	if manifest.Dimension != c.dimension {
		return 0, &DimensionMismatchError{Expected: c.dimension, Actual: manifest.Dimension}
	}

	// Stage a fresh table and index before touching live state.
	idx, err := flat.New(c.dimension)
	if err != nil {
		return 0, translateError(err)
	}

	table := make(map[model.RecordID]*model.MemoryRecord, len(records))
	for _, rec := range records {
		if err := idx.Insert(rec.ID, rec.Embedding); err != nil {
			return 0, translateError(err)
		}
		table[rec.ID] = rec
	}

	c.mu.Lock()
	c.index = idx
	c.records = table
	c.mu.Unlock()

	return len(records), nil
}
