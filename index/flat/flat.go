package flat

import (
	"container/heap"
	"errors"
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/memcube/distance"
	"github.com/hupe1980/memcube/model"
)

var (
	// ErrNotFound is returned when the given id is not in the index.
	ErrNotFound = errors.New("flat: id not found")

	// ErrDuplicateID is returned when inserting an id that already exists.
	ErrDuplicateID = errors.New("flat: duplicate id")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("flat: k must be positive")
)

// ErrDimensionMismatch indicates a vector/index dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("flat: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Candidate is a single query hit.
type Candidate struct {
	ID    model.RecordID
	Score float32
}

// Options configure a flat index.
type Options struct {
	// Dimension is the fixed vector dimensionality.
	Dimension int

	// Metric selects the similarity used for ranking.
	Metric distance.Metric
}

// DefaultOptions rank by cosine similarity.
var DefaultOptions = Options{
	Metric: distance.MetricCosine,
}

// Index is an exact nearest-neighbor index over fixed-dimension vectors.
// Safe for concurrent use.
type Index struct {
	mu        sync.RWMutex
	opts      Options
	simFn     distance.Func
	normalize bool

	vectors []float32 // contiguous slot storage, stride = Dimension
	ids     []model.RecordID
	slots   map[model.RecordID]uint32
	deleted *roaring.Bitmap
}

// New creates a flat index for vectors of the given dimension.
func New(dimension int, optFns ...func(o *Options)) (*Index, error) {
	opts := DefaultOptions
	opts.Dimension = dimension
	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Dimension <= 0 {
		return nil, fmt.Errorf("flat: invalid dimension: %d", opts.Dimension)
	}

	simFn, err := distance.Provider(opts.Metric)
	if err != nil {
		return nil, err
	}

	return &Index{
		opts:  opts,
		simFn: simFn,
		// Cosine ranking is a dot product over unit vectors; normalizing
		// once at insert time keeps the scan kernel branch-free.
		normalize: opts.Metric == distance.MetricCosine,
		slots:     make(map[model.RecordID]uint32),
		deleted:   roaring.New(),
	}, nil
}

// Dimension returns the fixed vector dimensionality.
func (idx *Index) Dimension() int { return idx.opts.Dimension }

// Len returns the number of live vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.slots)
}

// Insert adds a vector under the given id.
func (idx *Index) Insert(id model.RecordID, vector []float32) error {
	if len(vector) != idx.opts.Dimension {
		return &ErrDimensionMismatch{Expected: idx.opts.Dimension, Actual: len(vector)}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.slots[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}

	stored := vector
	if idx.normalize {
		if normalized, ok := distance.NormalizeL2Copy(vector); ok {
			stored = normalized
		}
	}

	var slot uint32
	if !idx.deleted.IsEmpty() {
		slot = idx.deleted.Minimum()
		idx.deleted.Remove(slot)
		copy(idx.vectors[int(slot)*idx.opts.Dimension:], stored)
		idx.ids[slot] = id
	} else {
		slot = uint32(len(idx.ids))
		idx.vectors = append(idx.vectors, stored...)
		idx.ids = append(idx.ids, id)
	}

	idx.slots[id] = slot
	return nil
}

// Remove deletes the vector stored under id.
// The slot is tombstoned and reused by a later insert.
func (idx *Index) Remove(id model.RecordID) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	slot, ok := idx.slots[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	delete(idx.slots, id)
	idx.ids[slot] = ""
	idx.deleted.Add(slot)
	return nil
}

// Query returns the k nearest ids by similarity, descending.
// k larger than the number of stored vectors returns all of them.
//
// When several candidates tie in score at the k-th position, which of them
// makes the cut is unspecified: the heap keeps the tied candidate it saw
// first. Callers that need a deterministic order among equal scores must
// re-rank the returned candidates with their own tiebreak.
func (idx *Index) Query(vector []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(vector) != idx.opts.Dimension {
		return nil, &ErrDimensionMismatch{Expected: idx.opts.Dimension, Actual: len(vector)}
	}

	query := vector
	if idx.normalize {
		if normalized, ok := distance.NormalizeL2Copy(vector); ok {
			query = normalized
		}
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	h := make(candidateHeap, 0, k)
	dim := idx.opts.Dimension
	for slot, id := range idx.ids {
		if id == "" {
			continue
		}
		score := idx.simFn(query, idx.vectors[slot*dim:(slot+1)*dim])
		if len(h) < k {
			heap.Push(&h, Candidate{ID: id, Score: score})
		} else if score > h[0].Score {
			h[0] = Candidate{ID: id, Score: score}
			heap.Fix(&h, 0)
		}
	}

	// Pop ascending, fill results back-to-front for descending order.
	results := make([]Candidate, len(h))
	for i := len(results) - 1; i >= 0; i-- {
		results[i] = heap.Pop(&h).(Candidate)
	}
	return results, nil
}

// candidateHeap is a min-heap by score, so the root is the weakest of the
// current top-k and can be evicted cheaply.
type candidateHeap []Candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].Score < h[j].Score }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap) Push(x any)        { *h = append(*h, x.(Candidate)) }
func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
