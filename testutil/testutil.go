// Package testutil provides test helpers: seeded random vector generation
// and exact top-k ground truth.
//
// This package is intended for use in tests and benchmarks only.
package testutil

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/hupe1980/memcube/distance"
)

// RNG encapsulates a deterministic random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// UniformVectors generates random vectors with values in range [0, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformVectors(num, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses a Gaussian distribution for uniform coverage of the sphere.
func (r *RNG) UnitVectors(num, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vectors[i] = r.unitVectorLocked(data[i*dimensions : (i+1)*dimensions])
	}

	return vectors
}

// UnitVector generates a single L2-normalized random vector.
func (r *RNG) UnitVector(dimensions int) []float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unitVectorLocked(make([]float32, dimensions))
}

func (r *RNG) unitVectorLocked(vec []float32) []float32 {
	var norm float64
	for j := range vec {
		v := r.rand.NormFloat64()
		vec[j] = float32(v)
		norm += v * v
	}

	if norm == 0 {
		norm = 1
	}

	invNorm := float32(1.0 / math.Sqrt(norm))
	for j := range vec {
		vec[j] *= invNorm
	}
	return vec
}

// Neighbor is one exact search result.
type Neighbor struct {
	Index int
	Score float32
}

// ExactTopK computes the exact k best-scoring dataset entries for query
// under the given metric. Ties break toward the lower index. Panics on an
// unsupported metric since it is a test helper.
func ExactTopK(query []float32, dataset [][]float32, k int, metric distance.Metric) []Neighbor {
	score, err := distance.Provider(metric)
	if err != nil {
		panic(err)
	}

	neighbors := make([]Neighbor, len(dataset))
	for i, vec := range dataset {
		neighbors[i] = Neighbor{Index: i, Score: score(query, vec)}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	})

	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors
}
