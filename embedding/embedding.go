// Package embedding defines the embedder capability consumed by cubes.
//
// An Embedder maps text to fixed-length vectors. It is an external
// capability: implementations wrap remote APIs (see the openai subpackage)
// or local models. All calls are context-bounded; the cube layer reports
// failures and timeouts as pipeline faults.
package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/hupe1980/memcube/distance"
)

// Embedder converts text to vector embeddings.
type Embedder interface {
	// Embed converts a single text to an embedding vector.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int
}

// Mock is a deterministic, dependency-free Embedder for tests and examples.
//
// It hashes lowercased terms into a fixed number of buckets and L2-normalizes
// the result, so texts sharing terms get vectors with positive cosine
// similarity. It is not a semantic model.
type Mock struct {
	dimensions int
	failWith   error
}

// NewMock creates a mock embedder with the given dimensionality.
func NewMock(dimensions int) *Mock {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &Mock{dimensions: dimensions}
}

// FailWith makes every subsequent Embed call return err. Pass nil to heal.
func (m *Mock) FailWith(err error) { m.failWith = err }

// Embed implements Embedder.
func (m *Mock) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.failWith != nil {
		return nil, m.failWith
	}

	vec := make([]float32, m.dimensions)
	for _, term := range strings.Fields(strings.ToLower(text)) {
		term = strings.Trim(term, ".,!?;:\"'")
		if term == "" {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(term))
		vec[h.Sum32()%uint32(m.dimensions)]++
	}

	if !distance.NormalizeL2InPlace(vec) {
		// Text with no terms maps to a fixed unit vector so empty queries
		// still embed rather than error.
		vec[0] = 1
	}
	return vec, nil
}

// Dimensions implements Embedder.
func (m *Mock) Dimensions() int { return m.dimensions }

// Validate checks that an embedder returns vectors of its declared size.
func Validate(ctx context.Context, e Embedder) error {
	vec, err := e.Embed(ctx, "probe")
	if err != nil {
		return fmt.Errorf("embedding: probe failed: %w", err)
	}
	if len(vec) != e.Dimensions() {
		return fmt.Errorf("embedding: embedder declares %d dimensions but returned %d", e.Dimensions(), len(vec))
	}
	return nil
}
