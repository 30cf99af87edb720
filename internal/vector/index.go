// Package vector provides dense vector stores with exact inner-product search.
package vector

import (
	"context"
	"errors"
)

// NoMatch is the candidate index reported for an empty result slot.
const NoMatch = -1

// ErrDimensionMismatch is returned when a vector's length differs from the store's dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// VectorIndex is an append-only ordered collection of vectors. A vector's
// position is its index id.
type VectorIndex interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]Candidate, error)
	Save(path string) error
	Load(path string) error
	Dimensions() int
	Size() int
	Type() string
	Close() error
}

// Candidate is a single search hit: a position in the index and its inner
// product with the query. Index is NoMatch for an empty slot.
type Candidate struct {
	Index int
	Score float64
}

// InnerProduct returns the inner product of two equal-length vectors.
// For unit vectors this is cosine similarity.
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}
