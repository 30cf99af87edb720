//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

import (
	"context"
	"errors"
)

var errNoFAISS = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")

// FAISSIndex is unavailable without the faiss build tag.
type FAISSIndex struct{}

// NewFAISSIndex returns an error because FAISS is not compiled in.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error { return errNoFAISS }

func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]Candidate, error) {
	return nil, errNoFAISS
}

func (f *FAISSIndex) Save(path string) error { return errNoFAISS }

func (f *FAISSIndex) Load(path string) error { return errNoFAISS }

func (f *FAISSIndex) Dimensions() int { return 0 }

func (f *FAISSIndex) Size() int { return 0 }

func (f *FAISSIndex) Close() error { return nil }

func (f *FAISSIndex) Type() string { return string(IndexTypeFAISS) }
