// Package index builds, persists and loads the positionally aligned pair of
// vector store and chunk metadata store.
package index

import (
	"context"
	"fmt"
	"time"

	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/vector"
)

const (
	// VectorsFile holds the dense vectors.
	VectorsFile = "vectors.bin"
	// MetadataFile holds the JSON array of chunk records.
	MetadataFile = "meta.json"
	// ManifestFile describes the build that produced the pair.
	ManifestFile = "manifest.json"
)

// Manifest records how an index was built.
type Manifest struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
	Count      int       `json:"count"`
}

// Index is an immutable vector store with its aligned chunk records.
// chunks[i] describes the vector at position i. Safe for concurrent reads.
type Index struct {
	vectors  vector.VectorIndex
	chunks   []models.Chunk
	byID     map[string]int
	manifest Manifest
}

// New pairs a vector store with its chunk records after checking alignment.
func New(vectors vector.VectorIndex, chunks []models.Chunk, manifest Manifest) (*Index, error) {
	if vectors.Size() != len(chunks) {
		return nil, fmt.Errorf("%w: %d vectors, %d metadata entries", ErrIndexMetadataMismatch, vectors.Size(), len(chunks))
	}
	byID := make(map[string]int, len(chunks))
	for i, c := range chunks {
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrIndexMetadataMismatch, i, err)
		}
		if prev, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q at entries %d and %d", ErrIndexMetadataMismatch, c.ID, prev, i)
		}
		byID[c.ID] = i
	}
	manifest.Count = len(chunks)
	manifest.Dimensions = vectors.Dimensions()
	return &Index{vectors: vectors, chunks: chunks, byID: byID, manifest: manifest}, nil
}

// Search returns the raw vector-stage candidates for a query embedding.
func (x *Index) Search(ctx context.Context, query []float32, k int) ([]vector.Candidate, error) {
	return x.vectors.Search(ctx, query, k)
}

// Chunk returns the record at position i.
func (x *Index) Chunk(i int) (models.Chunk, bool) {
	if i < 0 || i >= len(x.chunks) {
		return models.Chunk{}, false
	}
	return x.chunks[i], true
}

// Lookup returns the record with the given chunk ID.
func (x *Index) Lookup(id string) (models.Chunk, bool) {
	i, ok := x.byID[id]
	if !ok {
		return models.Chunk{}, false
	}
	return x.chunks[i], true
}

// Chunks returns the metadata store in vector order. Callers must not modify it.
func (x *Index) Chunks() []models.Chunk {
	return x.chunks
}

// Len returns the number of indexed chunks.
func (x *Index) Len() int {
	return len(x.chunks)
}

// Dimensions returns the vector dimension.
func (x *Index) Dimensions() int {
	return x.vectors.Dimensions()
}

// Type returns the vector store implementation name.
func (x *Index) Type() string {
	return x.vectors.Type()
}

// Manifest returns the build manifest.
func (x *Index) Manifest() Manifest {
	return x.manifest
}

// Close releases the vector store.
func (x *Index) Close() error {
	return x.vectors.Close()
}
