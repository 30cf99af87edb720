// Package models defines core data structures for pages, chunks, queries, and hits.
package models

import (
	"fmt"
	"strings"
)

// Page is the text of one page of a source document. Number is 1-based.
type Page struct {
	Number int    `json:"page"`
	Text   string `json:"text"`
}

// Chunk is a bounded passage of document text, the unit of indexing and retrieval.
// The JSON field names match the chunk record file and metadata store formats.
type Chunk struct {
	ID     string `json:"id"`
	Source string `json:"file"`
	Page   int    `json:"page"`
	Text   string `json:"text"`
}

// ChunkID derives the chunk identifier from a source key, page number and the
// chunk's sequence number within that page.
func ChunkID(sourceKey string, page, seq int) string {
	return fmt.Sprintf("%s_p%d_c%d", sourceKey, page, seq)
}

// NewChunk builds a chunk record with a derived ID.
func NewChunk(sourceKey, source string, page, seq int, text string) Chunk {
	return Chunk{
		ID:     ChunkID(sourceKey, page, seq),
		Source: source,
		Page:   page,
		Text:   text,
	}
}

// Validate reports whether the record is well formed.
func (c Chunk) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("chunk has empty id")
	}
	if c.Page < 1 {
		return fmt.Errorf("chunk %s: page must be >= 1, got %d", c.ID, c.Page)
	}
	if strings.TrimSpace(c.Text) == "" {
		return fmt.Errorf("chunk %s: empty text", c.ID)
	}
	return nil
}

// WordCount returns the number of whitespace-separated words in the chunk text.
func (c Chunk) WordCount() int {
	return len(strings.Fields(c.Text))
}
