// Package storage keeps a SQLite catalog of index builds, their sources and
// chunk records.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/hyperjump/passage/internal/models"
)

// ErrNotFound is returned when a catalog lookup has no match.
var ErrNotFound = errors.New("not found")

// Run describes one index build.
type Run struct {
	ID          string    `json:"run_id"`
	CreatedAt   time.Time `json:"created_at"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	ChunkCount  int       `json:"chunks"`
	SourceCount int       `json:"sources"`
	IndexDir    string    `json:"index_dir"`
}

// SourceRecord is a source document as seen by the latest build.
type SourceRecord struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Pages    int    `json:"pages"`
	Chunks   int    `json:"chunks"`
	RunID    string `json:"run_id"`
	LastPage int    `json:"last_page"`
}

// Catalog records index builds. The sources and chunks tables always describe
// the most recent run; the runs table keeps history.
type Catalog interface {
	RecordRun(ctx context.Context, run Run, chunks []models.Chunk) error
	LatestRun(ctx context.Context) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	ListSources(ctx context.Context) ([]SourceRecord, error)
	GetChunk(ctx context.Context, id string) (*models.Chunk, int, error)
	CountChunks(ctx context.Context) (int64, error)
	Close() error
}
