package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/passage/internal/fileid"
	"github.com/hyperjump/passage/internal/models"
)

// SQLiteStorage implements Catalog using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL,
		model TEXT,
		dimensions INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		source_count INTEGER NOT NULL,
		index_dir TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS sources (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		pages INTEGER NOT NULL,
		last_page INTEGER NOT NULL,
		chunk_count INTEGER NOT NULL,
		run_id TEXT NOT NULL REFERENCES runs(id)
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id TEXT PRIMARY KEY,
		position INTEGER NOT NULL UNIQUE,
		source_id TEXT NOT NULL REFERENCES sources(id),
		file TEXT NOT NULL,
		page INTEGER NOT NULL,
		text TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks(source_id, page);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordRun stores run and replaces the catalog's sources and chunks with
// chunks, whose order must be the index order.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run Run, chunks []models.Chunk) error {
	sources := summarize(chunks)
	run.ChunkCount = len(chunks)
	run.SourceCount = len(sources)
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, created_at, model, dimensions, chunk_count, source_count, index_dir)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt, run.Model, run.Dimensions, run.ChunkCount, run.SourceCount, run.IndexDir,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sources`); err != nil {
		return fmt.Errorf("failed to clear sources: %w", err)
	}

	srcStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sources (id, name, pages, last_page, chunk_count, run_id) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer srcStmt.Close()
	for _, src := range sources {
		if _, err := srcStmt.ExecContext(ctx, src.ID, src.Name, src.Pages, src.LastPage, src.Chunks, run.ID); err != nil {
			return fmt.Errorf("failed to insert source %s: %w", src.Name, err)
		}
	}

	chunkStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, position, source_id, file, page, text) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()
	for i, c := range chunks {
		if _, err := chunkStmt.ExecContext(ctx, c.ID, i, fileid.SourceID(c.Source), c.Source, c.Page, c.Text); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// summarize groups chunks by source in first-seen order.
func summarize(chunks []models.Chunk) []SourceRecord {
	var out []SourceRecord
	seen := make(map[string]int)
	pages := make(map[string]map[int]bool)
	for _, c := range chunks {
		i, ok := seen[c.Source]
		if !ok {
			i = len(out)
			seen[c.Source] = i
			out = append(out, SourceRecord{ID: fileid.SourceID(c.Source), Name: c.Source})
			pages[c.Source] = make(map[int]bool)
		}
		out[i].Chunks++
		pages[c.Source][c.Page] = true
		if c.Page > out[i].LastPage {
			out[i].LastPage = c.Page
		}
	}
	for i := range out {
		out[i].Pages = len(pages[out[i].Name])
	}
	return out
}

// LatestRun returns the most recent run.
func (s *SQLiteStorage) LatestRun(ctx context.Context) (*Run, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("run %w", ErrNotFound)
	}
	return &runs[0], nil
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_at, model, dimensions, chunk_count, source_count, index_dir
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			model    sql.NullString
			indexDir sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.CreatedAt, &model, &r.Dimensions, &r.ChunkCount, &r.SourceCount, &indexDir); err != nil {
			return nil, err
		}
		r.Model = model.String
		r.IndexDir = indexDir.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListSources returns the sources of the latest run ordered by name.
func (s *SQLiteStorage) ListSources(ctx context.Context) ([]SourceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, pages, last_page, chunk_count, run_id FROM sources ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SourceRecord
	for rows.Next() {
		var r SourceRecord
		if err := rows.Scan(&r.ID, &r.Name, &r.Pages, &r.LastPage, &r.Chunks, &r.RunID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetChunk returns a chunk and its index position by ID.
func (s *SQLiteStorage) GetChunk(ctx context.Context, id string) (*models.Chunk, int, error) {
	var (
		c   models.Chunk
		pos int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, position, file, page, text FROM chunks WHERE id = ?`, id,
	).Scan(&c.ID, &pos, &c.Source, &c.Page, &c.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, fmt.Errorf("chunk %s %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, 0, err
	}
	return &c, pos, nil
}

// CountChunks returns the number of chunks in the latest run.
func (s *SQLiteStorage) CountChunks(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
