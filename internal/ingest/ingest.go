// Package ingest walks source documents, segments their pages and writes one
// chunk record file per source.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hyperjump/passage/internal/extract"
	"github.com/hyperjump/passage/internal/fileid"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/segment"
	"go.uber.org/zap"
)

// ErrNoDocuments is returned when a directory holds no ingestible files.
var ErrNoDocuments = errors.New("no input documents found")

// Source summarizes one ingested document.
type Source struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Key       string `json:"key"`
	ChunkFile string `json:"chunk_file"`
	Pages     int    `json:"pages"`
	Chunks    int    `json:"chunks"`
}

// Report summarizes an ingestion run.
type Report struct {
	Sources []Source `json:"sources"`
	Chunks  int      `json:"chunks"`
	Skipped []string `json:"skipped,omitempty"`
}

// Ingester turns documents into chunk record files.
type Ingester struct {
	extractor  *extract.Extractor
	segmenter  *segment.Segmenter
	chunkDir   string
	extensions []string
	recursive  bool
	logger     *zap.Logger
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithExtensions restricts ingestion to these extensions (with or without dot).
func WithExtensions(exts []string) Option {
	return func(in *Ingester) {
		if len(exts) > 0 {
			in.extensions = exts
		}
	}
}

// WithRecursive controls whether subdirectories are walked.
func WithRecursive(r bool) Option {
	return func(in *Ingester) { in.recursive = r }
}

// WithLogger sets a logger for per-file events.
func WithLogger(l *zap.Logger) Option {
	return func(in *Ingester) { in.logger = l }
}

// NewIngester creates an ingester writing chunk files to chunkDir.
func NewIngester(ex *extract.Extractor, seg *segment.Segmenter, chunkDir string, opts ...Option) *Ingester {
	in := &Ingester{
		extractor:  ex,
		segmenter:  seg,
		chunkDir:   chunkDir,
		extensions: extract.DefaultExtensions,
		recursive:  true,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// IngestDirectory ingests every matching file under dir. Chunk files from
// earlier runs are removed first so the chunk directory reflects dir exactly.
// A file that fails to extract is skipped and reported; two files mapping to
// the same source key are an error.
func (in *Ingester) IngestDirectory(ctx context.Context, dir string) (*Report, error) {
	paths, err := in.collect(dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoDocuments, dir)
	}

	keys := make(map[string]string, len(paths))
	for _, p := range paths {
		rel, _ := filepath.Rel(dir, p)
		key := fileid.SourceKey(rel)
		if other, dup := keys[key]; dup {
			return nil, fmt.Errorf("sources %s and %s both map to chunk key %q", other, rel, key)
		}
		keys[key] = rel
	}

	if err := in.clearChunkDir(); err != nil {
		return nil, err
	}

	report := &Report{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel, _ := filepath.Rel(dir, p)
		src, err := in.ingest(p, filepath.ToSlash(rel))
		if err != nil {
			if in.logger != nil {
				in.logger.Warn("skipping document", zap.String("path", p), zap.Error(err))
			}
			report.Skipped = append(report.Skipped, rel)
			continue
		}
		report.Sources = append(report.Sources, src)
		report.Chunks += src.Chunks
	}
	if len(report.Sources) == 0 {
		return report, fmt.Errorf("%w: every document in %s failed to extract", ErrNoDocuments, dir)
	}
	return report, nil
}

// IngestFile ingests a single document, replacing its chunk file.
func (in *Ingester) IngestFile(ctx context.Context, path string) (Source, error) {
	if err := ctx.Err(); err != nil {
		return Source{}, err
	}
	return in.ingest(path, filepath.Base(path))
}

func (in *Ingester) ingest(path, name string) (Source, error) {
	pages, err := in.extractor.ExtractPages(path)
	if err != nil {
		return Source{}, fmt.Errorf("extract %s: %w", name, err)
	}
	key := fileid.SourceKey(name)
	var chunks []models.Chunk
	for _, page := range pages {
		chunks = append(chunks, in.segmenter.SegmentPage(key, name, page)...)
	}
	out := filepath.Join(in.chunkDir, key+ChunkFileExt)
	if err := WriteChunkFile(out, chunks); err != nil {
		return Source{}, err
	}
	if in.logger != nil {
		in.logger.Info("ingested document",
			zap.String("source", name),
			zap.Int("pages", len(pages)),
			zap.Int("chunks", len(chunks)))
	}
	return Source{
		Path:      path,
		Name:      name,
		Key:       key,
		ChunkFile: out,
		Pages:     len(pages),
		Chunks:    len(chunks),
	}, nil
}

func (in *Ingester) collect(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("stat directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}
	var paths []string
	err = filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if path != dir && (!in.recursive || strings.HasPrefix(d.Name(), ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || !extensionAllowed(filepath.Ext(path), in.extensions) {
			return nil
		}
		finfo, statErr := os.Stat(path)
		if statErr != nil || !finfo.Mode().IsRegular() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

func (in *Ingester) clearChunkDir() error {
	files, err := ChunkFiles(in.chunkDir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("list chunk files: %w", err)
	}
	for _, f := range files {
		if err := os.Remove(f); err != nil {
			return fmt.Errorf("remove stale chunk file: %w", err)
		}
	}
	return nil
}

func extensionAllowed(ext string, allowed []string) bool {
	extNorm := strings.ToLower(strings.TrimPrefix(ext, "."))
	if extNorm == "" {
		return false
	}
	for _, a := range allowed {
		if strings.ToLower(strings.TrimPrefix(a, ".")) == extNorm {
			return true
		}
	}
	return false
}
