package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/passage/internal/answer"
	"github.com/hyperjump/passage/internal/config"
	"github.com/hyperjump/passage/internal/embedding"
	"github.com/hyperjump/passage/internal/extract"
	"github.com/hyperjump/passage/internal/generate"
	"github.com/hyperjump/passage/internal/index"
	"github.com/hyperjump/passage/internal/ingest"
	"github.com/hyperjump/passage/internal/retrieval"
	"github.com/hyperjump/passage/internal/segment"
	"github.com/hyperjump/passage/internal/storage"
)

// Components holds the read side: a loaded index and the services over it.
type Components struct {
	Embedder  embedding.Embedder
	Index     *index.Index
	Retriever *retrieval.Retriever
	Answers   *answer.Service
	Catalog   storage.Catalog
}

// Close releases everything that was opened.
func (c *Components) Close() {
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
	if c.Index != nil {
		_ = c.Index.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
}

func newEmbedder(cfg *config.Config) (embedding.Embedder, error) {
	e, err := embedding.New(embedding.Options{
		Provider:    cfg.Embedding.Provider,
		ModelPath:   cfg.Embedding.ModelPath,
		LibraryPath: cfg.Embedding.LibraryPath,
		OutputName:  cfg.Embedding.OutputName,
		Pooling:     cfg.Embedding.Pooling,
		Model:       cfg.Embedding.Model,
		BaseURL:     cfg.Embedding.BaseURL,
		APIKeyEnv:   cfg.Embedding.APIKeyEnv,
		Dimensions:  cfg.Embedding.Dimensions,
		MaxTokens:   cfg.Embedding.MaxTokens,
		CacheSize:   cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return e, nil
}

// modelName identifies the encoder in the manifest and the catalog.
func modelName(cfg *config.Config) string {
	switch {
	case cfg.Embedding.Model != "":
		return cfg.Embedding.Model
	case cfg.Embedding.Provider == embedding.ProviderONNX && cfg.Embedding.ModelPath != "":
		return strings.TrimSuffix(filepath.Base(cfg.Embedding.ModelPath), filepath.Ext(cfg.Embedding.ModelPath))
	default:
		return cfg.Embedding.Provider
	}
}

func newIngester(cfg *config.Config, logger *zap.Logger, debug bool) (*ingest.Ingester, error) {
	segOpts := []segment.Option{segment.WithHardMaxWords(cfg.Segment.HardMaxWords)}
	ingOpts := []ingest.Option{
		ingest.WithExtensions(cfg.Ingest.Extensions),
		ingest.WithRecursive(cfg.Ingest.RecursiveOrDefault()),
		ingest.WithLogger(logger),
	}
	if debug {
		segOpts = append(segOpts, segment.WithLogger(logger))
	}
	seg, err := segment.NewSegmenter(cfg.Segment.MaxWords, cfg.Segment.Overlap(), segOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize segmenter: %w", err)
	}
	return ingest.NewIngester(extract.NewExtractor(), seg, cfg.Storage.ChunkDir, ingOpts...), nil
}

// runIngest writes one chunk record file per source document in data_dir.
func runIngest(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool) (*ingest.Report, error) {
	in, err := newIngester(cfg, logger, debug)
	if err != nil {
		return nil, err
	}
	return in.IngestDirectory(ctx, cfg.Ingest.DataDir)
}

// runIngestFile adds or replaces the chunk record file of one document,
// leaving the records of other sources in place.
func runIngestFile(ctx context.Context, cfg *config.Config, logger *zap.Logger, debug bool, path string) (*ingest.Report, error) {
	in, err := newIngester(cfg, logger, debug)
	if err != nil {
		return nil, err
	}
	src, err := in.IngestFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return &ingest.Report{Sources: []ingest.Source{src}, Chunks: src.Chunks}, nil
}

// runBuild embeds every chunk record, records the run in the catalog and then
// installs the store pair. A run the catalog could not record is never
// installed.
func runBuild(ctx context.Context, cfg *config.Config, enc embedding.Embedder, logger *zap.Logger) (*index.Index, error) {
	chunks, err := ingest.ReadChunkDir(cfg.Storage.ChunkDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read chunk records: %w", err)
	}
	b := index.NewBuilder(enc,
		index.WithBatchSize(cfg.Embedding.BatchSize),
		index.WithIndexType(cfg.Vector.IndexType),
		index.WithModel(modelName(cfg)),
		index.WithLogger(logger),
	)
	idx, err := b.Build(ctx, chunks)
	if err != nil {
		return nil, err
	}

	catalog, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer catalog.Close()
	m := idx.Manifest()
	run := storage.Run{
		ID:         m.RunID,
		CreatedAt:  m.CreatedAt,
		Model:      m.Model,
		Dimensions: m.Dimensions,
		IndexDir:   cfg.Storage.IndexDir,
	}
	if err := catalog.RecordRun(ctx, run, idx.Chunks()); err != nil {
		idx.Close()
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	if err := idx.Save(cfg.Storage.IndexDir); err != nil {
		idx.Close()
		fields := []zap.Field{zap.String("recorded_run_id", m.RunID), zap.Error(err)}
		if installed, mErr := index.ReadManifest(cfg.Storage.IndexDir); mErr == nil && installed.RunID != "" {
			fields = append(fields, zap.String("installed_run_id", installed.RunID))
		}
		logger.Error("catalog describes a run that was not installed; rebuild to resync", fields...)
		return nil, err
	}
	logger.Info("index saved",
		zap.String("run_id", m.RunID),
		zap.String("dir", cfg.Storage.IndexDir),
		zap.Int("chunks", idx.Len()))
	return idx, nil
}

// ingestAndBuild runs a full pipeline pass. Each pass produces a fresh index.
func ingestAndBuild(ctx context.Context, cfg *config.Config, enc embedding.Embedder, logger *zap.Logger, debug bool) error {
	report, err := runIngest(ctx, cfg, logger, debug)
	if err != nil {
		return err
	}
	logger.Info("ingest finished", zap.Int("sources", len(report.Sources)), zap.Int("chunks", report.Chunks), zap.Int("skipped", len(report.Skipped)))
	idx, err := runBuild(ctx, cfg, enc, logger)
	if err != nil {
		return err
	}
	return idx.Close()
}

func newRetriever(cfg *config.Config, idx *index.Index, enc embedding.Embedder, logger *zap.Logger, debug bool) (*retrieval.Retriever, error) {
	opts := []retrieval.Option{
		retrieval.WithSimilarityThreshold(cfg.Retrieval.Threshold()),
		retrieval.WithMinKeywordRatio(cfg.Retrieval.KeywordRatio()),
		retrieval.WithDefaultK(cfg.Retrieval.DefaultK),
		retrieval.WithMaxK(cfg.Retrieval.MaxK),
		retrieval.WithStopwords(cfg.Retrieval.Stopwords...),
	}
	if debug {
		opts = append(opts, retrieval.WithLogger(logger))
	}
	return retrieval.NewRetriever(idx, enc, opts...)
}

func newGenerator(cfg *config.Config) (generate.Generator, error) {
	return generate.New(generate.Options{
		Provider:      cfg.Generation.Provider,
		Model:         cfg.Generation.Model,
		BaseURL:       cfg.Generation.BaseURL,
		APIKeyEnv:     cfg.Generation.APIKeyEnv,
		MaxTokens:     cfg.Generation.MaxTokens,
		Temperature:   cfg.Generation.Temperature,
		StopSequences: cfg.Generation.StopSequences,
	})
}

// initializeComponents loads the persisted index and wires the read side.
// A missing or inconsistent index is returned as an error wrapping
// index.ErrIndexUnavailable.
func initializeComponents(cfg *config.Config, logger *zap.Logger, debug bool) (*Components, error) {
	c := &Components{}
	enc, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	c.Embedder = enc

	idx, err := index.Load(cfg.Storage.IndexDir, cfg.Vector.IndexType)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Index = idx
	if logger != nil {
		m := idx.Manifest()
		logger.Info("index loaded",
			zap.String("dir", cfg.Storage.IndexDir),
			zap.String("type", idx.Type()),
			zap.String("run_id", m.RunID),
			zap.Int("chunks", idx.Len()))
	}

	r, err := newRetriever(cfg, idx, enc, logger, debug)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Retriever = r

	gen, err := newGenerator(cfg)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	ansOpts := []answer.Option{}
	if debug {
		ansOpts = append(ansOpts, answer.WithLogger(logger))
	}
	c.Answers = answer.NewService(r, gen, ansOpts...)

	catalog, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		if logger != nil {
			logger.Warn("catalog unavailable", zap.String("path", cfg.Storage.DatabasePath), zap.Error(err))
		}
	} else {
		c.Catalog = catalog
	}
	return c, nil
}

// diskPaths lists the on-disk state counted by status.
func diskPaths(cfg *config.Config) []string {
	return []string{cfg.Storage.ChunkDir, cfg.Storage.IndexDir, cfg.Storage.DatabasePath}
}

func isUnavailable(err error) bool {
	return errors.Is(err, index.ErrIndexUnavailable)
}
