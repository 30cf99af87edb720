package index

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hyperjump/passage/internal/embedding"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/vector"
	"go.uber.org/zap"
)

const defaultBatchSize = 64

// Builder encodes chunk records into a new Index.
type Builder struct {
	embedder  embedding.Embedder
	indexType string
	model     string
	batchSize int
	logger    *zap.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithBatchSize sets how many chunk texts are sent to the encoder per call.
func WithBatchSize(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithIndexType selects the vector store implementation ("memory" or "faiss").
func WithIndexType(t string) BuilderOption {
	return func(b *Builder) {
		b.indexType = t
	}
}

// WithModel records the encoder name in the manifest.
func WithModel(name string) BuilderOption {
	return func(b *Builder) {
		b.model = name
	}
}

// WithLogger sets the logger for build progress.
func WithLogger(l *zap.Logger) BuilderOption {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder creates a builder using the given encoder.
func NewBuilder(e embedding.Embedder, opts ...BuilderOption) *Builder {
	b := &Builder{
		embedder:  e,
		indexType: string(vector.IndexTypeMemory),
		batchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build embeds every chunk in order and returns the aligned index.
// The chunk slice is copied.
func (b *Builder) Build(ctx context.Context, chunks []models.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, ErrEmptyCorpus
	}
	store, err := vector.NewVectorIndex(b.indexType, b.embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	records := make([]models.Chunk, len(chunks))
	copy(records, chunks)

	for start := 0; start < len(records); start += b.batchSize {
		end := start + b.batchSize
		if end > len(records) {
			end = len(records)
		}
		texts := make([]string, 0, end-start)
		for _, c := range records[start:end] {
			texts = append(texts, c.Text)
		}
		vecs, err := b.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("embedding failed for chunks %d-%d: %w", start, end-1, err)
		}
		if len(vecs) != len(texts) {
			store.Close()
			return nil, fmt.Errorf("encoder returned %d vectors for %d chunks", len(vecs), len(texts))
		}
		if err := store.Add(ctx, vecs); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to add vectors: %w", err)
		}
		if b.logger != nil {
			b.logger.Debug("embedded batch", zap.Int("done", end), zap.Int("total", len(records)))
		}
	}

	idx, err := New(store, records, Manifest{
		RunID:     uuid.New().String(),
		CreatedAt: time.Now().UTC(),
		Model:     b.model,
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	if b.logger != nil {
		b.logger.Info("index built",
			zap.String("run_id", idx.manifest.RunID),
			zap.Int("chunks", idx.Len()),
			zap.Int("dimensions", idx.Dimensions()))
	}
	return idx, nil
}
