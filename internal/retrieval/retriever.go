// Package retrieval answers queries with a small ranked set of passages using
// vector similarity followed by a lexical keyword-coverage filter.
package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/hyperjump/passage/internal/embedding"
	"github.com/hyperjump/passage/internal/index"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/vector"
	"go.uber.org/zap"
)

const (
	// DefaultSimilarityThreshold is the minimum cosine similarity of a candidate.
	DefaultSimilarityThreshold = 0.45
	// DefaultMinKeywordRatio is the minimum share of query keywords a candidate must contain.
	DefaultMinKeywordRatio = 0.40
	// DefaultK is the result count used when the caller asks for k <= 0.
	DefaultK = 6
	// DefaultMaxK caps the requested result count.
	DefaultMaxK = 50
)

// Retriever searches an immutable index. It holds no mutable state after
// construction and is safe for concurrent use.
type Retriever struct {
	index     *index.Index
	embedder  embedding.Embedder
	keywords  *KeywordExtractor
	chunkKeys []map[string]struct{}

	threshold float64
	minRatio  float64
	defaultK  int
	maxK      int
	stopwords []string
	logger    *zap.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithSimilarityThreshold sets the minimum cosine similarity (τ).
func WithSimilarityThreshold(t float64) Option {
	return func(r *Retriever) { r.threshold = t }
}

// WithMinKeywordRatio sets the minimum keyword overlap ratio.
func WithMinKeywordRatio(v float64) Option {
	return func(r *Retriever) { r.minRatio = v }
}

// WithDefaultK sets the result count for k <= 0.
func WithDefaultK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.defaultK = k
		}
	}
}

// WithMaxK caps the result count. Zero disables the cap.
func WithMaxK(k int) Option {
	return func(r *Retriever) {
		if k >= 0 {
			r.maxK = k
		}
	}
}

// WithStopwords adds stopwords to the keyword extractor.
func WithStopwords(words ...string) Option {
	return func(r *Retriever) { r.stopwords = append(r.stopwords, words...) }
}

// WithLogger sets the logger for per-query diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(r *Retriever) { r.logger = l }
}

// NewRetriever creates a retriever over idx using enc to embed queries. enc
// must be the encoder family the index was built with.
func NewRetriever(idx *index.Index, enc embedding.Embedder, opts ...Option) (*Retriever, error) {
	if idx == nil {
		return nil, fmt.Errorf("%w: no index loaded", index.ErrIndexUnavailable)
	}
	if enc == nil {
		return nil, fmt.Errorf("retriever requires an embedder")
	}
	if enc.Dimensions() != idx.Dimensions() {
		return nil, fmt.Errorf("encoder produces %d-dimensional vectors, index holds %d", enc.Dimensions(), idx.Dimensions())
	}
	r := &Retriever{
		index:     idx,
		embedder:  enc,
		threshold: DefaultSimilarityThreshold,
		minRatio:  DefaultMinKeywordRatio,
		defaultK:  DefaultK,
		maxK:      DefaultMaxK,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.maxK > 0 && r.defaultK > r.maxK {
		r.defaultK = r.maxK
	}
	r.keywords = NewKeywordExtractor(r.stopwords...)
	chunks := idx.Chunks()
	r.chunkKeys = make([]map[string]struct{}, len(chunks))
	for i, c := range chunks {
		r.chunkKeys[i] = r.keywords.Extract(c.Text)
	}
	return r, nil
}

// Stats counts candidates surviving each stage of one search.
type Stats struct {
	K              int `json:"k"`
	Candidates     int `json:"candidates"`
	AboveThreshold int `json:"above_threshold"`
	KeywordMatched int `json:"keyword_matched"`
	QueryKeywords  int `json:"query_keywords"`
}

// Search returns up to k hits ordered by similarity, highest first. k <= 0
// uses the default. An empty result means no passage is both similar enough
// and lexically grounded; it is not an error.
func (r *Retriever) Search(ctx context.Context, query string, k int) ([]models.Hit, error) {
	hits, _, err := r.SearchWithStats(ctx, query, k)
	return hits, err
}

// SearchWithStats is Search plus per-stage candidate counts.
func (r *Retriever) SearchWithStats(ctx context.Context, query string, k int) ([]models.Hit, Stats, error) {
	q := models.SearchQuery{Query: query, K: k}
	if err := q.Validate(r.defaultK, r.maxK); err != nil {
		return nil, Stats{}, err
	}
	stats := Stats{K: q.K}

	qvec, err := r.embedder.Embed(ctx, q.Query)
	if err != nil {
		return nil, stats, fmt.Errorf("embedding failed: %w", err)
	}
	cands, err := r.index.Search(ctx, qvec, q.K)
	if err != nil {
		return nil, stats, fmt.Errorf("vector search failed: %w", err)
	}
	stats.Candidates = len(cands)

	type scored struct {
		chunk models.Chunk
		index int
		score float64
	}
	similar := make([]scored, 0, len(cands))
	for _, c := range cands {
		if c.Index == vector.NoMatch || c.Score < r.threshold {
			continue
		}
		chunk, ok := r.index.Chunk(c.Index)
		if !ok {
			continue
		}
		similar = append(similar, scored{chunk: chunk, index: c.Index, score: c.Score})
	}
	stats.AboveThreshold = len(similar)

	queryKeys := r.keywords.Extract(q.Query)
	stats.QueryKeywords = len(queryKeys)
	kept := similar[:0]
	for _, s := range similar {
		if OverlapRatio(queryKeys, r.chunkKeys[s.index]) >= r.minRatio {
			kept = append(kept, s)
		}
	}
	stats.KeywordMatched = len(kept)

	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })
	if len(kept) > q.K {
		kept = kept[:q.K]
	}
	hits := make([]models.Hit, len(kept))
	for i, s := range kept {
		hits[i] = models.Hit{Chunk: s.chunk, Score: s.score}
	}

	if r.logger != nil {
		r.logger.Debug("search",
			zap.String("query", q.Query),
			zap.Int("k", q.K),
			zap.Int("candidates", stats.Candidates),
			zap.Int("above_threshold", stats.AboveThreshold),
			zap.Int("keyword_matched", stats.KeywordMatched))
	}
	return hits, stats, nil
}

// Index returns the underlying index.
func (r *Retriever) Index() *index.Index {
	return r.index
}

// DefaultK returns the result count used for k <= 0.
func (r *Retriever) DefaultK() int {
	return r.defaultK
}
