package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/hyperjump/passage/internal/embedding"
	"github.com/hyperjump/passage/internal/index"
	"github.com/hyperjump/passage/internal/models"
	"github.com/hyperjump/passage/internal/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 4

// fixedEmbedder maps every query to the same unit vector along the first axis.
type fixedEmbedder struct {
	err error
}

func (f fixedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0, 0}, nil
}

func (f fixedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i], _ = f.Embed(ctx, texts[i])
	}
	return out, f.err
}

func (fixedEmbedder) Dimensions() int { return dim }
func (fixedEmbedder) Close() error    { return nil }

// withScore returns a unit vector whose inner product with the query axis is s.
func withScore(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s)), 0, 0}
}

type passage struct {
	text  string
	score float64
}

func buildIndex(t testing.TB, passages ...passage) *index.Index {
	t.Helper()
	store, err := vector.NewMemoryIndex(dim)
	require.NoError(t, err)
	chunks := make([]models.Chunk, len(passages))
	vecs := make([][]float32, len(passages))
	for i, p := range passages {
		chunks[i] = models.NewChunk("doc", "doc.pdf", 1, i, p.text)
		vecs[i] = withScore(p.score)
	}
	require.NoError(t, store.Add(context.Background(), vecs))
	idx, err := index.New(store, chunks, index.Manifest{})
	require.NoError(t, err)
	return idx
}

func ids(hits []models.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.ID
	}
	return out
}

func TestSearch_NoKeywordOverlapReturnsNothing(t *testing.T) {
	idx := buildIndex(t,
		passage{"The board approved the new office lease.", 0.91},
		passage{"Employee headcount rose during the period.", 0.88},
		passage{"Marketing spend shifted toward digital channels.", 0.86},
		passage{"The auditors issued an unqualified opinion.", 0.80},
		passage{"Inventory levels were reduced at two plants.", 0.75},
	)
	r, err := NewRetriever(idx, fixedEmbedder{})
	require.NoError(t, err)

	hits, stats, err := r.SearchWithStats(context.Background(), "revenue growth in Q3", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 5, stats.AboveThreshold)
	assert.Equal(t, 0, stats.KeywordMatched)
}

func TestSearch_RanksByScoreWithStableTies(t *testing.T) {
	idx := buildIndex(t,
		passage{"revenue growth slowed", 0.70},
		passage{"revenue growth accelerated", 0.95},
		passage{"revenue growth was flat", 0.95},
		passage{"revenue growth doubled", 0.99},
	)
	r, err := NewRetriever(idx, fixedEmbedder{})
	require.NoError(t, err)

	hits, err := r.Search(context.Background(), "revenue growth", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_p1_c3", "doc_p1_c1", "doc_p1_c2", "doc_p1_c0"}, ids(hits))
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearch_Threshold(t *testing.T) {
	idx := buildIndex(t,
		passage{"revenue rose", 0.90},
		passage{"revenue fell", 0.44},
		passage{"revenue held", 0.46},
	)
	r, err := NewRetriever(idx, fixedEmbedder{})
	require.NoError(t, err)
	hits, err := r.Search(context.Background(), "revenue", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc_p1_c0", "doc_p1_c2"}, ids(hits))

	strict, err := NewRetriever(idx, fixedEmbedder{}, WithSimilarityThreshold(0.95))
	require.NoError(t, err)
	hits, err = strict.Search(context.Background(), "revenue", 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_KeywordRatioBoundary(t *testing.T) {
	// five query keywords; the chunk holds two of them: ratio 0.4
	idx := buildIndex(t, passage{"Alpha and bravo appear here.", 0.9})
	r, err := NewRetriever(idx, fixedEmbedder{})
	require.NoError(t, err)

	hits, err := r.Search(context.Background(), "alpha bravo charlie delta echo", 3)
	require.NoError(t, err)
	assert.Len(t, hits, 1, "ratio equal to the minimum passes")

	r, err = NewRetriever(idx, fixedEmbedder{}, WithMinKeywordRatio(0.41))
	require.NoError(t, err)
	hits, err = r.Search(context.Background(), "alpha bravo charlie delta echo", 3)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_VacuousKeywordFilter(t *testing.T) {
	idx := buildIndex(t,
		passage{"zzz yyy xxx", 0.9},
		passage{"completely unrelated words", 0.8},
	)
	r, err := NewRetriever(idx, fixedEmbedder{}, WithMinKeywordRatio(1))
	require.NoError(t, err)
	hits, err := r.Search(context.Background(), "What is the ... of it?", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearch_KDefaultsAndCap(t *testing.T) {
	passages := make([]passage, 10)
	for i := range passages {
		passages[i] = passage{fmt.Sprintf("ledger entry %d", i), 0.5 + float64(i)/100}
	}
	idx := buildIndex(t, passages...)
	r, err := NewRetriever(idx, fixedEmbedder{}, WithDefaultK(3), WithMaxK(4))
	require.NoError(t, err)

	hits, err := r.Search(context.Background(), "ledger entry", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 3)

	hits, err = r.Search(context.Background(), "ledger entry", 100)
	require.NoError(t, err)
	assert.Len(t, hits, 4)
	assert.Equal(t, "doc_p1_c9", hits[0].ID)
}

func TestSearch_Errors(t *testing.T) {
	idx := buildIndex(t, passage{"anything", 0.9})
	r, err := NewRetriever(idx, fixedEmbedder{})
	require.NoError(t, err)
	_, err = r.Search(context.Background(), "   ", 3)
	assert.ErrorIs(t, err, models.ErrEmptyQuery)

	boom := errors.New("encoder down")
	r, err = NewRetriever(idx, fixedEmbedder{err: boom})
	require.NoError(t, err)
	_, err = r.Search(context.Background(), "anything", 3)
	assert.ErrorIs(t, err, boom)
}

func TestNewRetriever_Invalid(t *testing.T) {
	_, err := NewRetriever(nil, fixedEmbedder{})
	assert.ErrorIs(t, err, index.ErrIndexUnavailable)

	idx := buildIndex(t, passage{"anything", 0.9})
	_, err = NewRetriever(idx, embedding.NewHashEmbedder(dim+1))
	assert.Error(t, err)
}

func TestSearch_Deterministic(t *testing.T) {
	enc := embedding.NewHashEmbedder(64)
	chunks := []models.Chunk{
		models.NewChunk("r", "r.pdf", 1, 0, "Quarterly revenue growth reached nine percent."),
		models.NewChunk("r", "r.pdf", 1, 1, "Operating margin improved on lower costs."),
		models.NewChunk("r", "r.pdf", 2, 0, "Revenue growth in the third quarter beat guidance."),
	}
	idx, err := index.NewBuilder(enc).Build(context.Background(), chunks)
	require.NoError(t, err)
	r, err := NewRetriever(idx, enc, WithSimilarityThreshold(0.1))
	require.NoError(t, err)

	first, err := r.Search(context.Background(), "revenue growth quarter", 3)
	require.NoError(t, err)
	require.NotEmpty(t, first)
	for i := 0; i < 5; i++ {
		again, err := r.Search(context.Background(), "revenue growth quarter", 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSearch_Monotonicity(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	vocab := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot", "golf", "hotel"}
	passages := make([]passage, 40)
	for i := range passages {
		text := ""
		for j := 0; j < 3; j++ {
			text += vocab[rng.Intn(len(vocab))] + " "
		}
		passages[i] = passage{text, rng.Float64()}
	}
	idx := buildIndex(t, passages...)
	ctx := context.Background()
	query := "alpha bravo charlie"

	prevAbove := math.MaxInt
	for _, tau := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		r, err := NewRetriever(idx, fixedEmbedder{}, WithSimilarityThreshold(tau), WithMaxK(0))
		require.NoError(t, err)
		_, stats, err := r.SearchWithStats(ctx, query, 40)
		require.NoError(t, err)
		assert.LessOrEqual(t, stats.AboveThreshold, prevAbove, "tau=%v", tau)
		prevAbove = stats.AboveThreshold
	}

	prevHits := math.MaxInt
	for _, ratio := range []float64{0, 0.3, 0.5, 0.7, 1} {
		r, err := NewRetriever(idx, fixedEmbedder{}, WithMinKeywordRatio(ratio), WithSimilarityThreshold(0), WithMaxK(0))
		require.NoError(t, err)
		hits, err := r.Search(ctx, query, 40)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(hits), prevHits, "ratio=%v", ratio)
		prevHits = len(hits)
	}
}

func BenchmarkSearch(b *testing.B) {
	enc := embedding.NewHashEmbedder(384)
	chunks := make([]models.Chunk, 5000)
	for i := range chunks {
		chunks[i] = models.NewChunk("bench", "bench.txt", i/10+1, i%10,
			fmt.Sprintf("Section %d discusses revenue, margins and growth drivers for segment %d.", i, i%37))
	}
	idx, err := index.NewBuilder(enc, index.WithBatchSize(256)).Build(context.Background(), chunks)
	if err != nil {
		b.Fatal(err)
	}
	r, err := NewRetriever(idx, enc)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := r.Search(ctx, "revenue growth drivers", 6); err != nil {
			b.Fatal(err)
		}
	}
}
