package retrieval

import (
	"context"
	"fmt"
	"testing"
)

func BenchmarkRetrieverSearch(b *testing.B) {
	passages := make([]passage, 500)
	for i := range passages {
		passages[i] = passage{text: fmt.Sprintf("solar panel maintenance note %d", i), score: 0.5 + float64(i%50)/100}
	}
	r, err := NewRetriever(buildIndex(b, passages...), fixedEmbedder{})
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = r.Search(ctx, "solar panel maintenance", 6)
	}
}
