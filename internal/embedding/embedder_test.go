package embedding

import (
	"context"
	"math"
	"testing"
)

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func TestHashEmbedder(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()
	a, _ := e.Embed(ctx, "Quarterly revenue growth")
	b, _ := e.Embed(ctx, "quarterly revenue, growth!")
	c, _ := e.Embed(ctx, "zebra migration patterns")

	if math.Abs(dot(a, a)-1) > 1e-5 {
		t.Errorf("embedding should be unit length, got %v", dot(a, a))
	}
	if math.Abs(dot(a, b)-1) > 1e-5 {
		t.Errorf("case and punctuation should not matter, got %v", dot(a, b))
	}
	if dot(a, c) >= dot(a, b) {
		t.Error("unrelated text should be less similar")
	}
	if e.Dimensions() != 64 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}

func TestHashEmbedder_empty(t *testing.T) {
	v, err := NewHashEmbedder(8).Embed(context.Background(), "  ")
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range v {
		if x != 0 {
			t.Fatal("empty text should embed to zero vector")
		}
	}
}

func TestNormalizeL2Slice(t *testing.T) {
	v := []float32{3, 4}
	NormalizeL2Slice(v)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("got %v", v)
	}
	z := []float32{0, 0}
	NormalizeL2Slice(z)
	if z[0] != 0 || z[1] != 0 {
		t.Error("zero vector should stay zero")
	}
}

func TestPool(t *testing.T) {
	hidden := []float32{1, 2, 3, 4, 100, 100}
	mask := []int64{1, 1, 0}
	if got := pool(hidden, mask, 2, PoolingCLS); got[0] != 1 || got[1] != 2 {
		t.Errorf("cls = %v", got)
	}
	if got := pool(hidden, mask, 2, PoolingMean); got[0] != 2 || got[1] != 3 {
		t.Errorf("mean = %v", got)
	}
}

func TestNew(t *testing.T) {
	e, err := New(Options{Provider: ProviderHash, Dimensions: 32, CacheSize: 4})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close()
	if e.Dimensions() != 32 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cached embedder, got %T", e)
	}
	if _, err := New(Options{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}
	if _, err := New(Options{Provider: ProviderOpenAI, Dimensions: 8}); err == nil {
		t.Error("expected error when model is missing")
	}
}
