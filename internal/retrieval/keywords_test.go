package retrieval

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func keys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestKeywordExtractor_Extract(t *testing.T) {
	e := NewKeywordExtractor()
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"stopwords and short tokens", "Revenue growth in Q3", []string{"growth", "revenue"}},
		{"question words", "What was the revenue of Acme, and why?", []string{"acme", "revenue", "was"}},
		{"punctuation boundaries", "cost-of-sales; EBITDA!!", []string{"cost", "ebitda", "sales"}},
		{"underscores trimmed", "__init__ snake_case", []string{"init", "snake_case"}},
		{"numbers", "2023 vs 2024", []string{"2023", "2024"}},
		{"only stopwords", "what is the and of", []string{}},
		{"unicode", "Café Zürich", []string{"café", "zürich"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keys(e.Extract(tt.text)))
		})
	}
}

func TestKeywordExtractor_ExtraStopwords(t *testing.T) {
	e := NewKeywordExtractor("Company")
	assert.Equal(t, []string{"acme"}, keys(e.Extract("the company Acme")))
}

func TestOverlapRatio(t *testing.T) {
	e := NewKeywordExtractor()
	q := e.Extract("alpha bravo charlie delta")
	assert.Equal(t, 0.5, OverlapRatio(q, e.Extract("bravo delta zulu")))
	assert.Equal(t, 0.0, OverlapRatio(q, e.Extract("nothing shared")))
	assert.Equal(t, 1.0, OverlapRatio(e.Extract("what is it"), e.Extract("anything")))
}
