package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hyperjump/passage/internal/generate"
	"github.com/hyperjump/passage/internal/models"
)

type fakeSearcher struct {
	hits  []models.Hit
	err   error
	gotK  int
	query string
}

func (f *fakeSearcher) Search(_ context.Context, query string, k int) ([]models.Hit, error) {
	f.query = query
	f.gotK = k
	return f.hits, f.err
}

type fakeGenerator struct {
	calls       int
	contextText string
	answer      string
	fragments   []string
	err         error
}

func (f *fakeGenerator) Generate(_ context.Context, contextText, _ string) (string, error) {
	f.calls++
	f.contextText = contextText
	return f.answer, f.err
}

func (f *fakeGenerator) Stream(ctx context.Context, contextText, _ string) (*generate.Stream, error) {
	f.calls++
	f.contextText = contextText
	if f.err != nil {
		return nil, f.err
	}
	return generate.NewStream(ctx, generate.NewSliceSource(f.fragments...), nil), nil
}

func hit(id string, page int, text string, score float64) models.Hit {
	return models.Hit{Chunk: models.Chunk{ID: id, Source: "doc.pdf", Page: page, Text: text}, Score: score}
}

func TestService_Ask(t *testing.T) {
	s := &fakeSearcher{hits: []models.Hit{
		hit("doc_p1_c0", 1, "Revenue grew 12% in Q3.", 0.8),
		hit("doc_p4_c1", 4, "Growth was driven by exports.", 0.6),
	}}
	g := &fakeGenerator{answer: "Revenue grew 12% [1]."}
	svc := NewService(s, g)

	resp, err := svc.Ask(context.Background(), models.AskRequest{Question: "revenue growth?", K: 3})
	if err != nil {
		t.Fatal(err)
	}
	if s.gotK != 3 || s.query != "revenue growth?" {
		t.Errorf("searcher got %q k=%d", s.query, s.gotK)
	}
	if resp.Refused || resp.Answer != "Revenue grew 12% [1]." {
		t.Errorf("resp = %+v", resp)
	}
	wantContext := "[1] Revenue grew 12% in Q3.\n\n[2] Growth was driven by exports."
	if g.contextText != wantContext {
		t.Errorf("context = %q", g.contextText)
	}
	if len(resp.Sources) != 2 || resp.Sources[1].Number != 2 || resp.Sources[1].Page != 4 || resp.Sources[1].File != "doc.pdf" {
		t.Errorf("sources = %+v", resp.Sources)
	}
}

func TestService_AskRefusesWithoutCallingGenerator(t *testing.T) {
	g := &fakeGenerator{answer: "made up"}
	svc := NewService(&fakeSearcher{}, g)

	resp, err := svc.Ask(context.Background(), models.AskRequest{Question: "revenue growth in Q3"})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Refused || resp.Answer != RefusalMessage {
		t.Errorf("resp = %+v", resp)
	}
	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("sources should be an empty list, got %#v", resp.Sources)
	}
	if g.calls != 0 {
		t.Errorf("generator called %d times", g.calls)
	}
}

func TestService_AskErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewService(&fakeSearcher{err: models.ErrEmptyQuery}, &fakeGenerator{}).
		Ask(context.Background(), models.AskRequest{Question: " "})
	if !errors.Is(err, models.ErrEmptyQuery) {
		t.Errorf("search error = %v", err)
	}

	_, err = NewService(&fakeSearcher{hits: []models.Hit{hit("a", 1, "x", 1)}}, &fakeGenerator{err: boom}).
		Ask(context.Background(), models.AskRequest{Question: "q"})
	if !errors.Is(err, boom) {
		t.Errorf("generation error = %v", err)
	}
}

func TestService_AskStream(t *testing.T) {
	g := &fakeGenerator{fragments: []string{"Yes", " [1].", "\n### Question"}}
	svc := NewService(&fakeSearcher{hits: []models.Hit{hit("a", 2, "yes it is", 0.9)}}, g)

	p, err := svc.AskStream(context.Background(), models.AskRequest{Question: "is it?"})
	if err != nil {
		t.Fatal(err)
	}
	if p.Refused || p.Stream == nil {
		t.Fatalf("pending = %+v", p)
	}
	defer p.Stream.Close()
	text, err := p.Stream.Collect()
	if err != nil {
		t.Fatal(err)
	}
	if text != "Yes [1]." {
		t.Errorf("streamed %q", text)
	}
	if len(p.Sources) != 1 || p.Sources[0].Page != 2 {
		t.Errorf("sources = %+v", p.Sources)
	}
}

func TestService_AskStreamRefused(t *testing.T) {
	g := &fakeGenerator{}
	p, err := NewService(&fakeSearcher{}, g).AskStream(context.Background(), models.AskRequest{Question: "q"})
	if err != nil {
		t.Fatal(err)
	}
	if !p.Refused || p.Stream != nil || g.calls != 0 {
		t.Errorf("pending = %+v, generator calls = %d", p, g.calls)
	}
}

func TestExcerpt(t *testing.T) {
	long := strings.Repeat("a", 100)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "short text", "short text"},
		{"exactly", strings.Repeat("b", 80), strings.Repeat("b", 80)},
		{"long", long, strings.Repeat("a", 80) + "…"},
		{"multibyte", strings.Repeat("é", 81), strings.Repeat("é", 80) + "…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.in, ExcerptLength); got != tt.want {
				t.Errorf("Excerpt = %q", got)
			}
		})
	}
}

func TestFormatSources(t *testing.T) {
	got := FormatSources(Sources([]models.Hit{hit("a", 3, "alpha", 0.5), hit("b", 7, "beta", 0.4)}))
	want := "[1] p3 • alpha\n[2] p7 • beta\n"
	if got != want {
		t.Errorf("FormatSources = %q, want %q", got, want)
	}
}
