package segment

import (
	"fmt"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"github.com/hyperjump/passage/internal/models"
)

// prose builds sentences of the given word counts with globally unique words.
func prose(lengths ...int) string {
	var b strings.Builder
	n := 0
	for i, l := range lengths {
		if i > 0 {
			b.WriteString(" ")
		}
		words := make([]string, l)
		for j := range words {
			words[j] = fmt.Sprintf("w%d", n)
			n++
		}
		b.WriteString(strings.Join(words, " "))
		b.WriteString(".")
	}
	return b.String()
}

func repeat(n, l int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = l
	}
	return out
}

func TestSegment_340WordPage(t *testing.T) {
	text := prose(repeat(17, 20)...)
	if got := len(strings.Fields(text)); got != 340 {
		t.Fatalf("fixture has %d words", got)
	}
	chunks, err := Segment(text, 160, 0.20)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	if len(first) != 160 {
		t.Errorf("chunk 1 has %d words, want 160", len(first))
	}
	tail := first[len(first)-32:]
	if !reflect.DeepEqual(second[:32], tail) {
		t.Errorf("chunk 2 should start with the last 32 words of chunk 1\n got %v\nwant %v", second[:32], tail)
	}
}

func TestSegment_WordCap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		lengths := make([]int, 5+rng.Intn(40))
		for i := range lengths {
			lengths[i] = 1 + rng.Intn(60)
		}
		chunks, err := Segment(prose(lengths...), 80, 0.25)
		if err != nil {
			t.Fatal(err)
		}
		for i, c := range chunks {
			if n := len(strings.Fields(c)); n > 80 {
				t.Fatalf("trial %d chunk %d has %d words", trial, i, n)
			}
		}
	}
}

func TestSegment_OverlapPrefix(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	const maxWords, overlap = 60, 0.5
	for trial := 0; trial < 30; trial++ {
		lengths := make([]int, 10+rng.Intn(30))
		for i := range lengths {
			// short enough that the full carry always fits
			lengths[i] = 1 + rng.Intn(30)
		}
		chunks, err := Segment(prose(lengths...), maxWords, overlap)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i+1 < len(chunks); i++ {
			prev := strings.Fields(chunks[i])
			next := strings.Fields(chunks[i+1])
			n := 30
			if n > len(prev) {
				n = len(prev)
			}
			if !reflect.DeepEqual(next[:n], prev[len(prev)-n:]) {
				t.Fatalf("trial %d: chunk %d does not start with the tail of chunk %d", trial, i+1, i)
			}
		}
	}
}

func TestSegment_CarryShrinksToFitCap(t *testing.T) {
	// 150 + 140 words: the full 32-word carry plus 140 would exceed 160, so
	// only 20 words are carried.
	chunks, err := Segment(prose(150, 140, 5), 160, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	second := strings.Fields(chunks[1])
	if second[0] != "w130" {
		t.Errorf("chunk 1 starts with %s, want w130", second[0])
	}
	for i, c := range chunks {
		if n := len(strings.Fields(c)); n > 160 {
			t.Errorf("chunk %d has %d words", i, n)
		}
	}
}

func TestSegment_OversizedSentenceKeptWhole(t *testing.T) {
	text := "Short one. " + prose(200) + " Short two."
	chunks, err := Segment(text, 160, 0.20)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %q", len(chunks), chunks)
	}
	if chunks[0] != "Short one." {
		t.Errorf("chunk 0 = %q", chunks[0])
	}
	if n := len(strings.Fields(chunks[1])); n != 200 {
		t.Errorf("oversized sentence should be a chunk of its own, got %d words", n)
	}
	if !strings.HasSuffix(chunks[2], "Short two.") {
		t.Errorf("chunk 2 = %q", chunks[2])
	}
}

func TestSegment_OversizedFirstSentence(t *testing.T) {
	chunks, err := Segment(prose(50, 5), 20, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is empty", i)
		}
	}
	if n := len(strings.Fields(chunks[0])); n != 50 {
		t.Errorf("chunk 0 has %d words, want 50", n)
	}
}

func TestSegment_HardMaxWords(t *testing.T) {
	s, err := NewSegmenter(160, 0.2, WithHardMaxWords(160))
	if err != nil {
		t.Fatal(err)
	}
	chunks := s.Segment(prose(400))
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := len(strings.Fields(c)); n > 160 {
			t.Errorf("chunk %d has %d words", i, n)
		}
	}
}

func TestSegment_HardMaxBelowCapIsRaised(t *testing.T) {
	s, err := NewSegmenter(50, 0, WithHardMaxWords(10))
	if err != nil {
		t.Fatal(err)
	}
	if s.hardMaxWords != 50 {
		t.Errorf("hardMaxWords = %d, want 50", s.hardMaxWords)
	}
}

func TestSegment_ZeroOverlap(t *testing.T) {
	chunks, err := Segment(prose(10, 10, 10), 15, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	total := 0
	for _, c := range chunks {
		total += len(strings.Fields(c))
	}
	if total != 30 {
		t.Errorf("zero overlap should not repeat words, got %d total", total)
	}
}

func TestSegment_DropsPageNumbers(t *testing.T) {
	text := "Revenue grew strongly.\n  12  \nMargins held steady.\n7\n"
	chunks, err := Segment(text, 160, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if strings.Contains(chunks[0], "12") || strings.Contains(chunks[0], " 7") {
		t.Errorf("page numbers should be dropped: %q", chunks[0])
	}
}

func TestSegment_Empty(t *testing.T) {
	for _, in := range []string{"", "   \n\t ", "3\n4\n"} {
		chunks, err := Segment(in, 160, 0.2)
		if err != nil {
			t.Fatal(err)
		}
		if chunks != nil {
			t.Errorf("Segment(%q) = %q, want nil", in, chunks)
		}
	}
}

func TestNewSegmenter_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		max     int
		overlap float64
	}{
		{"zero max", 0, 0.2},
		{"negative overlap", 10, -0.1},
		{"full overlap", 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSegmenter(tt.max, tt.overlap); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSegmentPage_IDs(t *testing.T) {
	s, err := NewSegmenter(15, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	chunks := s.SegmentPage("report", "report.pdf", models.Page{Number: 4, Text: prose(10, 10, 10)})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if want := fmt.Sprintf("report_p4_c%d", i); c.ID != want {
			t.Errorf("chunk %d ID = %q, want %q", i, c.ID, want)
		}
		if c.Source != "report.pdf" || c.Page != 4 {
			t.Errorf("chunk %d = %+v", i, c)
		}
	}
}

type lineSplitter struct{}

func (lineSplitter) Split(text string) []string { return strings.Split(text, ";") }

func TestWithSplitter(t *testing.T) {
	s, err := NewSegmenter(3, 0, WithSplitter(lineSplitter{}))
	if err != nil {
		t.Fatal(err)
	}
	got := s.Segment("a b; c d; e")
	want := []string{"a b", "c d e"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Segment() = %q, want %q", got, want)
	}
}

func TestRegexSplitter(t *testing.T) {
	got := NewRegexSplitter().Split("Is it? Yes! It is. Version 1.5 ships.  Done")
	want := []string{"Is it?", "Yes!", "It is.", "Version 1.5 ships.", "Done"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split() = %q, want %q", got, want)
	}
}
