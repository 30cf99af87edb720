// Package segment turns page text into bounded, overlapping passages.
package segment

import (
	"fmt"
	"strings"

	"github.com/hyperjump/passage/internal/models"
	"go.uber.org/zap"
)

// Segmenter accumulates whole sentences into chunks of at most maxWords words,
// carrying the tail of each flushed chunk into the next one.
type Segmenter struct {
	maxWords     int
	overlapWords int
	hardMaxWords int
	splitter     SentenceSplitter
	logger       *zap.Logger
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithSplitter replaces the default regex sentence splitter.
func WithSplitter(s SentenceSplitter) Option {
	return func(sg *Segmenter) {
		if s != nil {
			sg.splitter = s
		}
	}
}

// WithHardMaxWords splits any single sentence longer than n words into n-word
// pieces. Zero leaves oversized sentences whole. Values below maxWords are
// raised to maxWords.
func WithHardMaxWords(n int) Option {
	return func(sg *Segmenter) {
		sg.hardMaxWords = n
	}
}

// WithLogger sets the logger for segmentation diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(sg *Segmenter) {
		sg.logger = l
	}
}

// NewSegmenter creates a segmenter. overlapFraction must be in [0, 1).
func NewSegmenter(maxWords int, overlapFraction float64, opts ...Option) (*Segmenter, error) {
	if maxWords <= 0 {
		return nil, fmt.Errorf("max words must be positive, got %d", maxWords)
	}
	if overlapFraction < 0 || overlapFraction >= 1 {
		return nil, fmt.Errorf("overlap fraction must be in [0, 1), got %v", overlapFraction)
	}
	s := &Segmenter{
		maxWords:     maxWords,
		overlapWords: int(overlapFraction * float64(maxWords)),
		splitter:     NewRegexSplitter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hardMaxWords < 0 {
		s.hardMaxWords = 0
	}
	if s.hardMaxWords > 0 && s.hardMaxWords < s.maxWords {
		s.hardMaxWords = s.maxWords
	}
	return s, nil
}

// Segment is a convenience wrapper using the default splitter.
func Segment(pageText string, maxWords int, overlapFraction float64) ([]string, error) {
	s, err := NewSegmenter(maxWords, overlapFraction)
	if err != nil {
		return nil, err
	}
	return s.Segment(pageText), nil
}

// MaxWords returns the soft word cap.
func (s *Segmenter) MaxWords() int { return s.maxWords }

// OverlapWords returns the number of trailing words carried between chunks.
func (s *Segmenter) OverlapWords() int { return s.overlapWords }

// Segment splits one page of text into chunk texts.
func (s *Segmenter) Segment(pageText string) []string {
	var (
		chunks []string
		buf    []string
	)
	for _, sentence := range s.splitter.Split(Clean(pageText)) {
		for _, words := range s.pieces(strings.Fields(sentence)) {
			if len(buf) > 0 && len(buf)+len(words) > s.maxWords {
				chunks = append(chunks, strings.Join(buf, " "))
				buf = s.carry(buf, len(words))
			}
			buf = append(buf, words...)
		}
	}
	if len(buf) > 0 {
		chunks = append(chunks, strings.Join(buf, " "))
	}
	return chunks
}

// SegmentPage segments a page and wraps each chunk text in a record whose ID
// is unique within (sourceKey, page).
func (s *Segmenter) SegmentPage(sourceKey, source string, page models.Page) []models.Chunk {
	texts := s.Segment(page.Text)
	if len(texts) == 0 {
		return nil
	}
	out := make([]models.Chunk, 0, len(texts))
	for seq, text := range texts {
		out = append(out, models.NewChunk(sourceKey, source, page.Number, seq, text))
		if s.logger != nil && len(strings.Fields(text)) > s.maxWords {
			s.logger.Debug("oversized sentence kept whole",
				zap.String("source", source),
				zap.Int("page", page.Number),
				zap.Int("seq", seq))
		}
	}
	return out
}

// carry returns the overlap to seed the next chunk with. The carry shrinks
// when keeping all of it would push the next chunk over maxWords, so a chunk
// may start with fewer than overlapWords words of its predecessor. This
// trades a full overlap for the word cap: the cap always wins.
func (s *Segmenter) carry(prev []string, incoming int) []string {
	n := s.overlapWords
	if room := s.maxWords - incoming; room < n {
		n = room
	}
	if n <= 0 {
		return nil
	}
	if n > len(prev) {
		n = len(prev)
	}
	next := make([]string, n, s.maxWords)
	copy(next, prev[len(prev)-n:])
	return next
}

func (s *Segmenter) pieces(words []string) [][]string {
	if len(words) == 0 {
		return nil
	}
	if s.hardMaxWords == 0 || len(words) <= s.hardMaxWords {
		return [][]string{words}
	}
	var out [][]string
	for i := 0; i < len(words); i += s.hardMaxWords {
		end := i + s.hardMaxWords
		if end > len(words) {
			end = len(words)
		}
		out = append(out, words[i:end])
	}
	return out
}
