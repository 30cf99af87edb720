package segment

import (
	"regexp"
	"strings"
)

// SentenceSplitter breaks cleaned text into sentences.
type SentenceSplitter interface {
	Split(text string) []string
}

var sentenceBoundary = regexp.MustCompile(`[.!?]\s+`)

// RegexSplitter splits after '.', '!' or '?' when followed by whitespace.
// The terminating punctuation stays with its sentence.
type RegexSplitter struct {
	boundary *regexp.Regexp
}

// NewRegexSplitter returns the default punctuation-boundary splitter.
func NewRegexSplitter() *RegexSplitter {
	return &RegexSplitter{boundary: sentenceBoundary}
}

// Split implements SentenceSplitter.
func (s *RegexSplitter) Split(text string) []string {
	re := s.boundary
	if re == nil {
		re = sentenceBoundary
	}
	var out []string
	start := 0
	for _, m := range re.FindAllStringIndex(text, -1) {
		// keep the punctuation rune, drop the whitespace run
		if sentence := strings.TrimSpace(text[start : m[0]+1]); sentence != "" {
			out = append(out, sentence)
		}
		start = m[1]
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}
