package retrieval

import (
	"regexp"
	"strings"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/length"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/token/stop"
	regexptokenizer "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
)

// DefaultStopwords are dropped from keyword sets.
var DefaultStopwords = []string{"the", "a", "an", "of", "and", "to", "for", "is", "are", "in", "on"}

// QuestionWords are dropped from keyword sets so that "what" or "which" never
// count as evidence.
var QuestionWords = []string{"what", "which", "who", "whom", "whose", "when", "where", "why", "how"}

// minKeywordLength is the shortest token that counts as a keyword.
const minKeywordLength = 3

// KeywordExtractor reduces text to its set of significant lower-case terms:
// runs of letters, digits and underscores longer than two characters that
// are neither stopwords nor question words.
type KeywordExtractor struct {
	tokenizer analysis.Tokenizer
	filters   []analysis.TokenFilter
}

// NewKeywordExtractor builds an extractor. extraStopwords extend DefaultStopwords.
func NewKeywordExtractor(extraStopwords ...string) *KeywordExtractor {
	stopwords := analysis.NewTokenMap()
	for _, list := range [][]string{DefaultStopwords, QuestionWords, extraStopwords} {
		for _, w := range list {
			stopwords.AddToken(strings.ToLower(strings.TrimSpace(w)))
		}
	}
	return &KeywordExtractor{
		tokenizer: regexptokenizer.NewRegexpTokenizer(regexp.MustCompile(`[\p{L}\p{N}_]+`)),
		filters: []analysis.TokenFilter{
			length.NewLengthFilter(minKeywordLength, 0),
			lowercase.NewLowerCaseFilter(),
			stop.NewStopTokensFilter(stopwords),
		},
	}
}

// Extract returns the keyword set of text.
func (e *KeywordExtractor) Extract(text string) map[string]struct{} {
	tokens := e.tokenizer.Tokenize([]byte(text))
	for _, f := range e.filters {
		tokens = f.Filter(tokens)
	}
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		term := strings.Trim(string(tok.Term), "_")
		if term == "" {
			continue
		}
		set[term] = struct{}{}
	}
	return set
}

// OverlapRatio returns the fraction of query keywords present in chunk.
// An empty query set yields 1.
func OverlapRatio(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 {
		return 1.0
	}
	shared := 0
	for k := range query {
		if _, ok := chunk[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(query))
}
