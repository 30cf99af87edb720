// Package answer combines retrieval and generation into grounded answers.
package answer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/passage/internal/generate"
	"github.com/hyperjump/passage/internal/models"
)

// RefusalMessage is the answer when no passage supports the question.
const RefusalMessage = "I don't know — nothing in the document set matches that question."

// ExcerptLength is the number of characters shown per source.
const ExcerptLength = 80

// Searcher returns ranked passages for a query.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.Hit, error)
}

// Service answers questions from retrieved passages only.
type Service struct {
	searcher  Searcher
	generator generate.Generator
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a Service.
func NewService(searcher Searcher, generator generate.Generator, opts ...Option) *Service {
	s := &Service{searcher: searcher, generator: generator}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pending is a streamed answer. Stream is nil when the question was refused.
type Pending struct {
	Question string
	Sources  []models.Source
	Refused  bool
	Stream   *generate.Stream
}

// Ask retrieves passages for req and generates a complete answer.
// The generator is not called when nothing matches.
func (s *Service) Ask(ctx context.Context, req models.AskRequest) (*models.AskResponse, error) {
	start := time.Now()
	hits, contextText, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	resp := &models.AskResponse{
		Question: req.Question,
		Sources:  Sources(hits),
	}
	if len(hits) == 0 {
		resp.Answer = RefusalMessage
		resp.Refused = true
		resp.Sources = []models.Source{}
	} else {
		text, err := s.generator.Generate(ctx, contextText, req.Question)
		if err != nil {
			return nil, fmt.Errorf("generation failed: %w", err)
		}
		resp.Answer = text
	}
	resp.QueryTime = time.Since(start).Milliseconds()
	if s.logger != nil {
		s.logger.Debug("answered",
			zap.String("question", req.Question),
			zap.Int("sources", len(hits)),
			zap.Bool("refused", resp.Refused),
			zap.Int64("ms", resp.QueryTime))
	}
	return resp, nil
}

// AskStream retrieves passages for req and starts a streamed answer.
// The caller must Close the stream when it is non-nil.
func (s *Service) AskStream(ctx context.Context, req models.AskRequest) (*Pending, error) {
	hits, contextText, err := s.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}
	p := &Pending{Question: req.Question, Sources: Sources(hits)}
	if len(hits) == 0 {
		p.Refused = true
		p.Sources = []models.Source{}
		return p, nil
	}
	stream, err := s.generator.Stream(ctx, contextText, req.Question)
	if err != nil {
		return nil, fmt.Errorf("generation failed: %w", err)
	}
	p.Stream = stream
	return p, nil
}

func (s *Service) retrieve(ctx context.Context, req models.AskRequest) ([]models.Hit, string, error) {
	hits, err := s.searcher.Search(ctx, req.Question, req.K)
	if err != nil {
		return nil, "", err
	}
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = h.Text
	}
	return hits, generate.BuildContext(passages), nil
}

// Sources numbers hits from 1 in context order.
func Sources(hits []models.Hit) []models.Source {
	out := make([]models.Source, len(hits))
	for i, h := range hits {
		out[i] = models.Source{
			Number:  i + 1,
			ID:      h.ID,
			File:    h.Source,
			Page:    h.Page,
			Excerpt: Excerpt(h.Text, ExcerptLength),
			Score:   h.Score,
		}
	}
	return out
}

// Excerpt shortens text to n characters followed by an ellipsis.
func Excerpt(text string, n int) string {
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "…"
}

// FormatSources renders sources as "[i] p<page> • <excerpt>" lines.
func FormatSources(sources []models.Source) string {
	var b strings.Builder
	for _, s := range sources {
		fmt.Fprintf(&b, "[%d] p%d • %s\n", s.Number, s.Page, s.Excerpt)
	}
	return b.String()
}
