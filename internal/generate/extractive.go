package generate

import (
	"context"
	"strings"
)

// Extractive answers with the first context passage verbatim. It is used
// when no generation backend is configured.
type Extractive struct{}

// Generate returns the first passage of contextText.
func (Extractive) Generate(_ context.Context, contextText, _ string) (string, error) {
	first, _, _ := strings.Cut(contextText, "\n\n")
	return strings.TrimSpace(first), nil
}

// Stream yields the Generate result as a single fragment.
func (e Extractive) Stream(ctx context.Context, contextText, question string) (*Stream, error) {
	text, err := e.Generate(ctx, contextText, question)
	if err != nil {
		return nil, err
	}
	return NewStream(ctx, NewSliceSource(text), NewStopGuard([]string{})), nil
}
