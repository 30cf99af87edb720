// Package generate assembles grounded prompts and talks to text-generation
// backends.
package generate

import (
	"context"
	"fmt"
	"os"
)

// Generator produces an answer for question from the numbered context block.
type Generator interface {
	Generate(ctx context.Context, contextText, question string) (string, error)
	Stream(ctx context.Context, contextText, question string) (*Stream, error)
}

// Provider names accepted by New.
const (
	ProviderOpenAI     = "openai"
	ProviderExtractive = "none"
)

// Options selects and configures a generator.
type Options struct {
	Provider      string
	Model         string
	BaseURL       string
	APIKeyEnv     string
	MaxTokens     int
	Temperature   float32
	StopSequences []string
}

// New creates the configured generator.
func New(opts Options) (Generator, error) {
	switch opts.Provider {
	case ProviderOpenAI:
		var apiKey string
		if opts.APIKeyEnv != "" {
			apiKey = os.Getenv(opts.APIKeyEnv)
		}
		return NewOpenAIGenerator(OpenAIConfig{
			APIKey:        apiKey,
			BaseURL:       opts.BaseURL,
			Model:         opts.Model,
			MaxTokens:     opts.MaxTokens,
			Temperature:   opts.Temperature,
			StopSequences: opts.StopSequences,
		})
	case ProviderExtractive, "":
		return Extractive{}, nil
	default:
		return nil, fmt.Errorf("unknown generation provider: %s (supported: openai, none)", opts.Provider)
	}
}
