package embedding

import (
	"fmt"
	"os"
)

// Provider names accepted by New.
const (
	ProviderONNX   = "onnx"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Options selects and configures an encoder.
type Options struct {
	Provider    string
	ModelPath   string
	LibraryPath string
	OutputName  string
	Pooling     string
	Model       string
	BaseURL     string
	APIKeyEnv   string
	Dimensions  int
	MaxTokens   int
	CacheSize   int
}

// New creates the configured encoder wrapped in an LRU cache.
func New(opts Options) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch opts.Provider {
	case ProviderONNX, "":
		e, err = NewONNXEmbedder(ONNXConfig{
			ModelPath:   opts.ModelPath,
			LibraryPath: opts.LibraryPath,
			OutputName:  opts.OutputName,
			Pooling:     opts.Pooling,
			Dimensions:  opts.Dimensions,
			MaxTokens:   opts.MaxTokens,
		})
	case ProviderOpenAI:
		var apiKey string
		if opts.APIKeyEnv != "" {
			apiKey = os.Getenv(opts.APIKeyEnv)
		}
		e, err = NewOpenAIEmbedder(apiKey, opts.BaseURL, opts.Model, opts.Dimensions)
	case ProviderHash:
		e = NewHashEmbedder(opts.Dimensions)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: onnx, openai, hash)", opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewCachedEmbedder(e, opts.CacheSize), nil
}
