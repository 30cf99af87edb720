package generate

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIConfig configures OpenAIGenerator.
type OpenAIConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	MaxTokens     int
	Temperature   float32
	StopSequences []string
}

// OpenAIGenerator calls an OpenAI-compatible chat completions endpoint.
// Stop sequences are applied locally since the API accepts at most four.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
}

// NewOpenAIGenerator creates a generator for cfg.Model.
func NewOpenAIGenerator(cfg OpenAIConfig) (*OpenAIGenerator, error) {
	if cfg.Model == "" {
		return nil, errors.New("generation model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.StopSequences == nil {
		cfg.StopSequences = DefaultStopSequences
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(clientCfg), cfg: cfg}, nil
}

func (g *OpenAIGenerator) request(contextText, question string, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: g.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(contextText, question)},
		},
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Stream:      stream,
	}
}

// Generate returns the complete answer with stop sequences and leaked prompt
// headings removed.
func (g *OpenAIGenerator) Generate(ctx context.Context, contextText, question string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.request(contextText, question, false))
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("generation response has no choices")
	}
	text := TrimAtStop(resp.Choices[0].Message.Content, g.cfg.StopSequences)
	return Scrub(text), nil
}

// Stream starts a streamed completion.
func (g *OpenAIGenerator) Stream(ctx context.Context, contextText, question string) (*Stream, error) {
	open := func(ctx context.Context) (Source, error) {
		s, err := g.client.CreateChatCompletionStream(ctx, g.request(contextText, question, true))
		if err != nil {
			return nil, fmt.Errorf("generation request failed: %w", err)
		}
		return &chatSource{stream: s}, nil
	}
	return OpenStream(ctx, open, NewStopGuard(g.cfg.StopSequences))
}

type chatSource struct {
	stream *openai.ChatCompletionStream
}

func (c *chatSource) Next() (string, error) {
	resp, err := c.stream.Recv()
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Delta.Content, nil
}

func (c *chatSource) Close() error {
	c.stream.Close()
	return nil
}
