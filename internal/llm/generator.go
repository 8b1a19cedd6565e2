// Package llm adapts the Gemini and Anthropic clients to a single text
// generator and builds the diagnosis prompts.
package llm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ai-diagnosis/internal/config"
	"github.com/sells-group/ai-diagnosis/pkg/anthropic"
	"github.com/sells-group/ai-diagnosis/pkg/gemini"
)

// Provider names accepted in llm.provider.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
)

// ErrEmptyOutput is returned when a provider answers with no text.
var ErrEmptyOutput = eris.New("llm: empty output")

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// anthropicGenerator sends the prompt as a single user message.
type anthropicGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// NewAnthropic wraps an Anthropic client as a Generator.
func NewAnthropic(client anthropic.Client, model string, maxTokens int) Generator {
	return &anthropicGenerator{client: client, model: model, maxTokens: int64(maxTokens)}
}

func (g *anthropicGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    systemPrompt,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.Log(g.model, "diagnosis")
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyOutput
	}
	return text, nil
}

// New builds the configured generator wrapped in a Guard. It returns nil for
// provider "none".
func New(cfg config.LLMConfig) (Generator, error) {
	var base Generator
	switch cfg.Provider {
	case ProviderNone, "":
		return nil, nil
	case ProviderGemini:
		if cfg.Gemini.Key == "" {
			return nil, eris.New("llm: gemini key is required")
		}
		base = gemini.NewClient(cfg.Gemini.Key,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithGenerationConfig(gemini.GenerationConfig{
				Temperature:     cfg.Gemini.Temperature,
				TopK:            cfg.Gemini.TopK,
				TopP:            cfg.Gemini.TopP,
				MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
				CandidateCount:  1,
			}),
		)
	case ProviderAnthropic:
		if cfg.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic key is required")
		}
		base = NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.Model, cfg.Anthropic.MaxTokens)
	default:
		return nil, eris.Errorf("llm: unknown provider %q", cfg.Provider)
	}
	return NewGuard(base, cfg.RequestsPerMinute, cfg.BreakerThreshold, cfg.BreakerCooldownSecs), nil
}
