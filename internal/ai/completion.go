package ai

import (
	"context"
	"fmt"

	"eduagent-knowledge/internal/config"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer is a stateless single-shot text completion
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// LangChainCompleter adapts any langchaingo model to Completer
type LangChainCompleter struct {
	llm         llms.Model
	temperature float64
}

func NewLangChainCompleter(llm llms.Model, temperature float64) *LangChainCompleter {
	return &LangChainCompleter{llm: llm, temperature: temperature}
}

func (c *LangChainCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, c.llm, prompt,
		llms.WithTemperature(c.temperature),
		llms.WithJSONMode(),
	)
}

// NewCompleter picks the language model named by LLM_PROVIDER. The returned
// closer releases provider resources and is never nil.
func NewCompleter(ctx context.Context, cfg *config.Config) (Completer, func() error, error) {
	switch cfg.LLMProvider {
	case "google", "":
		gc, err := NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiTier)
		if err != nil {
			return nil, nil, err
		}
		return gc, gc.Close, nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("missing OPENAI_API_KEY for completions")
		}
		llm, err := openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.OpenAIModel),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return NewLangChainCompleter(llm, 0.7), func() error { return nil }, nil

	default:
		return nil, nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
