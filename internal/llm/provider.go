package llm

import (
	"context"
	"fmt"

	"pantry-planner/internal/config"
)

// NewFromConfig picks the generator for cfg: the mock in mock mode, otherwise
// the configured provider. The returned close function is never nil.
func NewFromConfig(ctx context.Context, cfg *config.Config) (TextGenerator, func() error, error) {
	noop := func() error { return nil }

	if cfg.MockAI {
		return MockGenerator{}, noop, nil
	}

	switch cfg.LLMProvider {
	case "gemini":
		c, err := NewGeminiClient(ctx, cfg, Instructions)
		if err != nil {
			return nil, noop, err
		}
		return c, c.Close, nil
	case "groq":
		return NewGroqClient(cfg, Instructions), noop, nil
	default:
		return nil, noop, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
