package llm

import (
	"context"
	"fmt"
)

// NewProvider creates the Provider for a single named backend.
// The gateway calls this once per entry in its priority list.
func NewProvider(ctx context.Context, backend string, cfg Config) (Provider, error) {
	var p Provider
	var err error

	switch backend {
	case "anthropic":
		p, err = NewAnthropicProvider(cfg.Anthropic)
	case "openai":
		p, err = NewOpenAIProvider(cfg.OpenAI)
	case "gemini":
		p, err = NewGeminiProvider(ctx, cfg.Gemini)
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown backend: %q", backend)
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s backend: %w", backend, err)
	}

	return p, nil
}
