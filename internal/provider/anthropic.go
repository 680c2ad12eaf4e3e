package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/claude"
)

// anthropicDefaultMaxTokens bounds output when the request does not set a
// limit; the Claude model config requires one.
const anthropicDefaultMaxTokens = 8192

// newAnthropicHandle builds a handle for the Anthropic API family.
func newAnthropicHandle(ctx context.Context, p buildParams) (*Handle, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key required")
	}

	cfg := &claude.Config{
		APIKey:    p.apiKey,
		Model:     p.modelID,
		MaxTokens: anthropicDefaultMaxTokens,
	}
	if p.baseURL != "" {
		cfg.BaseURL = &p.baseURL
	}

	chatModel, err := claude.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Claude model: %w", err)
	}

	return &Handle{
		kind:      KindAnthropic,
		modelID:   p.modelID,
		chatModel: chatModel,
	}, nil
}
