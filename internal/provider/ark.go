package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
)

// arkDefaultMaxTokens bounds output when the request does not set a limit.
const arkDefaultMaxTokens = 4096

// newArkHandle builds a handle for the Volcengine ARK family. The model
// field is the endpoint ID on the ARK platform.
func newArkHandle(ctx context.Context, p buildParams) (*Handle, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("ark: API key required")
	}

	maxTokens := arkDefaultMaxTokens
	cfg := &ark.ChatModelConfig{
		APIKey:    p.apiKey,
		Model:     p.modelID,
		MaxTokens: &maxTokens,
	}
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	} else {
		cfg.BaseURL = DefaultArkBaseURL
	}

	chatModel, err := ark.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create ARK model: %w", err)
	}

	return &Handle{
		kind:      KindArk,
		modelID:   p.modelID,
		chatModel: chatModel,
	}, nil
}
