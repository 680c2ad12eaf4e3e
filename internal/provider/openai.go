package provider

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/openai"
)

// openaiDefaultMaxTokens bounds output when the request does not set a limit.
const openaiDefaultMaxTokens = 4096

// newOpenAIHandle builds a handle for the OpenAI API family.
func newOpenAIHandle(ctx context.Context, p buildParams) (*Handle, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openai: API key required")
	}
	return newOpenAICompatibleHandle(ctx, KindOpenAI, p)
}

// newCompatibleHandle builds a handle for a generic OpenAI-compatible
// endpoint driven by a user-supplied base URL.
func newCompatibleHandle(ctx context.Context, p buildParams) (*Handle, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("compatible: API key required")
	}
	return newOpenAICompatibleHandle(ctx, KindCompatible, p)
}

// newOllamaHandle builds a handle for a self-hosted Ollama instance through
// its OpenAI-compatible endpoint. A missing credential is replaced with the
// fixed placeholder key.
func newOllamaHandle(ctx context.Context, p buildParams) (*Handle, error) {
	if p.apiKey == "" {
		p.apiKey = OllamaPlaceholderKey
	}
	if p.baseURL == "" {
		p.baseURL = DefaultOllamaBaseURL
	}
	return newOpenAICompatibleHandle(ctx, KindOllama, p)
}

// newOpenAICompatibleHandle is the shared constructor for every family that
// speaks the OpenAI chat-completions protocol.
func newOpenAICompatibleHandle(ctx context.Context, kind Kind, p buildParams) (*Handle, error) {
	maxTokens := openaiDefaultMaxTokens

	cfg := &openai.ChatModelConfig{
		APIKey:              p.apiKey,
		Model:               p.modelID,
		MaxCompletionTokens: &maxTokens,
	}
	if p.baseURL != "" {
		cfg.BaseURL = p.baseURL
	}

	chatModel, err := openai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", kind, err)
	}

	return &Handle{
		kind:      kind,
		modelID:   p.modelID,
		chatModel: chatModel,
	}, nil
}
