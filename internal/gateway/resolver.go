package gateway

import (
	"context"

	"github.com/parleyhq/parley/internal/provider"
	"github.com/parleyhq/parley/pkg/types"
)

// providerResolver adapts the provider registry to the Resolver
// interface.
type providerResolver struct {
	registry *provider.Registry
}

// NewProviderResolver wraps a provider registry as a Resolver.
func NewProviderResolver(registry *provider.Registry) Resolver {
	return providerResolver{registry: registry}
}

func (r providerResolver) Resolve(ctx context.Context, cfg *types.ModelConfig, apiKey string) (ModelClient, error) {
	handle, err := r.registry.Resolve(ctx, cfg, apiKey)
	if err != nil {
		return nil, err
	}
	return providerClient{handle: handle}, nil
}

// providerClient adapts a provider handle to the ModelClient interface.
type providerClient struct {
	handle *provider.Handle
}

func (c providerClient) ModelID() string { return c.handle.ModelID() }

func (c providerClient) Generate(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (*Completion, error) {
	result, err := c.handle.Generate(ctx, turns, settings)
	if err != nil {
		return nil, err
	}
	return &Completion{
		Text:         result.Text,
		Usage:        result.Usage,
		FinishReason: result.FinishReason,
	}, nil
}

func (c providerClient) Stream(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (TextStream, error) {
	stream, err := c.handle.Stream(ctx, turns, settings)
	if err != nil {
		return nil, err
	}
	return stream, nil
}
