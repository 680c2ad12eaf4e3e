// Package gateway orchestrates text generation against upstream model
// providers: it resolves a stored model configuration and credential into
// a callable client, drives non-streaming and streaming completions, and
// persists the generated turns with partial-failure semantics.
package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/parleyhq/parley/internal/logging"
	"github.com/parleyhq/parley/internal/vault"
	"github.com/parleyhq/parley/pkg/types"
)

// Request describes one generation invocation.
type Request struct {
	// OwnerID identifies the requesting user for ownership checks.
	OwnerID string
	// ThreadID is optional. When set and owned by the caller, the user
	// turn and the generated text are persisted to the thread.
	ThreadID string
	// ModelID names a stored model configuration.
	ModelID string
	// Turns is the ordered conversation to complete.
	Turns []types.Turn
	// Settings are optional generation parameters.
	Settings *types.GenerationSettings
}

// Completion is the result of a non-streaming generation.
type Completion struct {
	Text         string       `json:"text"`
	Usage        *types.Usage `json:"usage,omitempty"`
	FinishReason string       `json:"finishReason,omitempty"`
}

// TextStream is a finite, non-restartable sequence of text deltas. Usage
// and FinishReason are valid once Recv has returned io.EOF.
type TextStream interface {
	Recv() (string, error)
	Usage() *types.Usage
	FinishReason() string
	Close()
}

// ModelClient is a resolved, ready-to-call upstream model.
type ModelClient interface {
	ModelID() string
	Generate(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (*Completion, error)
	Stream(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (TextStream, error)
}

// Resolver turns a model configuration plus decrypted API key into a
// callable client.
type Resolver interface {
	Resolve(ctx context.Context, cfg *types.ModelConfig, apiKey string) (ModelClient, error)
}

// ConfigSource looks up stored model configurations and credential blobs.
type ConfigSource interface {
	LookupModelConfig(ctx context.Context, modelID, ownerID string) (*types.ModelConfig, error)
	LookupCredential(ctx context.Context, credentialID string) (string, error)
}

// Store is the persistence collaborator for thread bookkeeping.
type Store interface {
	VerifyThreadOwnership(ctx context.Context, threadID, ownerID string) (bool, error)
	AppendMessage(ctx context.Context, threadID string, role types.Role, content string, meta *types.MessageMeta) (string, error)
	UpdateMessage(ctx context.Context, messageID, content string, meta *types.MessageMeta) error
	DeleteMessage(ctx context.Context, messageID string) error
	TouchThread(ctx context.Context, threadID string) error
	LastMessage(ctx context.Context, threadID string, role types.Role) (*types.Message, error)
}

// Gateway drives completions. Invocations are independent and safe to run
// concurrently.
type Gateway struct {
	configs  ConfigSource
	store    Store
	vault    *vault.Vault
	resolver Resolver
	log      zerolog.Logger
}

// New creates a Gateway.
func New(configs ConfigSource, store Store, v *vault.Vault, resolver Resolver) *Gateway {
	return &Gateway{
		configs:  configs,
		store:    store,
		vault:    v,
		resolver: resolver,
		log:      logging.Component("gateway"),
	}
}

// resolveClient looks up the model configuration, decrypts its credential,
// and resolves the upstream client. All failures here are synchronous and
// happen before any provider call.
func (g *Gateway) resolveClient(ctx context.Context, req Request) (ModelClient, *types.ModelConfig, error) {
	cfg, err := g.configs.LookupModelConfig(ctx, req.ModelID, req.OwnerID)
	if err != nil {
		return nil, nil, &ClassifiedError{
			Kind:    KindNotFound,
			Message: fmt.Sprintf("model %q not found", req.ModelID),
		}
	}

	var apiKey string
	if cfg.CredentialID != nil && *cfg.CredentialID != "" {
		blob, err := g.configs.LookupCredential(ctx, *cfg.CredentialID)
		if err != nil {
			return nil, nil, &ClassifiedError{
				Kind:    KindInvalidConfiguration,
				Message: fmt.Sprintf("credential for model %q not found", cfg.Name),
			}
		}
		apiKey, err = g.vault.Decrypt(blob)
		if err != nil {
			// Raw crypto detail stays out of user-facing messages.
			g.log.Error().Str("model", cfg.Name).Msg("credential decryption failed")
			return nil, nil, &ClassifiedError{
				Kind:    KindInternal,
				Message: fmt.Sprintf("credential for model %q could not be read", cfg.Name),
			}
		}
	}

	client, err := g.resolver.Resolve(ctx, cfg, apiKey)
	if err != nil {
		return nil, nil, &ClassifiedError{
			Kind:    KindInvalidConfiguration,
			Message: fmt.Sprintf("model %q is not usable: %s", cfg.Name, MaskSecrets(err.Error())),
		}
	}
	return client, cfg, nil
}

// validateRequest checks the turn list and generation settings. Settings
// bounds are checked independently per field; boundary values pass.
func validateRequest(req Request) error {
	if len(req.Turns) == 0 {
		return &ClassifiedError{Kind: KindInvalidRequest, Message: "request has no messages"}
	}
	for _, turn := range req.Turns {
		if !turn.Role.Valid() {
			return &ClassifiedError{
				Kind:    KindInvalidRequest,
				Message: fmt.Sprintf("unknown message role %q", turn.Role),
			}
		}
	}
	if req.Turns[len(req.Turns)-1].Content == "" {
		return &ClassifiedError{Kind: KindInvalidRequest, Message: "final message has no content"}
	}
	return validateSettings(req.Settings)
}

func validateSettings(s *types.GenerationSettings) error {
	if s == nil {
		return nil
	}
	checks := []struct {
		name     string
		value    *float64
		min, max float64
	}{
		{"temperature", s.Temperature, 0, 2},
		{"topP", s.TopP, 0, 1},
		{"frequencyPenalty", s.FrequencyPenalty, -2, 2},
		{"presencePenalty", s.PresencePenalty, -2, 2},
	}
	for _, c := range checks {
		if c.value != nil && (*c.value < c.min || *c.value > c.max) {
			return &ClassifiedError{
				Kind:    KindInvalidRequest,
				Message: fmt.Sprintf("%s must be between %g and %g, got %g", c.name, c.min, c.max, *c.value),
			}
		}
	}
	if s.MaxTokens != nil && (*s.MaxTokens < 1 || *s.MaxTokens > 1000000) {
		return &ClassifiedError{
			Kind:    KindInvalidRequest,
			Message: fmt.Sprintf("maxTokens must be between 1 and 1000000, got %d", *s.MaxTokens),
		}
	}
	if s.TopK != nil && (*s.TopK < 0 || *s.TopK > 100) {
		return &ClassifiedError{
			Kind:    KindInvalidRequest,
			Message: fmt.Sprintf("topK must be between 0 and 100, got %d", *s.TopK),
		}
	}
	return nil
}

// appendUserTurn persists the final user turn unless it duplicates the
// most recently stored user message on the thread.
func (g *Gateway) appendUserTurn(ctx context.Context, threadID string, turns []types.Turn) {
	last := turns[len(turns)-1]
	if last.Role != types.RoleUser {
		return
	}

	prev, err := g.store.LastMessage(ctx, threadID, types.RoleUser)
	if err == nil && prev != nil && prev.Content == last.Content {
		return
	}

	if _, err := g.store.AppendMessage(ctx, threadID, types.RoleUser, last.Content, nil); err != nil {
		g.log.Warn().Err(err).Str("thread", threadID).Msg("failed to persist user turn")
	}
}

// threadOwned reports whether bookkeeping should run for this request.
// Lookup errors count as not owned; bookkeeping is best-effort.
func (g *Gateway) threadOwned(ctx context.Context, req Request) bool {
	if req.ThreadID == "" {
		return false
	}
	owned, err := g.store.VerifyThreadOwnership(ctx, req.ThreadID, req.OwnerID)
	if err != nil {
		g.log.Warn().Err(err).Str("thread", req.ThreadID).Msg("thread ownership check failed")
		return false
	}
	return owned
}

func (g *Gateway) touchThread(ctx context.Context, threadID string) {
	if err := g.store.TouchThread(ctx, threadID); err != nil {
		g.log.Warn().Err(err).Str("thread", threadID).Msg("failed to touch thread")
	}
}
