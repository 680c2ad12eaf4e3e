package chat

import (
	"context"
	"fmt"

	"github.com/parleyhq/parley/pkg/types"
)

// PutModelConfig stores a model configuration, assigning an id when
// absent.
func (s *Service) PutModelConfig(ctx context.Context, cfg *types.ModelConfig) error {
	if cfg.ID == "" {
		cfg.ID = generateID()
	}
	if err := s.storage.Put(ctx, []string{"model", cfg.OwnerID, cfg.ID}, cfg); err != nil {
		return fmt.Errorf("save model config: %w", err)
	}
	return nil
}

// LookupModelConfig retrieves a model configuration owned by ownerID.
func (s *Service) LookupModelConfig(ctx context.Context, modelID, ownerID string) (*types.ModelConfig, error) {
	var cfg types.ModelConfig
	if err := s.storage.Get(ctx, []string{"model", ownerID, modelID}, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ListModelConfigs returns all model configurations owned by ownerID.
func (s *Service) ListModelConfigs(ctx context.Context, ownerID string) ([]*types.ModelConfig, error) {
	ids, err := s.storage.List(ctx, []string{"model", ownerID})
	if err != nil {
		return nil, err
	}

	configs := make([]*types.ModelConfig, 0, len(ids))
	for _, id := range ids {
		var cfg types.ModelConfig
		if err := s.storage.Get(ctx, []string{"model", ownerID, id}, &cfg); err != nil {
			continue
		}
		configs = append(configs, &cfg)
	}
	return configs, nil
}

// DeleteModelConfig removes a model configuration.
func (s *Service) DeleteModelConfig(ctx context.Context, modelID, ownerID string) error {
	return s.storage.Delete(ctx, []string{"model", ownerID, modelID})
}

// PutCredential stores an encrypted credential blob. Rotation replaces
// the whole record; blobs are never mutated in place.
func (s *Service) PutCredential(ctx context.Context, cred *types.Credential) error {
	if cred.ID == "" {
		cred.ID = generateID()
	}
	if err := s.storage.Put(ctx, []string{"credential", cred.ID}, cred); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	return nil
}

// LookupCredential returns the encrypted blob for a credential id.
func (s *Service) LookupCredential(ctx context.Context, credentialID string) (string, error) {
	var cred types.Credential
	if err := s.storage.Get(ctx, []string{"credential", credentialID}, &cred); err != nil {
		return "", err
	}
	return cred.Blob, nil
}

// DeleteCredential removes a credential record.
func (s *Service) DeleteCredential(ctx context.Context, credentialID string) error {
	return s.storage.Delete(ctx, []string{"credential", credentialID})
}
