package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleyhq/parley/internal/gateway"
	"github.com/parleyhq/parley/pkg/types"
)

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	configs, err := s.chat.ListModelConfigs(r.Context(), ownerID(r))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, configs)
}

func (s *Server) putModel(w http.ResponseWriter, r *http.Request) {
	var cfg types.ModelConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, gateway.KindInvalidRequest, "invalid request body")
		return
	}
	cfg.OwnerID = ownerID(r)

	if cfg.Provider == "" || cfg.Model == "" {
		writeError(w, http.StatusBadRequest, gateway.KindInvalidRequest, "provider and model are required")
		return
	}

	if err := s.chat.PutModelConfig(r.Context(), &cfg); err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) deleteModel(w http.ResponseWriter, r *http.Request) {
	modelID := chi.URLParam(r, "modelID")
	if err := s.chat.DeleteModelConfig(r.Context(), modelID, ownerID(r)); err != nil {
		writeClassified(w, err)
		return
	}
	writeSuccess(w)
}

type putCredentialRequest struct {
	Name string `json:"name,omitempty"`
	Key  string `json:"key"`
}

// putCredential encrypts the submitted API key and stores the sealed
// blob. The response never echoes the key or the blob back.
func (s *Server) putCredential(w http.ResponseWriter, r *http.Request) {
	var req putCredentialRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, gateway.KindInvalidRequest, "invalid request body")
		return
	}
	if req.Key == "" {
		writeError(w, http.StatusBadRequest, gateway.KindInvalidRequest, "key is required")
		return
	}

	blob, err := s.vault.Encrypt(req.Key)
	if err != nil {
		writeClassified(w, err)
		return
	}

	cred := &types.Credential{
		ID:      chi.URLParam(r, "credentialID"),
		OwnerID: ownerID(r),
		Name:    req.Name,
		Blob:    blob,
	}
	if err := s.chat.PutCredential(r.Context(), cred); err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": cred.ID})
}

func (s *Server) deleteCredential(w http.ResponseWriter, r *http.Request) {
	credentialID := chi.URLParam(r, "credentialID")
	if err := s.chat.DeleteCredential(r.Context(), credentialID); err != nil {
		writeClassified(w, err)
		return
	}
	writeSuccess(w)
}
