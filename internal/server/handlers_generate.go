package server

import (
	"encoding/json"
	"net/http"

	"github.com/parleyhq/parley/internal/gateway"
	"github.com/parleyhq/parley/pkg/types"
)

type generateRequest struct {
	ThreadID string                    `json:"threadID,omitempty"`
	ModelID  string                    `json:"modelID"`
	Messages []types.Turn              `json:"messages"`
	Settings *types.GenerationSettings `json:"settings,omitempty"`
}

func (req generateRequest) toGateway(owner string) gateway.Request {
	return gateway.Request{
		OwnerID:  owner,
		ThreadID: req.ThreadID,
		ModelID:  req.ModelID,
		Turns:    req.Messages,
		Settings: req.Settings,
	}
}

// generate handles non-streaming completion.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, gateway.KindInvalidRequest, "invalid request body")
		return
	}

	result, err := s.gateway.Complete(r.Context(), req.toGateway(ownerID(r)))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// generateStream handles streaming completion over SSE. Synchronous
// failures (validation, unknown model, unusable configuration) become
// HTTP errors; once streaming starts, failures arrive as in-band error
// events after whatever deltas were already delivered.
func (s *Server) generateStream(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, gateway.KindInvalidRequest, "invalid request body")
		return
	}

	events, err := s.gateway.Stream(r.Context(), req.toGateway(ownerID(r)))
	if err != nil {
		writeClassified(w, err)
		return
	}

	sse, err := setSSEHeaders(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, gateway.KindInternal, err.Error())
		return
	}

	for ev := range events {
		if err := sse.writeEvent(string(ev.Type), ev); err != nil {
			// Client went away; the gateway drains via the request
			// context.
			return
		}
	}
}
