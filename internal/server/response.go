package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/parleyhq/parley/internal/gateway"
	"github.com/parleyhq/parley/internal/storage"
)

// ErrorResponse is the API error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the classified kind and sanitized message.
type ErrorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error envelope.
func writeError(w http.ResponseWriter, status int, kind gateway.Kind, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{Kind: string(kind), Message: message},
	})
}

// writeClassified maps a service error onto HTTP. Error kinds translate
// to status codes at this layer only; the gateway never sees HTTP.
func writeClassified(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, gateway.KindNotFound, "not found")
		return
	}

	var classified *gateway.ClassifiedError
	if !errors.As(err, &classified) {
		writeError(w, http.StatusInternalServerError, gateway.KindInternal, "internal error")
		return
	}
	writeError(w, statusForKind(classified.Kind), classified.Kind, classified.Message)
}

// statusForKind maps classified error kinds to HTTP status codes.
func statusForKind(kind gateway.Kind) int {
	switch kind {
	case gateway.KindRateLimit:
		return http.StatusTooManyRequests
	case gateway.KindAuthentication:
		return http.StatusUnauthorized
	case gateway.KindModelNotFound, gateway.KindNotFound:
		return http.StatusNotFound
	case gateway.KindContextExceeded, gateway.KindContentPolicy,
		gateway.KindInvalidRequest, gateway.KindInvalidConfiguration:
		return http.StatusBadRequest
	case gateway.KindNetwork, gateway.KindServiceUnavailable:
		return http.StatusBadGateway
	case gateway.KindPaymentRequired:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// writeSuccess writes a bare success response.
func writeSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
