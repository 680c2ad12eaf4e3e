package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/parleyhq/parley/internal/gateway"
)

type createThreadRequest struct {
	Title string `json:"title"`
}

func (s *Server) createThread(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, gateway.KindInvalidRequest, "invalid request body")
		return
	}

	thread, err := s.chat.CreateThread(r.Context(), ownerID(r), req.Title)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, thread)
}

func (s *Server) listThreads(w http.ResponseWriter, r *http.Request) {
	threads, err := s.chat.ListThreads(r.Context(), ownerID(r))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, threads)
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	thread, err := s.chat.GetThread(r.Context(), ownerID(r), chi.URLParam(r, "threadID"))
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, thread)
}

func (s *Server) deleteThread(w http.ResponseWriter, r *http.Request) {
	if err := s.chat.DeleteThread(r.Context(), ownerID(r), chi.URLParam(r, "threadID")); err != nil {
		writeClassified(w, err)
		return
	}
	writeSuccess(w)
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	threadID := chi.URLParam(r, "threadID")

	// Ownership first: messages are only served to the thread's owner.
	if _, err := s.chat.GetThread(r.Context(), ownerID(r), threadID); err != nil {
		writeClassified(w, err)
		return
	}

	messages, err := s.chat.GetMessages(r.Context(), threadID)
	if err != nil {
		writeClassified(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
