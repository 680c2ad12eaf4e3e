package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	// Threads and their messages
	r.Route("/thread", func(r chi.Router) {
		r.Get("/", s.listThreads)
		r.Post("/", s.createThread)

		r.Route("/{threadID}", func(r chi.Router) {
			r.Get("/", s.getThread)
			r.Delete("/", s.deleteThread)
			r.Get("/message", s.getMessages)
		})
	})

	// Generation
	r.Post("/generate", s.generate)
	r.Post("/generate/stream", s.generateStream)

	// Model configurations
	r.Route("/model", func(r chi.Router) {
		r.Get("/", s.listModels)
		r.Post("/", s.putModel)
		r.Delete("/{modelID}", s.deleteModel)
	})

	// Credentials (write-only: blobs are never served back)
	r.Put("/credential/{credentialID}", s.putCredential)
	r.Delete("/credential/{credentialID}", s.deleteCredential)

	// Event streaming (SSE)
	r.Get("/event", s.events)

	// Health
	r.Get("/health", s.health)
}
