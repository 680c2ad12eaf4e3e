// Package server provides the HTTP surface of the Parley gateway.
//
// The server exposes a small REST API in front of the completion
// gateway: thread and message CRUD, model configuration, write-only
// credential management, and two generation endpoints (buffered and
// streaming). It is built on a chi router with the usual middleware
// stack (request IDs, logging, panic recovery, CORS).
//
// # API Endpoints
//
//   - /thread/*: thread lifecycle and message listing
//   - /generate: one-shot completion, persisted to a thread
//   - /generate/stream: SSE completion stream (text deltas, then a
//     single finish or error event)
//   - /model/*: per-user model configurations
//   - /credential/*: sealed API keys; PUT accepts plaintext once,
//     nothing ever serves a key or blob back
//   - /event: real-time thread and message events over SSE
//   - /health: liveness probe
//
// # Error Envelope
//
// Every failure is written as {"error": {"kind", "message"}}. The kind
// comes from the gateway's classifier; the mapping from kind to HTTP
// status lives only in this package, so the gateway itself stays free
// of HTTP concerns.
//
// # Ownership
//
// Requests carry an X-User-ID header identifying the owner; absent a
// header the server assumes a single "default" user. Threads, models,
// and messages are only ever served to their owner. Authentication
// proper is expected to run in front of this server.
//
// # SSE Implementation
//
// Both streaming endpoints share one writer built on
// http.ResponseController so flushes pass through middleware wrappers.
// The /event endpoint adds a 30 second heartbeat and drops events for
// slow clients instead of blocking publishers.
package server
