package gateway

import (
	"context"
	"errors"
	"io"

	"github.com/parleyhq/parley/pkg/types"
)

// EventType discriminates streaming events.
type EventType string

const (
	EventTextDelta EventType = "text-delta"
	EventFinish    EventType = "finish"
	EventError     EventType = "error"
)

// StreamEvent is one event delivered to the caller during streaming. A
// stream emits zero or more text-delta events followed by exactly one
// finish or error event.
type StreamEvent struct {
	Type EventType `json:"type"`
	// Text is set on text-delta events.
	Text string `json:"text,omitempty"`
	// FinishReason and Usage are set on finish events.
	FinishReason string       `json:"finishReason,omitempty"`
	Usage        *types.Usage `json:"usage,omitempty"`
	// Err is set on error events.
	Err *ClassifiedError `json:"error,omitempty"`
}

// streamPhase tracks the lifecycle of one streaming invocation.
type streamPhase int

const (
	phaseInit streamPhase = iota
	phasePlaceholderCreated
	phaseStreaming
	phaseFinished
	phaseFailedPartial
	phaseFailedEmpty
)

// streamRun is the state owned by one in-flight streaming invocation.
type streamRun struct {
	gateway *Gateway
	req     Request
	cfg     *types.ModelConfig
	events  chan StreamEvent

	phase         streamPhase
	placeholderID string
	accumulated   string
}

// Stream performs one streaming generation. Validation, configuration
// lookup, and client resolution fail synchronously from this call; once
// a channel is returned, every upstream failure is delivered in-band as
// an error event and never raised. The channel closes after the single
// terminal event.
func (g *Gateway) Stream(ctx context.Context, req Request) (<-chan StreamEvent, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	client, cfg, err := g.resolveClient(ctx, req)
	if err != nil {
		return nil, err
	}

	run := &streamRun{
		gateway: g,
		req:     req,
		cfg:     cfg,
		events:  make(chan StreamEvent),
	}

	go run.execute(ctx, client)
	return run.events, nil
}

func (r *streamRun) execute(ctx context.Context, client ModelClient) {
	defer close(r.events)

	r.createPlaceholder(ctx)

	stream, err := client.Stream(ctx, r.req.Turns, r.req.Settings)
	if err != nil {
		r.fail(ctx, err)
		return
	}
	defer stream.Close()

	r.phase = phaseStreaming
	for {
		delta, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			r.finish(ctx, stream)
			return
		}
		if err != nil {
			r.fail(ctx, err)
			return
		}

		r.accumulated += delta
		if !r.emit(ctx, StreamEvent{Type: EventTextDelta, Text: delta}) {
			// Caller stopped listening. Route the accumulated text
			// through the same failure branches, without an event.
			r.compensate(ctx, Classify(ctx.Err()))
			return
		}
	}
}

// createPlaceholder moves INIT to PLACEHOLDER_CREATED when the request
// names an owned thread: the user turn is appended (duplicate-guarded)
// and an empty assistant placeholder is created to be finalized or
// compensated later. Without a thread, streaming proceeds unpersisted.
func (r *streamRun) createPlaceholder(ctx context.Context) {
	g := r.gateway
	if !g.threadOwned(ctx, r.req) {
		return
	}

	g.appendUserTurn(ctx, r.req.ThreadID, r.req.Turns)

	id, err := g.store.AppendMessage(ctx, r.req.ThreadID, types.RoleAssistant, "", nil)
	if err != nil {
		g.log.Warn().Err(err).Str("thread", r.req.ThreadID).Msg("failed to create placeholder message")
		return
	}
	r.placeholderID = id
	r.phase = phasePlaceholderCreated
}

// finish handles STREAMING to FINISHED: the provider sequence ended
// normally, so the placeholder is overwritten with the full text and the
// final usage and finish reason, and the caller gets a finish event.
func (r *streamRun) finish(ctx context.Context, stream TextStream) {
	g := r.gateway
	r.phase = phaseFinished

	usage := stream.Usage()
	finishReason := stream.FinishReason()

	if r.placeholderID != "" {
		meta := &types.MessageMeta{
			Model:        r.cfg.Model,
			FinishReason: finishReason,
		}
		if usage != nil {
			total := usage.TotalTokens
			meta.Tokens = &total
		}
		if err := g.store.UpdateMessage(ctx, r.placeholderID, r.accumulated, meta); err != nil {
			g.log.Warn().Err(err).Str("message", r.placeholderID).Msg("failed to finalize streamed message")
		}
		g.touchThread(ctx, r.req.ThreadID)
	}

	g.log.Info().
		Str("model", r.cfg.Name).
		Str("finishReason", finishReason).
		Int("chars", len(r.accumulated)).
		Msg("stream finished")

	r.emit(ctx, StreamEvent{Type: EventFinish, FinishReason: finishReason, Usage: usage})
}

// fail classifies the upstream error, runs the compensation branch, and
// delivers the error in-band. Deltas already forwarded stay delivered;
// the error event supplements them.
func (r *streamRun) fail(ctx context.Context, err error) {
	classified := Classify(err)

	r.gateway.log.Warn().
		Str("model", r.cfg.Name).
		Str("kind", string(classified.Kind)).
		Int("chars", len(r.accumulated)).
		Msg("stream failed")

	r.compensate(ctx, classified)
	r.emit(ctx, StreamEvent{Type: EventError, Err: classified})
}

// compensate settles the placeholder after a failure. With partial text
// the placeholder keeps it, marked finishReason "error" with model and
// tokens unknown. With no text the placeholder is deleted; deletion
// failures are logged and swallowed so they never mask the original
// error.
func (r *streamRun) compensate(ctx context.Context, classified *ClassifiedError) {
	g := r.gateway

	if r.accumulated != "" {
		r.phase = phaseFailedPartial
		if r.placeholderID != "" {
			meta := &types.MessageMeta{Model: "", Tokens: nil, FinishReason: "error"}
			if err := g.store.UpdateMessage(ctx, r.placeholderID, r.accumulated, meta); err != nil {
				g.log.Warn().Err(err).Str("message", r.placeholderID).Msg("failed to persist partial text")
			}
			g.touchThread(ctx, r.req.ThreadID)
		}
		return
	}

	r.phase = phaseFailedEmpty
	if r.placeholderID != "" {
		if err := g.store.DeleteMessage(ctx, r.placeholderID); err != nil {
			g.log.Warn().Err(err).Str("message", r.placeholderID).Msg("failed to delete empty placeholder")
		}
	}
}

// emit forwards one event, unbuffered. Returns false when the caller's
// context ended before the event could be delivered.
func (r *streamRun) emit(ctx context.Context, ev StreamEvent) bool {
	select {
	case r.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
