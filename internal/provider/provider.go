// Package provider resolves model configurations into callable upstream
// clients using the Eino framework.
package provider

import (
	"context"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/parleyhq/parley/pkg/types"
)

// Handle is a ready-to-call reference to one upstream model.
type Handle struct {
	kind      Kind
	modelID   string
	chatModel model.ToolCallingChatModel
}

// Kind returns the provider family this handle belongs to.
func (h *Handle) Kind() Kind { return h.kind }

// ModelID returns the upstream model identifier.
func (h *Handle) ModelID() string { return h.modelID }

// Completion is the result of a one-shot generation.
type Completion struct {
	Text         string
	Usage        *types.Usage
	FinishReason string
}

// Generate performs a single non-streaming completion.
func (h *Handle) Generate(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (*Completion, error) {
	msg, err := h.chatModel.Generate(ctx, toEinoMessages(turns), buildOptions(settings)...)
	if err != nil {
		return nil, err
	}

	out := &Completion{Text: msg.Content}
	if msg.ResponseMeta != nil {
		out.FinishReason = msg.ResponseMeta.FinishReason
		if msg.ResponseMeta.Usage != nil {
			out.Usage = &types.Usage{
				PromptTokens:     msg.ResponseMeta.Usage.PromptTokens,
				CompletionTokens: msg.ResponseMeta.Usage.CompletionTokens,
				TotalTokens:      msg.ResponseMeta.Usage.TotalTokens,
			}
		}
	}
	return out, nil
}

// Stream starts a streaming completion. The returned stream yields text
// deltas in provider order; usage and finish reason become available after
// the stream is exhausted.
func (h *Handle) Stream(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (*CompletionStream, error) {
	reader, err := h.chatModel.Stream(ctx, toEinoMessages(turns), buildOptions(settings)...)
	if err != nil {
		return nil, err
	}
	return &CompletionStream{reader: reader}, nil
}

// CompletionStream wraps an Eino stream reader and normalizes its chunks
// into plain text deltas. Some chat models report cumulative content per
// chunk, others report true deltas; Recv handles both.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]

	accumulated  string
	usage        *types.Usage
	finishReason string
}

// Recv returns the next non-empty text delta, or io.EOF when the provider
// sequence ends normally. Response metadata observed on any chunk is
// retained for Usage and FinishReason.
func (s *CompletionStream) Recv() (string, error) {
	for {
		msg, err := s.reader.Recv()
		if err != nil {
			return "", err
		}

		s.captureMeta(msg)

		if msg.Content == "" {
			continue
		}

		delta := msg.Content
		if s.accumulated != "" && strings.HasPrefix(msg.Content, s.accumulated) {
			if len(msg.Content) == len(s.accumulated) {
				continue
			}
			delta = msg.Content[len(s.accumulated):]
			s.accumulated = msg.Content
		} else {
			s.accumulated += delta
		}

		return delta, nil
	}
}

// captureMeta records usage and finish reason from a chunk's response
// metadata when present.
func (s *CompletionStream) captureMeta(msg *schema.Message) {
	if msg.ResponseMeta == nil {
		return
	}
	if msg.ResponseMeta.FinishReason != "" {
		s.finishReason = msg.ResponseMeta.FinishReason
	}
	if msg.ResponseMeta.Usage != nil {
		s.usage = &types.Usage{
			PromptTokens:     msg.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: msg.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      msg.ResponseMeta.Usage.TotalTokens,
		}
	}
}

// Usage returns the token usage reported by the provider, if any. Valid
// after Recv has returned io.EOF.
func (s *CompletionStream) Usage() *types.Usage { return s.usage }

// FinishReason returns the provider finish reason. Valid after Recv has
// returned io.EOF; defaults to "stop" when the provider reported none.
func (s *CompletionStream) FinishReason() string {
	if s.finishReason == "" {
		return "stop"
	}
	return s.finishReason
}

// Close releases the underlying stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// toEinoMessages converts request turns to the Eino message format.
func toEinoMessages(turns []types.Turn) []*schema.Message {
	result := make([]*schema.Message, 0, len(turns))
	for _, turn := range turns {
		role := schema.Assistant
		switch turn.Role {
		case types.RoleUser:
			role = schema.User
		case types.RoleSystem:
			role = schema.System
		}
		result = append(result, &schema.Message{
			Role:    role,
			Content: turn.Content,
		})
	}
	return result
}

// buildOptions maps generation settings onto Eino model options. TopK and
// the penalty settings have no counterpart in the base option set and are
// validated upstream but not forwarded.
func buildOptions(settings *types.GenerationSettings) []model.Option {
	var opts []model.Option
	if settings == nil {
		return opts
	}
	if settings.Temperature != nil {
		opts = append(opts, model.WithTemperature(float32(*settings.Temperature)))
	}
	if settings.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*settings.MaxTokens))
	}
	if settings.TopP != nil {
		opts = append(opts, model.WithTopP(float32(*settings.TopP)))
	}
	return opts
}
