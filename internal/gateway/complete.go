package gateway

import (
	"context"

	"github.com/parleyhq/parley/pkg/types"
)

// Complete performs one non-streaming generation. When the request names
// a thread owned by the caller, the user turn and the generated reply are
// appended to it; that bookkeeping is best-effort and never blocks the
// returned text. Provider failures are classified and returned as
// *ClassifiedError with no retry.
func (g *Gateway) Complete(ctx context.Context, req Request) (*Completion, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	client, cfg, err := g.resolveClient(ctx, req)
	if err != nil {
		return nil, err
	}

	result, err := client.Generate(ctx, req.Turns, req.Settings)
	if err != nil {
		classified := Classify(err)
		g.log.Warn().
			Str("model", cfg.Name).
			Str("kind", string(classified.Kind)).
			Msg("completion failed")
		return nil, classified
	}

	if g.threadOwned(ctx, req) {
		g.persistCompletion(ctx, req.ThreadID, req.Turns, cfg, result)
	}

	g.log.Info().
		Str("model", cfg.Name).
		Int("chars", len(result.Text)).
		Msg("completion finished")
	return result, nil
}

// persistCompletion appends the user turn (duplicate-guarded) and the
// assistant reply, then touches the thread. Write failures are logged and
// swallowed.
func (g *Gateway) persistCompletion(ctx context.Context, threadID string, turns []types.Turn, cfg *types.ModelConfig, result *Completion) {
	g.appendUserTurn(ctx, threadID, turns)

	meta := &types.MessageMeta{
		Model:        cfg.Model,
		FinishReason: result.FinishReason,
	}
	if result.Usage != nil {
		total := result.Usage.TotalTokens
		meta.Tokens = &total
	}
	if _, err := g.store.AppendMessage(ctx, threadID, types.RoleAssistant, result.Text, meta); err != nil {
		g.log.Warn().Err(err).Str("thread", threadID).Msg("failed to persist assistant reply")
		return
	}
	g.touchThread(ctx, threadID)
}
