package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/types"
)

func collectEvents(t *testing.T, events <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func TestStreamSuccess(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.stream = &fakeStream{
		deltas:       []string{"Hello", " world"},
		usage:        &types.Usage{TotalTokens: 42},
		finishReason: "stop",
	}

	events, err := f.gateway.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 3)
	assert.Equal(t, StreamEvent{Type: EventTextDelta, Text: "Hello"}, got[0])
	assert.Equal(t, StreamEvent{Type: EventTextDelta, Text: " world"}, got[1])
	assert.Equal(t, EventFinish, got[2].Type)
	assert.Equal(t, "stop", got[2].FinishReason)
	require.NotNil(t, got[2].Usage)
	assert.Equal(t, 42, got[2].Usage.TotalTokens)

	assistants := f.store.byRole(types.RoleAssistant)
	require.Len(t, assistants, 1)
	assert.Equal(t, "Hello world", assistants[0].content)
	require.NotNil(t, assistants[0].meta)
	assert.Equal(t, "claude-sonnet-4", assistants[0].meta.Model)
	require.NotNil(t, assistants[0].meta.Tokens)
	assert.Equal(t, 42, *assistants[0].meta.Tokens)
	assert.Equal(t, "stop", assistants[0].meta.FinishReason)

	assert.True(t, f.resolver.client.stream.closed)
}

func TestStreamPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.stream = &fakeStream{
		deltas: []string{"Partial"},
		err:    errors.New("connection reset by peer"),
	}

	events, err := f.gateway.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, StreamEvent{Type: EventTextDelta, Text: "Partial"}, got[0])
	require.Equal(t, EventError, got[1].Type)
	require.NotNil(t, got[1].Err)
	assert.Equal(t, KindNetwork, got[1].Err.Kind)

	// The partial text survives, marked as an errored turn with model
	// and token counts unknown.
	assistants := f.store.byRole(types.RoleAssistant)
	require.Len(t, assistants, 1)
	assert.Equal(t, "Partial", assistants[0].content)
	require.NotNil(t, assistants[0].meta)
	assert.Equal(t, "", assistants[0].meta.Model)
	assert.Nil(t, assistants[0].meta.Tokens)
	assert.Equal(t, "error", assistants[0].meta.FinishReason)
}

func TestStreamEmptyFailureDeletesPlaceholder(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.stream = &fakeStream{
		err: errors.New("503 Service Unavailable"),
	}

	events, err := f.gateway.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 1)
	require.Equal(t, EventError, got[0].Type)
	assert.Equal(t, KindServiceUnavailable, got[0].Err.Kind)

	// No assistant row remains; the user turn stays.
	assert.Empty(t, f.store.byRole(types.RoleAssistant))
	assert.Len(t, f.store.byRole(types.RoleUser), 1)
}

func TestStreamOpenFailure(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.streamErr = errors.New("dial tcp: connection refused")

	events, err := f.gateway.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 1)
	require.Equal(t, EventError, got[0].Type)
	assert.Equal(t, KindNetwork, got[0].Err.Kind)
	assert.Empty(t, f.store.byRole(types.RoleAssistant))
}

func TestStreamPlaceholderDeleteFailureStillEmitsError(t *testing.T) {
	f := newFixture(t)
	f.store.failDelete = true
	f.resolver.client.stream = &fakeStream{
		err: errors.New("rate limit exceeded"),
	}

	events, err := f.gateway.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 1)
	require.Equal(t, EventError, got[0].Type)
	assert.Equal(t, KindRateLimit, got[0].Err.Kind)
}

func TestStreamWithoutThreadSkipsPersistence(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.stream = &fakeStream{
		deltas:       []string{"Unpersisted"},
		finishReason: "stop",
	}

	req := userRequest("Hi")
	req.ThreadID = ""

	events, err := f.gateway.Stream(context.Background(), req)
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 2)
	assert.Equal(t, EventTextDelta, got[0].Type)
	assert.Equal(t, EventFinish, got[1].Type)
	assert.Empty(t, f.store.messages)
}

func TestStreamUnownedThreadStillStreams(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.stream = &fakeStream{
		deltas:       []string{"ok"},
		finishReason: "stop",
	}

	req := userRequest("Hi")
	req.ThreadID = "not-mine"

	events, err := f.gateway.Stream(context.Background(), req)
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 2)
	assert.Empty(t, f.store.messages)
}

func TestStreamDuplicateUserTurnGuard(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.stream = &fakeStream{finishReason: "stop"}

	_, err := f.store.AppendMessage(context.Background(), "thr_1", types.RoleUser, "Hi", nil)
	require.NoError(t, err)

	events, err := f.gateway.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)
	collectEvents(t, events)

	assert.Len(t, f.store.byRole(types.RoleUser), 1)
}

func TestStreamSyncFailuresReturnBeforeChannel(t *testing.T) {
	f := newFixture(t)

	req := userRequest("Hi")
	req.ModelID = "missing"

	events, err := f.gateway.Stream(context.Background(), req)
	assert.Nil(t, events)
	var classified *ClassifiedError
	require.ErrorAs(t, err, &classified)
	assert.Equal(t, KindNotFound, classified.Kind)
}

func TestStreamFinishWithoutUsage(t *testing.T) {
	f := newFixture(t)
	f.resolver.client.stream = &fakeStream{
		deltas:       []string{"done"},
		finishReason: "stop",
	}

	events, err := f.gateway.Stream(context.Background(), userRequest("Hi"))
	require.NoError(t, err)

	got := collectEvents(t, events)
	require.Len(t, got, 2)
	assert.Nil(t, got[1].Usage)

	assistants := f.store.byRole(types.RoleAssistant)
	require.Len(t, assistants, 1)
	require.NotNil(t, assistants[0].meta)
	assert.Nil(t, assistants[0].meta.Tokens)
}
