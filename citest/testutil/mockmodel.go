package testutil

import (
	"context"
	"io"
	"sync"

	"github.com/parleyhq/parley/internal/gateway"
	"github.com/parleyhq/parley/pkg/types"
)

// MockModel is a scripted upstream model. It satisfies both
// gateway.Resolver and gateway.ModelClient so a test server needs no
// network and no real provider credentials.
type MockModel struct {
	mu sync.Mutex

	// Text is the full completion returned by Generate.
	Text string
	// Deltas are the chunks returned by Stream before a clean finish.
	Deltas []string
	// Err, when set, fails Generate and the opening of Stream.
	Err error
	// StreamErr, when set, is returned mid-stream after FailAfter
	// deltas have been delivered.
	StreamErr error
	FailAfter int

	// LastAPIKey records the decrypted key the gateway handed over.
	LastAPIKey string
}

// NewMockModel returns a model that completes with a fixed greeting.
func NewMockModel() *MockModel {
	return &MockModel{
		Text:   "Hello from the mock model",
		Deltas: []string{"Hello", " from", " the", " mock", " model"},
	}
}

// Script reconfigures the scripted behavior between specs.
func (m *MockModel) Script(fn func(*MockModel)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m)
}

func (m *MockModel) Resolve(ctx context.Context, cfg *types.ModelConfig, apiKey string) (gateway.ModelClient, error) {
	m.mu.Lock()
	m.LastAPIKey = apiKey
	m.mu.Unlock()
	return m, nil
}

func (m *MockModel) ModelID() string { return "mock-model" }

func (m *MockModel) Generate(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (*gateway.Completion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &gateway.Completion{
		Text:         m.Text,
		Usage:        &types.Usage{PromptTokens: 5, CompletionTokens: 5, TotalTokens: 10},
		FinishReason: "stop",
	}, nil
}

func (m *MockModel) Stream(ctx context.Context, turns []types.Turn, settings *types.GenerationSettings) (gateway.TextStream, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &scriptedStream{
		deltas:    m.Deltas,
		streamErr: m.StreamErr,
		failAfter: m.FailAfter,
	}, nil
}

type scriptedStream struct {
	deltas    []string
	streamErr error
	failAfter int
	pos       int
}

func (s *scriptedStream) Recv() (string, error) {
	if s.streamErr != nil && s.pos >= s.failAfter {
		return "", s.streamErr
	}
	if s.pos >= len(s.deltas) {
		return "", io.EOF
	}
	delta := s.deltas[s.pos]
	s.pos++
	return delta, nil
}

func (s *scriptedStream) Usage() *types.Usage  { return &types.Usage{TotalTokens: 10} }
func (s *scriptedStream) FinishReason() string { return "stop" }
func (s *scriptedStream) Close()               {}
