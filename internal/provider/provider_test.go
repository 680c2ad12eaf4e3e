package provider

import (
	"io"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/pkg/types"
)

func TestToEinoMessages(t *testing.T) {
	turns := []types.Turn{
		{Role: types.RoleSystem, Content: "be brief"},
		{Role: types.RoleUser, Content: "hello"},
		{Role: types.RoleAssistant, Content: "hi"},
	}

	msgs := toEinoMessages(turns)
	require.Len(t, msgs, 3)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "hello", msgs[1].Content)
}

func TestBuildOptions(t *testing.T) {
	assert.Empty(t, buildOptions(nil))
	assert.Empty(t, buildOptions(&types.GenerationSettings{}))

	temp := 0.7
	maxTokens := 1024
	topP := 0.9
	opts := buildOptions(&types.GenerationSettings{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		TopP:        &topP,
	})
	assert.Len(t, opts, 3)
}

// streamFrom builds a CompletionStream fed from in-memory chunks.
func streamFrom(chunks ...*schema.Message) *CompletionStream {
	reader, writer := schema.Pipe[*schema.Message](len(chunks))
	for _, chunk := range chunks {
		writer.Send(chunk, nil)
	}
	writer.Close()
	return &CompletionStream{reader: reader}
}

func recvAll(t *testing.T, s *CompletionStream) []string {
	t.Helper()
	var deltas []string
	for {
		delta, err := s.Recv()
		if err == io.EOF {
			return deltas
		}
		require.NoError(t, err)
		deltas = append(deltas, delta)
	}
}

func TestCompletionStream_DeltaChunks(t *testing.T) {
	s := streamFrom(
		&schema.Message{Role: schema.Assistant, Content: "Hello"},
		&schema.Message{Role: schema.Assistant, Content: " world"},
	)
	defer s.Close()

	assert.Equal(t, []string{"Hello", " world"}, recvAll(t, s))
}

func TestCompletionStream_CumulativeChunks(t *testing.T) {
	// Some chat models report the full content so far on every chunk.
	s := streamFrom(
		&schema.Message{Role: schema.Assistant, Content: "Hello"},
		&schema.Message{Role: schema.Assistant, Content: "Hello world"},
		&schema.Message{Role: schema.Assistant, Content: "Hello world"},
	)
	defer s.Close()

	assert.Equal(t, []string{"Hello", " world"}, recvAll(t, s))
}

func TestCompletionStream_SkipsEmptyChunks(t *testing.T) {
	s := streamFrom(
		&schema.Message{Role: schema.Assistant, Content: ""},
		&schema.Message{Role: schema.Assistant, Content: "text"},
		&schema.Message{Role: schema.Assistant, Content: ""},
	)
	defer s.Close()

	assert.Equal(t, []string{"text"}, recvAll(t, s))
}

func TestCompletionStream_CapturesMeta(t *testing.T) {
	s := streamFrom(
		&schema.Message{Role: schema.Assistant, Content: "done"},
		&schema.Message{
			Role: schema.Assistant,
			ResponseMeta: &schema.ResponseMeta{
				FinishReason: "stop",
				Usage: &schema.TokenUsage{
					PromptTokens:     10,
					CompletionTokens: 32,
					TotalTokens:      42,
				},
			},
		},
	)
	defer s.Close()

	assert.Equal(t, []string{"done"}, recvAll(t, s))
	require.NotNil(t, s.Usage())
	assert.Equal(t, 42, s.Usage().TotalTokens)
	assert.Equal(t, "stop", s.FinishReason())
}

func TestCompletionStream_DefaultFinishReason(t *testing.T) {
	s := streamFrom(&schema.Message{Role: schema.Assistant, Content: "x"})
	defer s.Close()

	recvAll(t, s)
	assert.Equal(t, "stop", s.FinishReason())
	assert.Nil(t, s.Usage())
}
