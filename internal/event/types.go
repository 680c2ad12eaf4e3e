package event

import "github.com/parleyhq/parley/pkg/types"

// ThreadCreatedData is the payload for thread.created events.
type ThreadCreatedData struct {
	Info *types.Thread `json:"info"`
}

// ThreadUpdatedData is the payload for thread.updated events.
type ThreadUpdatedData struct {
	Info *types.Thread `json:"info"`
}

// ThreadDeletedData is the payload for thread.deleted events.
type ThreadDeletedData struct {
	Info *types.Thread `json:"info"`
}

// MessageCreatedData is the payload for message.created events.
type MessageCreatedData struct {
	Info *types.Message `json:"info"`
}

// MessageUpdatedData is the payload for message.updated events. Delta
// carries the streaming text increment when present.
type MessageUpdatedData struct {
	Info  *types.Message `json:"info"`
	Delta string         `json:"delta,omitempty"`
}

// MessageRemovedData is the payload for message.removed events.
type MessageRemovedData struct {
	ThreadID  string `json:"threadID"`
	MessageID string `json:"messageID"`
}
