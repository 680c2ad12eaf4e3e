package types

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message represents a persisted conversation turn.
type Message struct {
	ID       string       `json:"id"`
	ThreadID string       `json:"threadID"`
	Role     Role         `json:"role"`
	Content  string       `json:"content"`
	Meta     *MessageMeta `json:"meta,omitempty"`
	Time     MessageTime  `json:"time"`
}

// MessageMeta carries generation metadata on assistant messages.
// Tokens is nil when usage was unknown at persistence time (partial failure).
type MessageMeta struct {
	Model        string `json:"model"`
	Tokens       *int   `json:"tokens,omitempty"`
	FinishReason string `json:"finishReason,omitempty"`
}

// MessageTime holds creation and update timestamps in Unix milliseconds.
type MessageTime struct {
	Created int64  `json:"created"`
	Updated *int64 `json:"updated,omitempty"`
}

// Turn is a single role-tagged message in a generation request. Unlike
// Message it carries no persistence identity.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports provider token consumption for one generation.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}
