package types

// ModelConfig describes a user-registered model: the provider family it
// belongs to, the upstream model identifier, and how to authenticate.
// CredentialID and BaseURL are optional; every provider family except the
// self-hosted one requires a credential reference.
type ModelConfig struct {
	ID           string  `json:"id"`
	OwnerID      string  `json:"ownerID"`
	Name         string  `json:"name"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	CredentialID *string `json:"credentialID,omitempty"`
	BaseURL      *string `json:"baseURL,omitempty"`
}

// Credential is a stored provider API key. Blob is the authenticated
// encryption of the key, base64-encoded; the plaintext never appears in a
// persisted record.
type Credential struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerID"`
	Name    string `json:"name"`
	Blob    string `json:"blob"`
}

// GenerationSettings are optional per-request sampling parameters. Each
// field is independently optional; nil means provider default.
type GenerationSettings struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxTokens        *int     `json:"maxTokens,omitempty"`
	TopP             *float64 `json:"topP,omitempty"`
	TopK             *int     `json:"topK,omitempty"`
	FrequencyPenalty *float64 `json:"frequencyPenalty,omitempty"`
	PresencePenalty  *float64 `json:"presencePenalty,omitempty"`
}
