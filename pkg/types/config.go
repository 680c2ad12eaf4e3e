package types

// Config is the application configuration, merged from config files and
// environment variables.
type Config struct {
	// MasterSecret is the process-wide secret the credential vault derives
	// its encryption key from. Required for any credential operation.
	MasterSecret string `json:"masterSecret,omitempty"`

	// DataDir is the root directory for persisted threads and messages.
	DataDir string `json:"dataDir,omitempty"`

	// Port is the HTTP listen port.
	Port int `json:"port,omitempty"`

	// Hostname is the HTTP listen address.
	Hostname string `json:"hostname,omitempty"`

	// LogLevel is the minimum log level (DEBUG|INFO|WARN|ERROR).
	LogLevel string `json:"logLevel,omitempty"`

	// Provider holds per-family overrides keyed by provider tag.
	Provider map[string]ProviderConfig `json:"provider,omitempty"`
}

// ProviderConfig holds per-family configuration overrides.
type ProviderConfig struct {
	BaseURL string `json:"baseURL,omitempty"`
}
