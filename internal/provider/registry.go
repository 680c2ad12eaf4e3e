package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/parleyhq/parley/pkg/types"
)

// Kind identifies a provider family.
type Kind string

const (
	KindAnthropic  Kind = "anthropic"
	KindOpenAI     Kind = "openai"
	KindArk        Kind = "ark"
	KindCompatible Kind = "compatible"
	KindOllama     Kind = "ollama"
)

// Kinds lists every supported provider family. The constructor table below
// must cover exactly this set; TestKindsCovered enforces it.
func Kinds() []Kind {
	return []Kind{KindAnthropic, KindOpenAI, KindArk, KindCompatible, KindOllama}
}

// OllamaPlaceholderKey is substituted when a self-hosted configuration has
// no credential reference. Ollama ignores the key but its OpenAI-compatible
// endpoint requires one to be present.
const OllamaPlaceholderKey = "ollama"

// Default base URLs per family. An empty default means the underlying SDK's
// default endpoint is used.
const (
	DefaultOllamaBaseURL = "http://localhost:11434/v1"
	DefaultArkBaseURL    = "https://ark.cn-beijing.volces.com/api/v3"
)

// UnsupportedProviderError is returned when a configuration names a provider
// tag outside the supported set.
type UnsupportedProviderError struct {
	Tag string
}

func (e *UnsupportedProviderError) Error() string {
	return fmt.Sprintf("unsupported provider: %s", e.Tag)
}

// buildParams carries the resolved inputs for a family constructor.
type buildParams struct {
	apiKey  string
	baseURL string
	modelID string
}

// constructor builds a provider handle for one family.
type constructor func(ctx context.Context, p buildParams) (*Handle, error)

// constructors is the declared dispatch table, one entry per family.
var constructors = map[Kind]constructor{
	KindAnthropic:  newAnthropicHandle,
	KindOpenAI:     newOpenAIHandle,
	KindArk:        newArkHandle,
	KindCompatible: newCompatibleHandle,
	KindOllama:     newOllamaHandle,
}

// Registry resolves model configurations into provider handles.
type Registry struct {
	config *types.Config
}

// NewRegistry creates a registry. config may be nil; it supplies optional
// per-family base-URL overrides.
func NewRegistry(config *types.Config) *Registry {
	return &Registry{config: config}
}

// Resolve dispatches on the configuration's provider tag and returns a
// handle for its upstream model. apiKey is the decrypted credential; it may
// be empty only for the self-hosted family.
func (r *Registry) Resolve(ctx context.Context, cfg *types.ModelConfig, apiKey string) (*Handle, error) {
	kind := Kind(cfg.Provider)
	build, ok := constructors[kind]
	if !ok {
		return nil, &UnsupportedProviderError{Tag: cfg.Provider}
	}

	baseURL := ""
	if cfg.BaseURL != nil {
		baseURL = NormalizeBaseURL(*cfg.BaseURL)
	}
	if baseURL == "" {
		baseURL = r.configuredBaseURL(kind)
	}

	return build(ctx, buildParams{
		apiKey:  apiKey,
		baseURL: baseURL,
		modelID: cfg.Model,
	})
}

// configuredBaseURL returns the app-config override for a family, if any.
func (r *Registry) configuredBaseURL(kind Kind) string {
	if r.config == nil {
		return ""
	}
	if pc, ok := r.config.Provider[string(kind)]; ok {
		return NormalizeBaseURL(pc.BaseURL)
	}
	return ""
}

// endpointSuffixes are completion-endpoint paths users paste along with the
// base URL; they are stripped during normalization. Order matters: longer
// suffixes first so "/v1/chat/completions" leaves "/v1" behind.
var endpointSuffixes = []string{
	"/chat/completions",
	"/completions",
	"/api/chat",
	"/api/generate",
}

// NormalizeBaseURL strips accidentally-included completion-endpoint suffixes
// and trailing slashes from a user-supplied base URL. Normalization is
// best-effort: input that does not parse as a URL is returned unchanged.
func NormalizeBaseURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}

	path := strings.TrimSuffix(u.Path, "/")
	for _, suffix := range endpointSuffixes {
		if strings.HasSuffix(path, suffix) {
			path = strings.TrimSuffix(path, suffix)
			break
		}
	}
	u.Path = strings.TrimSuffix(path, "/")

	return u.String()
}
