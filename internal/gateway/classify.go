package gateway

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Kind is a stable error category. The caller owns mapping kinds to
// transport-level status codes.
type Kind string

const (
	KindRateLimit            Kind = "rate-limit"
	KindAuthentication       Kind = "authentication"
	KindModelNotFound        Kind = "model-not-found"
	KindContextExceeded      Kind = "context-exceeded"
	KindContentPolicy        Kind = "content-policy"
	KindInvalidRequest       Kind = "invalid-request"
	KindNetwork              Kind = "network"
	KindServiceUnavailable   Kind = "service-unavailable"
	KindPaymentRequired      Kind = "payment-required"
	KindNotFound             Kind = "not-found"
	KindInvalidConfiguration Kind = "invalid-configuration"
	KindInternal             Kind = "internal"
)

// ClassifiedError pairs a stable kind with a sanitized user-facing
// message.
type ClassifiedError struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (e *ClassifiedError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// category binds one kind to its case-insensitive substring patterns.
// Classification walks the table in declared order and the first match
// wins, so a message matching two categories always resolves to the
// earlier one. The order is a policy choice; change it deliberately.
type category struct {
	kind     Kind
	patterns []string
}

var categories = []category{
	{KindRateLimit, []string{
		"rate limit", "rate_limit", "ratelimit", "too many requests", "429", "quota exceeded",
	}},
	{KindAuthentication, []string{
		"unauthorized", "401", "403", "forbidden", "invalid api key", "invalid x-api-key",
		"incorrect api key", "authentication", "permission denied",
	}},
	{KindModelNotFound, []string{
		"model not found", "model_not_found", "no such model", "unknown model",
		"does not exist or you do not have access",
	}},
	{KindContextExceeded, []string{
		"context length", "context_length", "maximum context", "context window",
		"too many tokens", "prompt is too long",
	}},
	{KindContentPolicy, []string{
		"content policy", "content_policy", "content filter", "content management policy",
		"flagged as potentially violating",
	}},
	{KindInvalidRequest, []string{
		"invalid request", "invalid_request", "bad request", "400", "unprocessable",
	}},
	{KindNetwork, []string{
		"connection refused", "connection reset", "no such host", "dial tcp",
		"network", "timeout", "timed out", "deadline exceeded", "context canceled",
		"broken pipe", "unexpected eof",
	}},
	{KindServiceUnavailable, []string{
		"service unavailable", "503", "502", "bad gateway", "overloaded",
		"internal server error", "500", "server_error",
	}},
	{KindPaymentRequired, []string{
		"payment required", "402", "insufficient credit", "insufficient_quota",
		"billing", "exceeded your current quota",
	}},
}

// secretKeyPattern matches long provider-key-shaped substrings so raw
// credentials never reach logs or callers.
var secretKeyPattern = regexp.MustCompile(`\b(?:sk|pk|rk)(?:-[A-Za-z0-9]+)?-[A-Za-z0-9_-]{16,}\b|\b[A-Za-z0-9_-]{48,}\b`)

const maskedSecret = "[redacted]"

// MaskSecrets replaces key-shaped substrings with a placeholder.
func MaskSecrets(s string) string {
	return secretKeyPattern.ReplaceAllString(s, maskedSecret)
}

// Classify maps an arbitrary upstream error onto the fixed taxonomy. The
// message is sanitized before any matching, so patterns never fire on
// secret material. Classify never panics and never returns nil.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{Kind: KindInternal, Message: "unknown internal error"}
	}
	if classified, ok := asClassified(err); ok {
		return classified
	}

	message := MaskSecrets(err.Error())

	probe := strings.ToLower(message)
	if code := errorCode(err); code != "" {
		probe += " " + strings.ToLower(code)
	}

	for _, cat := range categories {
		for _, pattern := range cat.patterns {
			if strings.Contains(probe, pattern) {
				return &ClassifiedError{Kind: cat.kind, Message: message}
			}
		}
	}
	return &ClassifiedError{Kind: KindInternal, Message: message}
}

// asClassified preserves an already-classified error instead of
// re-matching its rendered message.
func asClassified(err error) (*ClassifiedError, bool) {
	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified, true
	}
	return nil, false
}

type statusCoder interface{ StatusCode() int }

type coder interface{ Code() string }

// errorCode extracts an embedded status or error code from err or any
// error it wraps.
func errorCode(err error) string {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if sc, ok := e.(statusCoder); ok {
			return strconv.Itoa(sc.StatusCode())
		}
		if c, ok := e.(coder); ok {
			return c.Code()
		}
	}
	return ""
}
