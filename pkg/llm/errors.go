package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// APIError is a non-200 response that fits no more specific category.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "unknown API error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, msg)
	}
	return "API error: " + msg
}

// ContextLengthExceededError means the request outgrew the model's context
// window. The caller can shrink the conversation and retry.
type ContextLengthExceededError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *ContextLengthExceededError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "context length exceeded"
	}
	return fmt.Sprintf("context length exceeded (%d): %s", e.StatusCode, msg)
}

// RateLimitError means the provider throttled the request.
type RateLimitError struct {
	StatusCode int
	Message    string
	Body       string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "rate limit exceeded"
	}
	if e.RetryAfter > 0 {
		msg = fmt.Sprintf("%s (retry after %s)", msg, e.RetryAfter.Round(time.Second))
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, msg)
}

// ClassifyAPIError converts an API response payload into a typed error.
func ClassifyAPIError(statusCode int, payload string) error {
	return ClassifyAPIErrorWithRetryAfter(statusCode, payload, 0)
}

// ClassifyAPIErrorWithRetryAfter is ClassifyAPIError with the provider's
// Retry-After hint preserved on rate-limit errors.
func ClassifyAPIErrorWithRetryAfter(statusCode int, payload string, retryAfter time.Duration) error {
	payload = strings.TrimSpace(payload)
	message := extractErrorMessage(payload)
	if message == "" {
		message = payload
	}
	if message == "" {
		message = "unknown API error"
	}

	if looksLikeContextLength(message) || looksLikeContextLength(payload) {
		return &ContextLengthExceededError{StatusCode: statusCode, Message: message, Body: payload}
	}
	if statusCode == 429 || looksLikeRateLimit(message) || looksLikeRateLimit(payload) {
		return &RateLimitError{StatusCode: statusCode, Message: message, Body: payload, RetryAfter: retryAfter}
	}
	return &APIError{StatusCode: statusCode, Message: message, Body: payload}
}

// IsContextLengthExceeded reports whether err is a context-window failure.
func IsContextLengthExceeded(err error) bool {
	if err == nil {
		return false
	}
	var cle *ContextLengthExceededError
	if errors.As(err, &cle) {
		return true
	}
	return looksLikeContextLength(err.Error())
}

// IsRateLimit reports whether err is provider throttling.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	return looksLikeRateLimit(err.Error())
}

// RetryAfter returns the provider-suggested delay for a rate-limit error, or
// zero when none was given.
func RetryAfter(err error) time.Duration {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle.RetryAfter
	}
	return 0
}

// extractErrorMessage pulls the human-readable message out of the common
// OpenAI-compatible error body shapes.
func extractErrorMessage(payload string) string {
	if payload == "" {
		return ""
	}
	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return ""
	}

	// {"error":{"message":"..."}} or {"error":"..."}
	if rawErr, ok := decoded["error"]; ok {
		switch v := rawErr.(type) {
		case string:
			return strings.TrimSpace(v)
		case map[string]any:
			for _, key := range []string{"message", "detail", "type"} {
				if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
		}
	}
	if s, ok := decoded["message"].(string); ok {
		return strings.TrimSpace(s)
	}
	if s, ok := decoded["detail"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

var contextLengthNeedles = []string{
	"context length",
	"context window",
	"maximum context",
	"context limit",
	"too many tokens",
	"maximum number of tokens",
	"prompt is too long",
	"token limit exceeded",
	"context_window_exceeded",
}

func looksLikeContextLength(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	for _, needle := range contextLengthNeedles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}

var rateLimitNeedles = []string{
	"rate limit",
	"too many requests",
	"api error (429)",
	"throttle",
	"quota exceeded",
}

func looksLikeRateLimit(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false
	}
	for _, needle := range rateLimitNeedles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
