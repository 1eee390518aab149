package llm

import (
	"errors"
	"testing"
	"time"
)

func TestClassifyAPIErrorContextLength(t *testing.T) {
	payload := `{"error":{"message":"This model's maximum context length is 128000 tokens. However, your messages resulted in 130001 tokens."}}`
	err := ClassifyAPIError(400, payload)

	var ctxErr *ContextLengthExceededError
	if !errors.As(err, &ctxErr) {
		t.Fatalf("expected ContextLengthExceededError, got %T (%v)", err, err)
	}
	if ctxErr.StatusCode != 400 {
		t.Fatalf("expected status 400, got %d", ctxErr.StatusCode)
	}
}

func TestClassifyAPIErrorRateLimit(t *testing.T) {
	err := ClassifyAPIErrorWithRetryAfter(429, `{"error":{"message":"Too many requests"}}`, 7*time.Second)

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected RateLimitError, got %T (%v)", err, err)
	}
	if !IsRateLimit(err) {
		t.Fatal("IsRateLimit should match the typed error")
	}
	if RetryAfter(err) != 7*time.Second {
		t.Fatalf("expected retry-after 7s, got %v", RetryAfter(err))
	}
}

func TestClassifyAPIErrorGeneric(t *testing.T) {
	err := ClassifyAPIError(401, `{"error":{"message":"invalid auth token"}}`)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T (%v)", err, err)
	}
	if apiErr.Message != "invalid auth token" {
		t.Fatalf("expected extracted message, got %q", apiErr.Message)
	}
}

func TestClassifyAPIErrorUnparseableBody(t *testing.T) {
	err := ClassifyAPIError(502, "<html>Bad Gateway</html>")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T (%v)", err, err)
	}
	if apiErr.Message != "<html>Bad Gateway</html>" {
		t.Fatalf("expected raw body as message, got %q", apiErr.Message)
	}
}

func TestIsContextLengthExceeded(t *testing.T) {
	if !IsContextLengthExceeded(&ContextLengthExceededError{Message: "context window exceeded"}) {
		t.Fatal("expected typed context length error to match")
	}
	if !IsContextLengthExceeded(errors.New("context window exceeded")) {
		t.Fatal("expected string context length error to match")
	}
	if IsContextLengthExceeded(errors.New("permission denied")) {
		t.Fatal("expected non-context error to not match")
	}
	if IsContextLengthExceeded(nil) {
		t.Fatal("nil error must not match")
	}
}
