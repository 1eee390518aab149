package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/drover-dev/drover/pkg/logger"
)

const defaultRequestTimeout = 5 * time.Minute

// Client calls an OpenAI-compatible chat-completions endpoint.
type Client struct {
	model  Model
	apiKey string
	http   *http.Client
	log    *logger.Logger
}

// NewClient builds a client for the given model. A nil logger falls back to
// the package default.
func NewClient(model Model, apiKey string, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Client{
		model:  model,
		apiKey: apiKey,
		http:   &http.Client{Timeout: defaultRequestTimeout},
		log:    log,
	}
}

// completionRequest is the wire format of one chat-completions call.
type completionRequest struct {
	Model      string    `json:"model"`
	Messages   []Message `json:"messages"`
	Tools      []Tool    `json:"tools,omitempty"`
	ToolChoice string    `json:"tool_choice,omitempty"`
	Stream     bool      `json:"stream"`
}

// completionResponse is the subset of the response body the client consumes.
type completionResponse struct {
	Choices []struct {
		Message      Message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
	Usage Usage `json:"usage"`
	Error *struct {
		Message string `json:"message,omitempty"`
		Type    string `json:"type,omitempty"`
	} `json:"error,omitempty"`
}

// Complete sends the context to the model and blocks until the full answer
// arrives. Non-200 responses become the typed errors of this package.
func (c *Client) Complete(ctx context.Context, llmCtx Context) (*Completion, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not set for provider %q", c.model.Provider)
	}

	messages := llmCtx.Messages
	if llmCtx.SystemPrompt != "" {
		system := Message{Role: "system", Content: llmCtx.SystemPrompt}
		messages = append([]Message{system}, llmCtx.Messages...)
	}

	reqBody := completionRequest{
		Model:    c.model.ID,
		Messages: messages,
	}
	if len(llmCtx.Tools) > 0 {
		reqBody.Tools = llmCtx.Tools
		reqBody.ToolChoice = "auto"
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	c.log.Debug("llm request model=%s messages=%d tools=%d bytes=%d",
		c.model.ID, len(messages), len(llmCtx.Tools), len(jsonBody))

	url := strings.TrimRight(c.model.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if strings.Contains(err.Error(), "no such host") {
			return nil, fmt.Errorf("cannot resolve API host for %s: %w", c.model.BaseURL, err)
		}
		return nil, fmt.Errorf("connection error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyAPIErrorWithRetryAfter(resp.StatusCode, string(body), parseRetryAfter(resp))
	}

	var decoded completionResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if decoded.Error != nil {
		msg := strings.TrimSpace(decoded.Error.Message)
		if msg == "" {
			msg = strings.TrimSpace(decoded.Error.Type)
		}
		return nil, ClassifyAPIError(resp.StatusCode, msg)
	}
	if len(decoded.Choices) == 0 {
		return nil, fmt.Errorf("empty response from model %s", c.model.ID)
	}

	choice := decoded.Choices[0]
	c.log.Debug("llm response finish=%s tool_calls=%d tokens=%d",
		choice.FinishReason, len(choice.Message.ToolCalls), decoded.Usage.TotalTokens)

	return &Completion{
		Message:    choice.Message,
		Usage:      decoded.Usage,
		StopReason: choice.FinishReason,
	}, nil
}

// parseRetryAfter reads the Retry-After header in its delay-seconds form.
func parseRetryAfter(resp *http.Response) time.Duration {
	header := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if header == "" {
		return 0
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
