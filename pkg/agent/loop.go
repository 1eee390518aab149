package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/drover-dev/drover/pkg/llm"
	"github.com/drover-dev/drover/pkg/logger"
)

const (
	// DefaultMaxIterations caps the completion/tool round-trips for one Run
	// call so a looping model cannot burn tokens forever.
	DefaultMaxIterations = 40
	// DefaultMaxRetries is how many times a rate-limited completion is
	// retried before giving up.
	DefaultMaxRetries = 3

	defaultRetryDelay = 2 * time.Second
)

// ErrMaxIterations is returned when a Run call exhausts its iteration budget
// without the model producing a final answer.
var ErrMaxIterations = errors.New("agent reached the maximum number of iterations")

// Completer produces one model completion. *llm.Client implements it; tests
// substitute a fake.
type Completer interface {
	Complete(ctx context.Context, llmCtx llm.Context) (*llm.Completion, error)
}

// Config tunes the agent loop.
type Config struct {
	ModelID       string
	SystemPrompt  string
	MaxIterations int // 0 = DefaultMaxIterations
	MaxRetries    int // 0 = DefaultMaxRetries
	Logger        *logger.Logger
}

// Events carries optional callbacks for surfacing progress to a UI. Nil
// callbacks are skipped.
type Events struct {
	OnAssistantText func(text string)
	OnToolCall      func(name string, args map[string]any)
	OnToolResult    func(name, text string, isError bool)
}

// Agent runs the blocking completion/tool loop: send the conversation, run
// the requested tools, feed the results back, repeat until the model answers
// in plain text.
type Agent struct {
	client Completer
	tools  ToolSet
	cfg    Config
	log    *logger.Logger
	events Events

	messages []Message
	usage    llm.Usage
}

// New builds an agent. tools may be nil for a pure-chat agent.
func New(client Completer, tools ToolSet, cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Agent{client: client, tools: tools, cfg: cfg, log: log}
}

// SetEvents installs the progress callbacks.
func (a *Agent) SetEvents(events Events) {
	a.events = events
}

// Messages returns the recorded conversation.
func (a *Agent) Messages() []Message {
	return a.messages
}

// RestoreMessages seeds the conversation, e.g. when resuming a persisted
// session.
func (a *Agent) RestoreMessages(messages []Message) {
	a.messages = messages
}

// Usage returns the token usage accumulated across all completions.
func (a *Agent) Usage() llm.Usage {
	return a.usage
}

// Run submits one user input and drives the loop to the model's final text
// answer.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	a.messages = append(a.messages, NewUserMessage(input))

	for i := 0; i < a.cfg.MaxIterations; i++ {
		completion, err := a.complete(ctx)
		if err != nil {
			return "", err
		}
		a.usage.Add(completion.Usage)

		assistant := fromCompletion(completion, a.cfg.ModelID)
		a.messages = append(a.messages, assistant)

		if text := assistant.ExtractText(); text != "" && a.events.OnAssistantText != nil {
			a.events.OnAssistantText(text)
		}

		calls := assistant.ExtractToolCalls()
		if len(calls) == 0 {
			return assistant.ExtractText(), nil
		}
		a.runToolCalls(ctx, calls)
	}

	return "", ErrMaxIterations
}

// complete calls the model, retrying rate-limited requests with the
// provider's suggested delay.
func (a *Agent) complete(ctx context.Context) (*llm.Completion, error) {
	llmCtx := llm.Context{
		SystemPrompt: a.cfg.SystemPrompt,
		Messages:     toWireMessages(a.messages),
	}
	if a.tools != nil {
		llmCtx.Tools = a.tools.Definitions()
	}

	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		completion, err := a.client.Complete(ctx, llmCtx)
		if err == nil {
			return completion, nil
		}
		lastErr = err
		if !llm.IsRateLimit(err) {
			return nil, err
		}

		delay := llm.RetryAfter(err)
		if delay <= 0 {
			delay = defaultRetryDelay << attempt
		}
		a.log.Warn("rate limited, retrying in %s (attempt %d/%d)", delay, attempt+1, a.cfg.MaxRetries)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// runToolCalls executes each requested tool and appends its result message.
// Tool failures are reported back to the model, never up to the caller.
func (a *Agent) runToolCalls(ctx context.Context, calls []ToolCallContent) {
	for _, call := range calls {
		if a.events.OnToolCall != nil {
			a.events.OnToolCall(call.Name, call.Arguments)
		}

		content, isError := a.runToolCall(ctx, call)
		result := NewToolResultMessage(call.ID, call.Name, content, isError)
		a.messages = append(a.messages, result)

		if a.events.OnToolResult != nil {
			a.events.OnToolResult(call.Name, result.ExtractText(), isError)
		}
	}
}

func (a *Agent) runToolCall(ctx context.Context, call ToolCallContent) ([]ContentBlock, bool) {
	if a.tools == nil {
		return []ContentBlock{NewTextContent("Error: no tools are available")}, true
	}
	tool, ok := a.tools.Get(call.Name)
	if !ok {
		return []ContentBlock{NewTextContent(fmt.Sprintf("Error: unknown tool %q", call.Name))}, true
	}

	a.log.Debug("tool call %s args=%v", call.Name, call.Arguments)
	content, err := tool.Execute(ctx, call.Arguments)
	if err != nil {
		a.log.Error("tool %s failed: %v", call.Name, err)
		return []ContentBlock{NewTextContent("Error: " + err.Error())}, true
	}
	if len(content) == 0 {
		content = []ContentBlock{NewTextContent("(no output)")}
	}
	return content, false
}

// Close tears down any tools holding external resources.
func (a *Agent) Close() error {
	if a.tools == nil {
		return nil
	}
	var firstErr error
	for _, def := range a.tools.Definitions() {
		tool, ok := a.tools.Get(def.Function.Name)
		if !ok {
			continue
		}
		if closer, ok := tool.(Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func timestampNow() int64 {
	return time.Now().UnixMilli()
}
