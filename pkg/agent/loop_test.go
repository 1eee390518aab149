package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drover-dev/drover/pkg/llm"
	"github.com/drover-dev/drover/pkg/logger"
)

// fakeCompleter serves scripted completions and records every request.
type fakeCompleter struct {
	responses []*llm.Completion
	errs      []error
	requests  []llm.Context
}

func (f *fakeCompleter) Complete(_ context.Context, llmCtx llm.Context) (*llm.Completion, error) {
	f.requests = append(f.requests, llmCtx)
	i := len(f.requests) - 1
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return textCompletion("done"), nil
}

func textCompletion(text string) *llm.Completion {
	return &llm.Completion{
		Message:    llm.Message{Role: "assistant", Content: text},
		StopReason: "stop",
		Usage:      llm.Usage{InputTokens: 5, OutputTokens: 5, TotalTokens: 10},
	}
}

func toolCallCompletion(id, name, args string) *llm.Completion {
	return &llm.Completion{
		Message: llm.Message{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{{
				ID:       id,
				Type:     "function",
				Function: llm.FunctionCall{Name: name, Arguments: args},
			}},
		},
		StopReason: "tool_calls",
	}
}

// echoTool returns its "text" argument, or fails when told to.
type echoTool struct {
	calls []map[string]any
}

func (t *echoTool) Name() string        { return "echo" }
func (t *echoTool) Description() string { return "Echo the given text back." }
func (t *echoTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string"},
		},
		"required": []string{"text"},
	}
}

func (t *echoTool) Execute(_ context.Context, args map[string]any) ([]ContentBlock, error) {
	t.calls = append(t.calls, args)
	text, ok := args["text"].(string)
	if !ok {
		return nil, fmt.Errorf("text must be a string")
	}
	return []ContentBlock{NewTextContent("echo: " + text)}, nil
}

type fakeToolSet struct {
	tools map[string]Tool
}

func newFakeToolSet(tools ...Tool) *fakeToolSet {
	set := &fakeToolSet{tools: make(map[string]Tool)}
	for _, tool := range tools {
		set.tools[tool.Name()] = tool
	}
	return set
}

func (s *fakeToolSet) Get(name string) (Tool, bool) {
	tool, ok := s.tools[name]
	return tool, ok
}

func (s *fakeToolSet) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(s.tools))
	for _, tool := range s.tools {
		defs = append(defs, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        tool.Name(),
				Description: tool.Description(),
				Parameters:  tool.Parameters(),
			},
		})
	}
	return defs
}

func testConfig() Config {
	quiet, _ := logger.NewLogger(&logger.Config{Level: logger.ERROR})
	return Config{ModelID: "test-model", SystemPrompt: "be brief", Logger: quiet}
}

func TestRunPlainAnswer(t *testing.T) {
	client := &fakeCompleter{responses: []*llm.Completion{textCompletion("hello!")}}
	a := New(client, nil, testConfig())

	answer, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello!", answer)

	// One request, carrying the system prompt and the user turn.
	require.Len(t, client.requests, 1)
	assert.Equal(t, "be brief", client.requests[0].SystemPrompt)
	require.Len(t, client.requests[0].Messages, 1)
	assert.Equal(t, "user", client.requests[0].Messages[0].Role)

	// History holds user + assistant.
	require.Len(t, a.Messages(), 2)
	assert.Equal(t, "assistant", a.Messages()[1].Role)
	assert.Equal(t, 10, a.Usage().TotalTokens)
}

func TestRunToolRoundTrip(t *testing.T) {
	tool := &echoTool{}
	client := &fakeCompleter{responses: []*llm.Completion{
		toolCallCompletion("call_1", "echo", `{"text":"ping"}`),
		textCompletion("the tool said: echo: ping"),
	}}
	a := New(client, newFakeToolSet(tool), testConfig())

	answer, err := a.Run(context.Background(), "run echo")
	require.NoError(t, err)
	assert.Equal(t, "the tool said: echo: ping", answer)

	// The tool ran with decoded arguments.
	require.Len(t, tool.calls, 1)
	assert.Equal(t, "ping", tool.calls[0]["text"])

	// Second request carries assistant tool_calls and the tool result.
	require.Len(t, client.requests, 2)
	wire := client.requests[1].Messages
	require.Len(t, wire, 3)
	assert.Equal(t, "assistant", wire[1].Role)
	require.Len(t, wire[1].ToolCalls, 1)
	assert.Equal(t, "call_1", wire[1].ToolCalls[0].ID)
	assert.Equal(t, "tool", wire[2].Role)
	assert.Equal(t, "call_1", wire[2].ToolCallID)
	assert.Equal(t, "echo: ping", wire[2].Content)

	// History: user, assistant(toolCall), toolResult, assistant.
	msgs := a.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "toolResult", msgs[2].Role)
	assert.False(t, msgs[2].IsError)
}

func TestRunUnknownTool(t *testing.T) {
	client := &fakeCompleter{responses: []*llm.Completion{
		toolCallCompletion("call_1", "no_such_tool", `{}`),
		textCompletion("ok"),
	}}
	a := New(client, newFakeToolSet(&echoTool{}), testConfig())

	_, err := a.Run(context.Background(), "go")
	require.NoError(t, err)

	msgs := a.Messages()
	require.Len(t, msgs, 4)
	assert.True(t, msgs[2].IsError)
	assert.Contains(t, msgs[2].ExtractText(), `unknown tool "no_such_tool"`)
}

func TestRunToolError(t *testing.T) {
	client := &fakeCompleter{responses: []*llm.Completion{
		toolCallCompletion("call_1", "echo", `{"text":42}`), // wrong type
		textCompletion("ok"),
	}}
	a := New(client, newFakeToolSet(&echoTool{}), testConfig())

	_, err := a.Run(context.Background(), "go")
	require.NoError(t, err)

	msgs := a.Messages()
	require.Len(t, msgs, 4)
	assert.True(t, msgs[2].IsError)
	assert.Contains(t, msgs[2].ExtractText(), "text must be a string")
}

func TestRunRateLimitRetry(t *testing.T) {
	client := &fakeCompleter{
		errs:      []error{&llm.RateLimitError{StatusCode: 429, RetryAfter: time.Millisecond}},
		responses: []*llm.Completion{nil, textCompletion("after retry")},
	}
	a := New(client, nil, testConfig())

	answer, err := a.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "after retry", answer)
	assert.Len(t, client.requests, 2)
}

func TestRunNonRetryableError(t *testing.T) {
	boom := errors.New("connection refused")
	client := &fakeCompleter{errs: []error{boom}}
	a := New(client, nil, testConfig())

	_, err := a.Run(context.Background(), "hi")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, client.requests, 1)
}

func TestRunMaxIterations(t *testing.T) {
	// A model that only ever asks for tools never terminates on its own.
	client := &fakeCompleter{}
	for i := 0; i < 5; i++ {
		client.responses = append(client.responses, toolCallCompletion(fmt.Sprintf("call_%d", i), "echo", `{"text":"x"}`))
	}
	cfg := testConfig()
	cfg.MaxIterations = 3
	a := New(client, newFakeToolSet(&echoTool{}), cfg)

	_, err := a.Run(context.Background(), "loop forever")
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, client.requests, 3)
}

func TestEventsFire(t *testing.T) {
	var texts, toolNames []string
	client := &fakeCompleter{responses: []*llm.Completion{
		toolCallCompletion("call_1", "echo", `{"text":"ping"}`),
		textCompletion("done"),
	}}
	a := New(client, newFakeToolSet(&echoTool{}), testConfig())
	a.SetEvents(Events{
		OnAssistantText: func(text string) { texts = append(texts, text) },
		OnToolCall:      func(name string, _ map[string]any) { toolNames = append(toolNames, name) },
	})

	_, err := a.Run(context.Background(), "go")
	require.NoError(t, err)
	assert.Equal(t, []string{"done"}, texts)
	assert.Equal(t, []string{"echo"}, toolNames)
}

func TestRestoreMessages(t *testing.T) {
	client := &fakeCompleter{responses: []*llm.Completion{textCompletion("welcome back")}}
	a := New(client, nil, testConfig())
	a.RestoreMessages([]Message{
		NewUserMessage("earlier question"),
		{Role: "assistant", Content: []ContentBlock{NewTextContent("earlier answer")}},
	})

	_, err := a.Run(context.Background(), "and now?")
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	wire := client.requests[0].Messages
	require.Len(t, wire, 3)
	assert.Equal(t, "earlier question", wire[0].Content)
	assert.Equal(t, "earlier answer", wire[1].Content)
}
