package llm

// Model identifies the chat-completions endpoint and model to call.
type Model struct {
	ID       string `json:"id"`       // e.g., "gpt-4o", "glm-4.7"
	Provider string `json:"provider"` // e.g., "openai", "zai"
	BaseURL  string `json:"baseUrl"`  // e.g., "https://api.openai.com/v1"
}

// Context is everything sent to the model for one completion: the system
// prompt, the conversation so far and the tool definitions.
type Context struct {
	SystemPrompt string    `json:"systemPrompt,omitempty"`
	Messages     []Message `json:"messages"`
	Tools        []Tool    `json:"tools,omitempty"`
}

// Message is one turn in the conversation, in OpenAI chat format.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its JSON-encoded arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool is a tool definition advertised to the model.
type Tool struct {
	Type     string       `json:"type"` // "function"
	Function ToolFunction `json:"function"`
}

// ToolFunction describes one callable function and its JSON schema.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	InputTokens  int `json:"prompt_tokens"`
	OutputTokens int `json:"completion_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates usage across requests.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// Completion is the model's answer to one Complete call.
type Completion struct {
	Message    Message `json:"message"`
	Usage      Usage   `json:"usage"`
	StopReason string  `json:"stopReason"` // "stop", "tool_calls", "length", ...
}

// HasToolCalls reports whether the model asked for tools to be run.
func (c *Completion) HasToolCalls() bool {
	return len(c.Message.ToolCalls) > 0
}
