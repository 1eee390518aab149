package agent

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/drover-dev/drover/pkg/llm"
)

// ContentBlock is one block of message content. The concrete types below
// implement it.
type ContentBlock interface {
	IsContentBlock()
}

// TextContent is plain text content.
type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (t TextContent) IsContentBlock() {}

// NewTextContent builds a text block.
func NewTextContent(text string) TextContent {
	return TextContent{Type: "text", Text: text}
}

// ToolCallContent is a tool invocation requested by the assistant.
type ToolCallContent struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"` // "toolCall"
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (t ToolCallContent) IsContentBlock() {}

// Message is one turn of the conversation as the agent records it. Tool
// results are their own role so they can be paired back to the call that
// produced them.
type Message struct {
	Role      string         `json:"role"` // "user", "assistant", "toolResult"
	Content   []ContentBlock `json:"content"`
	Timestamp int64          `json:"timestamp"`

	// Assistant fields.
	Model      string     `json:"model,omitempty"`
	StopReason string     `json:"stopReason,omitempty"`
	Usage      *llm.Usage `json:"usage,omitempty"`

	// Tool result fields.
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
}

// NewUserMessage creates a user message with text content.
func NewUserMessage(text string) Message {
	return Message{
		Role:      "user",
		Content:   []ContentBlock{NewTextContent(text)},
		Timestamp: time.Now().UnixMilli(),
	}
}

// NewToolResultMessage creates a tool result message.
func NewToolResultMessage(toolCallID, toolName string, content []ContentBlock, isError bool) Message {
	return Message{
		Role:       "toolResult",
		Content:    content,
		Timestamp:  time.Now().UnixMilli(),
		ToolCallID: toolCallID,
		ToolName:   toolName,
		IsError:    isError,
	}
}

// ExtractText concatenates all text blocks of the message.
func (m *Message) ExtractText() string {
	var b strings.Builder
	for _, block := range m.Content {
		if tc, ok := block.(TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

// ExtractToolCalls returns the tool call blocks of an assistant message.
func (m *Message) ExtractToolCalls() []ToolCallContent {
	calls := make([]ToolCallContent, 0)
	for _, block := range m.Content {
		if tc, ok := block.(ToolCallContent); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// UnmarshalJSON decodes the ContentBlock interface slice by dispatching on
// each block's "type" field. Unknown block types are dropped.
func (m *Message) UnmarshalJSON(data []byte) error {
	type rawMessage struct {
		Role       string            `json:"role"`
		Content    []json.RawMessage `json:"content"`
		Timestamp  int64             `json:"timestamp"`
		Model      string            `json:"model,omitempty"`
		StopReason string            `json:"stopReason,omitempty"`
		Usage      *llm.Usage        `json:"usage,omitempty"`
		ToolCallID string            `json:"toolCallId,omitempty"`
		ToolName   string            `json:"toolName,omitempty"`
		IsError    bool              `json:"isError,omitempty"`
	}

	var raw rawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Role = raw.Role
	m.Timestamp = raw.Timestamp
	m.Model = raw.Model
	m.StopReason = raw.StopReason
	m.Usage = raw.Usage
	m.ToolCallID = raw.ToolCallID
	m.ToolName = raw.ToolName
	m.IsError = raw.IsError

	m.Content = make([]ContentBlock, 0, len(raw.Content))
	for _, rawBlock := range raw.Content {
		var typeCheck struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(rawBlock, &typeCheck); err != nil {
			continue
		}
		switch typeCheck.Type {
		case "text":
			var tc TextContent
			if err := json.Unmarshal(rawBlock, &tc); err == nil {
				m.Content = append(m.Content, tc)
			}
		case "toolCall":
			var tcc ToolCallContent
			if err := json.Unmarshal(rawBlock, &tcc); err == nil {
				m.Content = append(m.Content, tcc)
			}
		}
	}
	return nil
}
