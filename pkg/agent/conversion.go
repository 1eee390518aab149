package agent

import (
	"encoding/json"

	"github.com/drover-dev/drover/pkg/llm"
)

// toWireMessages flattens the agent's message history into the OpenAI chat
// format: tool call blocks become tool_calls on the assistant message, tool
// results become role "tool" messages keyed by tool_call_id.
func toWireMessages(messages []Message) []llm.Message {
	wire := make([]llm.Message, 0, len(messages))
	for i := range messages {
		m := &messages[i]
		switch m.Role {
		case "user":
			wire = append(wire, llm.Message{Role: "user", Content: m.ExtractText()})
		case "assistant":
			wire = append(wire, llm.Message{
				Role:      "assistant",
				Content:   m.ExtractText(),
				ToolCalls: toWireToolCalls(m.ExtractToolCalls()),
			})
		case "toolResult":
			wire = append(wire, llm.Message{
				Role:       "tool",
				Content:    m.ExtractText(),
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return wire
}

func toWireToolCalls(calls []ToolCallContent) []llm.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	wire := make([]llm.ToolCall, 0, len(calls))
	for _, call := range calls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			args = []byte("{}")
		}
		wire = append(wire, llm.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: llm.FunctionCall{
				Name:      call.Name,
				Arguments: string(args),
			},
		})
	}
	return wire
}

// fromCompletion records the model's answer as an assistant message.
// Unparseable tool arguments become an empty map; the tool reports the
// missing fields itself.
func fromCompletion(completion *llm.Completion, modelID string) Message {
	msg := Message{
		Role:       "assistant",
		Content:    []ContentBlock{},
		Timestamp:  timestampNow(),
		Model:      modelID,
		StopReason: completion.StopReason,
	}
	usage := completion.Usage
	msg.Usage = &usage

	if text := completion.Message.Content; text != "" {
		msg.Content = append(msg.Content, NewTextContent(text))
	}
	for _, call := range completion.Message.ToolCalls {
		args := map[string]any{}
		if call.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(call.Function.Arguments), &args)
		}
		msg.Content = append(msg.Content, ToolCallContent{
			ID:        call.ID,
			Type:      "toolCall",
			Name:      call.Function.Name,
			Arguments: args,
		})
	}
	return msg
}
