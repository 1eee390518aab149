package tools

import (
	"sort"

	"github.com/drover-dev/drover/pkg/agent"
	"github.com/drover-dev/drover/pkg/llm"
)

// Registry holds the tools available to an agent and serves the agent.ToolSet
// interface.
type Registry struct {
	tools map[string]agent.Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]agent.Tool)}
}

// Register adds a tool, replacing any tool of the same name.
func (r *Registry) Register(tool agent.Tool) {
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (agent.Tool, bool) {
	tool, ok := r.tools[name]
	return tool, ok
}

// All returns the registered tools sorted by name.
func (r *Registry) All() []agent.Tool {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	tools := make([]agent.Tool, 0, len(names))
	for _, name := range names {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Definitions renders every tool in the chat-completions tool format.
func (r *Registry) Definitions() []llm.Tool {
	defs := make([]llm.Tool, 0, len(r.tools))
	for _, tool := range r.All() {
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
