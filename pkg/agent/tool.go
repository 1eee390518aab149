package agent

import (
	"context"

	"github.com/drover-dev/drover/pkg/llm"
)

// Tool is one capability the agent can invoke. Implementations report
// recoverable failures inside the returned content (paired with isError on
// the result message); a non-nil error means the tool itself is broken.
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) ([]ContentBlock, error)
}

// ToolSet is the lookup surface the loop needs; pkg/tools.Registry
// implements it.
type ToolSet interface {
	Get(name string) (Tool, bool)
	Definitions() []llm.Tool
}

// Closer is implemented by tools that hold external resources (e.g. a
// terminal session) and need teardown when the agent shuts down.
type Closer interface {
	Close() error
}
