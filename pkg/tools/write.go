package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drover-dev/drover/pkg/agent"
)

// WriteTool creates or overwrites a file.
type WriteTool struct {
	cwd string
}

// NewWriteTool creates a Write tool rooted at cwd.
func NewWriteTool(cwd string) *WriteTool {
	return &WriteTool{cwd: cwd}
}

// Name implements agent.Tool.
func (t *WriteTool) Name() string {
	return "write"
}

// Description implements agent.Tool.
func (t *WriteTool) Description() string {
	return "Write content to a file, creating it (and parent directories) if needed and overwriting it if it exists."
}

// Parameters implements agent.Tool.
func (t *WriteTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to write",
			},
			"content": map[string]any{
				"type":        "string",
				"description": "Content to write to the file",
			},
		},
		"required": []string{"path", "content"},
	}
}

// Execute implements agent.Tool.
func (t *WriteTool) Execute(_ context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, fmt.Errorf("path must be a string")
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content must be a string")
	}
	path = resolvePath(t.cwd, path)

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("write file %s: %w", path, err)
	}

	return []agent.ContentBlock{
		agent.NewTextContent(fmt.Sprintf("Wrote %d bytes to %s", len(content), path)),
	}, nil
}
