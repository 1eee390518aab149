package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drover-dev/drover/pkg/agent"
)

// maxReadSize caps how much file content a single read returns to the model.
const maxReadSize = 100 * 1024

// ReadTool reads file contents.
type ReadTool struct {
	cwd string
}

// NewReadTool creates a Read tool rooted at cwd.
func NewReadTool(cwd string) *ReadTool {
	return &ReadTool{cwd: cwd}
}

// Name implements agent.Tool.
func (t *ReadTool) Name() string {
	return "read"
}

// Description implements agent.Tool.
func (t *ReadTool) Description() string {
	return "Read the contents of a text file."
}

// Parameters implements agent.Tool.
func (t *ReadTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to read (relative or absolute)",
			},
		},
		"required": []string{"path"},
	}
}

// Execute implements agent.Tool.
func (t *ReadTool) Execute(_ context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, fmt.Errorf("path must be a string")
	}
	path = resolvePath(t.cwd, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	if isBinary(data) {
		return nil, fmt.Errorf("%s looks like a binary file", path)
	}

	content := string(data)
	if len(content) > maxReadSize {
		content = content[:maxReadSize] + "\n\n... (file truncated, too large)"
	}

	return []agent.ContentBlock{agent.NewTextContent(content)}, nil
}

// isBinary sniffs for NUL bytes in the head of the file.
func isBinary(data []byte) bool {
	const sniffLen = 8192
	if len(data) > sniffLen {
		data = data[:sniffLen]
	}
	for _, b := range data {
		if b == 0 {
			return true
		}
	}
	return false
}

// resolvePath joins relative paths onto the working directory.
func resolvePath(cwd, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(cwd, path)
}
