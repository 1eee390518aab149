package tools

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/drover-dev/drover/pkg/agent"
)

// GrepTool searches file contents, preferring ripgrep and falling back to
// plain grep.
type GrepTool struct {
	cwd string
}

// NewGrepTool creates a Grep tool rooted at cwd.
func NewGrepTool(cwd string) *GrepTool {
	return &GrepTool{cwd: cwd}
}

// Name implements agent.Tool.
func (t *GrepTool) Name() string {
	return "grep"
}

// Description implements agent.Tool.
func (t *GrepTool) Description() string {
	return "Search file contents for a regular expression. Uses ripgrep when available (respects .gitignore), otherwise grep."
}

// Parameters implements agent.Tool.
func (t *GrepTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"pattern": map[string]any{
				"type":        "string",
				"description": "Search pattern (regular expression)",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Directory or file to search (default: working directory)",
			},
			"filePattern": map[string]any{
				"type":        "string",
				"description": "Glob to restrict the files searched, e.g. '*.go'",
			},
		},
		"required": []string{"pattern"},
	}
}

// Execute implements agent.Tool.
func (t *GrepTool) Execute(ctx context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	pattern, ok := args["pattern"].(string)
	if !ok {
		return nil, fmt.Errorf("pattern must be a string")
	}
	searchPath := t.cwd
	if path, ok := args["path"].(string); ok && path != "" {
		searchPath = resolvePath(t.cwd, path)
	}
	filePattern, _ := args["filePattern"].(string)

	cmd := t.buildCommand(ctx, pattern, searchPath, filePattern)
	cmd.Dir = t.cwd

	output, err := cmd.CombinedOutput()
	if err != nil {
		// Both rg and grep exit 1 on zero matches.
		if len(output) == 0 {
			return []agent.ContentBlock{agent.NewTextContent("No matches found")}, nil
		}
		return nil, fmt.Errorf("search failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	result := strings.TrimSpace(string(output))
	if result == "" {
		result = "No matches found"
	}
	return []agent.ContentBlock{agent.NewTextContent(result)}, nil
}

func (t *GrepTool) buildCommand(ctx context.Context, pattern, searchPath, filePattern string) *exec.Cmd {
	if _, err := exec.LookPath("rg"); err == nil {
		cmdArgs := []string{"--no-heading", "--line-number", "--color=never"}
		if filePattern != "" {
			cmdArgs = append(cmdArgs, "--glob", filePattern)
		}
		cmdArgs = append(cmdArgs, pattern, searchPath)
		return exec.CommandContext(ctx, "rg", cmdArgs...)
	}

	cmdArgs := []string{"-rn"}
	if filePattern != "" {
		cmdArgs = append(cmdArgs, "--include", filePattern)
	}
	cmdArgs = append(cmdArgs, pattern, searchPath)
	return exec.CommandContext(ctx, "grep", cmdArgs...)
}
