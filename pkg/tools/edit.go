package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/drover-dev/drover/pkg/agent"
)

// EditTool replaces one exact text span in a file and reports the change as
// a unified diff.
type EditTool struct {
	cwd string
}

// NewEditTool creates an Edit tool rooted at cwd.
func NewEditTool(cwd string) *EditTool {
	return &EditTool{cwd: cwd}
}

// Name implements agent.Tool.
func (t *EditTool) Name() string {
	return "edit"
}

// Description implements agent.Tool.
func (t *EditTool) Description() string {
	return "Edit a file by replacing an exact text match. The oldText must appear exactly once; " +
		"include surrounding lines to disambiguate repeated snippets."
}

// Parameters implements agent.Tool.
func (t *EditTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Path to the file to edit (relative or absolute)",
			},
			"oldText": map[string]any{
				"type":        "string",
				"description": "Exact text to replace; must occur exactly once in the file",
			},
			"newText": map[string]any{
				"type":        "string",
				"description": "Replacement text",
			},
		},
		"required": []string{"path", "oldText", "newText"},
	}
}

// Execute implements agent.Tool.
func (t *EditTool) Execute(_ context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	path, ok := args["path"].(string)
	if !ok {
		return nil, fmt.Errorf("path must be a string")
	}
	oldText, ok := args["oldText"].(string)
	if !ok {
		return nil, fmt.Errorf("oldText must be a string")
	}
	newText, ok := args["newText"].(string)
	if !ok {
		return nil, fmt.Errorf("newText must be a string")
	}
	if oldText == "" {
		return nil, fmt.Errorf("oldText must not be empty")
	}
	path = resolvePath(t.cwd, path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	content := string(data)

	switch count := strings.Count(content, oldText); count {
	case 0:
		return nil, fmt.Errorf("oldText not found in %s", path)
	case 1:
	default:
		return nil, fmt.Errorf("oldText occurs %d times in %s; add surrounding context to make it unique", count, path)
	}

	edited := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(path, []byte(edited), 0644); err != nil {
		return nil, fmt.Errorf("write file %s: %w", path, err)
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(content),
		B:        difflib.SplitLines(edited),
		FromFile: path,
		ToFile:   path,
		Context:  3,
	})
	if err != nil {
		diff = "(diff unavailable)"
	}

	return []agent.ContentBlock{
		agent.NewTextContent(fmt.Sprintf("Edited %s\n\n%s", path, diff)),
	}, nil
}
