package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBasePrompt is the identity section used when the caller supplies no
// base prompt of its own.
const DefaultBasePrompt = `You are Drover, a software engineering agent that works inside a real terminal.

You solve tasks by running shell commands and editing files. Work step by step: inspect before you change, verify after you change. Prefer small, checkable actions over large speculative ones. When a command is long-running, poll it with an empty command or interrupt it with C-c rather than starting duplicates.`

// ToolInfo is the slice of a tool the prompt needs.
type ToolInfo interface {
	Name() string
	Description() string
}

// Builder assembles the system prompt from structured sections.
type Builder struct {
	base           string
	cwd            string
	workspaceNotes string
	tools          []ToolInfo
}

// NewBuilder creates a builder for the given working directory.
func NewBuilder(basePrompt, cwd string) *Builder {
	if basePrompt == "" {
		basePrompt = DefaultBasePrompt
	}
	return &Builder{base: basePrompt, cwd: cwd}
}

// SetWorkspaceNotes sets optional extra workspace reminders.
func (b *Builder) SetWorkspaceNotes(notes string) *Builder {
	b.workspaceNotes = notes
	return b
}

// SetTools sets the tools listed in the Tooling section.
func (b *Builder) SetTools(tools []ToolInfo) *Builder {
	b.tools = tools
	return b
}

// Build generates the final system prompt.
func (b *Builder) Build() string {
	sections := []string{b.base, b.buildWorkspaceSection()}
	if tooling := b.buildToolingSection(); tooling != "" {
		sections = append(sections, tooling)
	}
	if context := b.buildProjectContext(); context != "" {
		sections = append(sections, context)
	}
	return joinSections(sections)
}

func (b *Builder) buildWorkspaceSection() string {
	notes := ""
	if b.workspaceNotes != "" {
		notes = "\n" + b.workspaceNotes
	}
	return fmt.Sprintf(`## Workspace
Your working directory is: %s
Treat this directory as the workspace for file operations unless explicitly instructed otherwise.%s`, b.cwd, notes)
}

func (b *Builder) buildToolingSection() string {
	if len(b.tools) == 0 {
		return ""
	}
	lines := []string{
		"## Tooling",
		"You have access to the following tools:",
		"",
	}
	for _, tool := range b.tools {
		lines = append(lines, fmt.Sprintf("- %s: %s", tool.Name(), tool.Description()))
	}
	lines = append(lines, "", "Only use the tools listed above. Do NOT assume you have access to any other tools.")
	return strings.Join(lines, "\n")
}

// bootstrapFiles are picked up from the workspace and injected as project
// context. When AGENTS.md exists, CLAUDE.md is skipped to avoid duplicate
// instructions.
var bootstrapFiles = []string{
	"AGENTS.md",
	"CLAUDE.md",
}

func (b *Builder) buildProjectContext() string {
	var contexts []string
	hasAgents := b.loadBootstrapFile("AGENTS.md") != ""

	for _, filename := range bootstrapFiles {
		if filename == "CLAUDE.md" && hasAgents {
			continue
		}
		if content := b.loadBootstrapFile(filename); content != "" {
			contexts = append(contexts, fmt.Sprintf("### %s\n\n%s", filename, content))
		}
	}
	if len(contexts) == 0 {
		return ""
	}
	return "## Project Context\n" + strings.Join(contexts, "\n")
}

func (b *Builder) loadBootstrapFile(filename string) string {
	if content, err := os.ReadFile(filepath.Join(b.cwd, filename)); err == nil {
		return string(content)
	}
	return ""
}

func joinSections(sections []string) string {
	var result []string
	for _, s := range sections {
		if s != "" {
			result = append(result, strings.TrimSpace(s))
		}
	}
	return strings.Join(result, "\n\n")
}
