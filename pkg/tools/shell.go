package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/drover-dev/drover/pkg/agent"
	"github.com/drover-dev/drover/pkg/logger"
	"github.com/drover-dev/drover/pkg/shell"
)

// ShellTool exposes one persistent interactive terminal to the agent. State
// (working directory, environment, running processes) carries across calls.
type ShellTool struct {
	cfg     shell.Config
	log     *logger.Logger
	session *shell.Session
}

// NewShellTool creates the tool. The terminal is spawned lazily on the first
// Execute call so a session that never touches the shell costs nothing.
func NewShellTool(cfg shell.Config) *ShellTool {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &ShellTool{cfg: cfg, log: log}
}

// Name implements agent.Tool.
func (t *ShellTool) Name() string {
	return "execute_bash"
}

// Description implements agent.Tool.
func (t *ShellTool) Description() string {
	return "Execute a bash command in a persistent terminal session. " +
		"State like the working directory and background processes persists between calls. " +
		"Long-running commands return control after a timeout while continuing to run; " +
		"send an empty command to fetch more output, set is_input to true to write to the " +
		"running process's stdin, or send a control key such as C-c to interrupt it."
}

// Parameters implements agent.Tool.
func (t *ShellTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type": "string",
				"description": "The bash command to run. An empty string retrieves additional logs " +
					"from a still-running command. Multiple commands must be chained with && or ; " +
					"rather than sent separately.",
			},
			"is_input": map[string]any{
				"type": "boolean",
				"description": "When true, the command text is sent to the STDIN of the running " +
					"process instead of being executed. Supports control keys like C-c, C-d, C-z.",
			},
			"timeout": map[string]any{
				"type": "number",
				"description": "Optional hard timeout in seconds. When set, the call blocks up to " +
					"this long and returns even if the command is still running.",
			},
		},
		"required": []string{"command"},
	}
}

// Execute implements agent.Tool. Recoverable conditions (busy session,
// timeouts, guard violations) are reported inside the observation text;
// returned errors mean the terminal itself is unusable.
func (t *ShellTool) Execute(ctx context.Context, args map[string]any) ([]agent.ContentBlock, error) {
	command, ok := args["command"].(string)
	if !ok {
		return nil, fmt.Errorf("command must be a string")
	}
	req := shell.Request{Command: command}
	if isInput, ok := args["is_input"].(bool); ok {
		req.IsInput = isInput
	}
	if seconds, ok := args["timeout"].(float64); ok && seconds > 0 {
		req.Timeout = time.Duration(seconds * float64(time.Second))
	}

	session, err := t.ensureSession()
	if err != nil {
		return nil, err
	}

	obs, err := session.Execute(req)
	if err != nil {
		// The marker protocol broke or the pane died. Drop the session so the
		// next call starts a fresh terminal.
		t.log.Error("shell session failed, resetting: %v", err)
		_ = session.Close()
		t.session = nil
		return nil, err
	}

	return []agent.ContentBlock{agent.NewTextContent(obs.AgentObservation())}, nil
}

func (t *ShellTool) ensureSession() (*shell.Session, error) {
	if t.session != nil {
		return t.session, nil
	}
	session := shell.NewSession(t.cfg)
	if err := session.Initialize(); err != nil {
		return nil, fmt.Errorf("start terminal session: %w", err)
	}
	t.session = session
	return session, nil
}

// Close implements agent.Closer.
func (t *ShellTool) Close() error {
	if t.session == nil {
		return nil
	}
	err := t.session.Close()
	t.session = nil
	return err
}
