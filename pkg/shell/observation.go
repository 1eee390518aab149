package shell

import (
	"fmt"
	"strings"
	"time"
)

// CommandStatus is the session-scoped outcome of the most recent execute
// call. It persists across calls and governs how the next empty or input
// request is interpreted.
type CommandStatus string

const (
	// StatusNone is the state before any command has run.
	StatusNone CommandStatus = ""
	// StatusContinue means a command is in flight and no poll boundary has
	// fired yet.
	StatusContinue CommandStatus = "continue"
	// StatusCompleted means the last command terminated and its marker was
	// observed.
	StatusCompleted CommandStatus = "completed"
	// StatusNoChangeTimeout means the last command's output went quiet for
	// longer than the configured no-change timeout.
	StatusNoChangeTimeout CommandStatus = "no_change_timeout"
	// StatusHardTimeout means the caller-supplied timeout elapsed before the
	// last command terminated.
	StatusHardTimeout CommandStatus = "hard_timeout"
)

// Running reports whether the status describes a command that is still in
// the foreground of the pane.
func (s CommandStatus) Running() bool {
	switch s {
	case StatusContinue, StatusNoChangeTimeout, StatusHardTimeout:
		return true
	}
	return false
}

// Request is one shell invocation or input-delivery request.
type Request struct {
	// Command is the text to run. Empty means "poll for more output from
	// the in-flight command".
	Command string
	// IsInput routes the text as stdin (or a control key) to the running
	// foreground process instead of starting a new command.
	IsInput bool
	// Timeout, when non-zero, is a hard cap on how long Execute waits. It
	// also suppresses the no-change timeout: a caller that sets it has
	// declared they expect silence.
	Timeout time.Duration
}

// Metadata is the marker-derived and annotation metadata attached to an
// observation.
type Metadata struct {
	PID               int    `json:"pid"`
	ExitCode          int    `json:"exitCode"`
	Username          string `json:"username,omitempty"`
	Hostname          string `json:"hostname,omitempty"`
	WorkingDir        string `json:"workingDir,omitempty"`
	PyInterpreterPath string `json:"pyInterpreterPath,omitempty"`
	Prefix            string `json:"prefix,omitempty"`
	Suffix            string `json:"suffix,omitempty"`
}

func newMetadata() Metadata {
	return Metadata{PID: -1, ExitCode: -1}
}

// Observation is the outcome of one Execute call. Immutable once returned.
type Observation struct {
	Output   string   `json:"output"`
	Command  string   `json:"command,omitempty"`
	ExitCode int      `json:"exitCode"` // -1 means still running
	Error    bool     `json:"error,omitempty"`
	Timeout  bool     `json:"timeout,omitempty"`
	Metadata Metadata `json:"metadata"`
}

// AgentObservation renders the observation as the text the agent sees:
// annotated output plus working directory, interpreter and exit code
// trailers.
func (o *Observation) AgentObservation() string {
	var b strings.Builder
	b.WriteString(o.Metadata.Prefix)
	b.WriteString(o.Output)
	b.WriteString(o.Metadata.Suffix)
	if o.Metadata.WorkingDir != "" {
		fmt.Fprintf(&b, "\n[Current working directory: %s]", o.Metadata.WorkingDir)
	}
	if o.Metadata.PyInterpreterPath != "" {
		fmt.Fprintf(&b, "\n[Python interpreter: %s]", o.Metadata.PyInterpreterPath)
	}
	if o.ExitCode != -1 {
		fmt.Fprintf(&b, "\n[Command finished with exit code %d]", o.ExitCode)
	}
	if o.Error {
		return "[There was an error during command execution.]\n" + b.String()
	}
	return b.String()
}

func errorObservation(output string) *Observation {
	return &Observation{
		Output:   output,
		ExitCode: -1,
		Error:    true,
		Metadata: newMetadata(),
	}
}
