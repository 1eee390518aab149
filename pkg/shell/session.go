package shell

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/drover-dev/drover/pkg/logger"
)

const (
	// DefaultNoChangeTimeout is how long output may stay byte-identical
	// before an unbounded command is reported as stuck.
	DefaultNoChangeTimeout = 30 * time.Second
	// DefaultPollInterval is the sleep between pane captures.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultHistoryLimit is the tmux scrollback depth in lines. Large
	// enough to make marker eviction rare, not impossible.
	DefaultHistoryLimit = 10000
)

// timeoutHint enumerates the ways the agent can make progress on a command
// that is still running.
const timeoutHint = "You may wait longer to see additional output by sending an empty command, " +
	"send other text to interact with the running process via STDIN (set is_input to true), " +
	"or send a control key such as C-c to interrupt it."

var (
	// ErrNotInitialized is returned when Execute is called before
	// Initialize. This is a programming error, not an agent-recoverable
	// condition.
	ErrNotInitialized = errors.New("shell session is not initialized")
	// ErrMarkerLost is returned when completion was detected but no marker
	// could be parsed from the capture: the prompt convention itself broke
	// (the command redefined PS1, or the shell died) and any further output
	// attribution would be unreliable.
	ErrMarkerLost = errors.New("completion detected but no prompt marker found in capture")
)

// Config holds the construction parameters of a Session.
type Config struct {
	WorkDir         string
	Username        string        // non-empty runs the shell via su <user> -
	MaxMemoryMB     int           // advisory limit recorded for the executor, 0 = unlimited
	NoChangeTimeout time.Duration // 0 = DefaultNoChangeTimeout
	PollInterval    time.Duration // 0 = DefaultPollInterval
	HistoryLimit    int           // 0 = DefaultHistoryLimit
	Logger          *logger.Logger
}

// sessionState is the mutable state of the driver. It is updated only at
// the transition points of Execute so each transition can be tested in
// isolation.
type sessionState struct {
	status     CommandStatus
	prevOutput string
	cwd        string
}

// Session drives one long-lived shell through a Pane. It is not safe for
// concurrent use; callers that need parallelism run one Session per
// execution context.
type Session struct {
	cfg    Config
	log    *logger.Logger
	pane   Pane
	marker *Marker
	state  sessionState

	initialized bool
	closed      bool
}

// NewSession creates a session bound to cfg.WorkDir. The backing terminal is
// not spawned until Initialize.
func NewSession(cfg Config) *Session {
	if cfg.NoChangeTimeout <= 0 {
		cfg.NoChangeTimeout = DefaultNoChangeTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewDefaultLogger()
	}
	return &Session{cfg: cfg, log: log}
}

// Initialize spawns the backing terminal, installs the marker prompt and
// clears the screen. Must be called exactly once before Execute.
func (s *Session) Initialize() error {
	if s.initialized {
		return errors.New("shell session already initialized")
	}

	s.marker = NewMarker()

	if s.pane == nil {
		pane, err := NewTmuxPane(s.cfg.WorkDir, s.cfg.Username, s.cfg.HistoryLimit)
		if err != nil {
			return fmt.Errorf("initialize shell session: %w", err)
		}
		s.pane = pane
	}

	if err := s.pane.Send(s.marker.PromptCommand(), true); err != nil {
		return fmt.Errorf("install prompt marker: %w", err)
	}
	time.Sleep(paneSettleDelay)

	abs, err := filepath.Abs(s.cfg.WorkDir)
	if err != nil {
		abs = s.cfg.WorkDir
	}
	s.state = sessionState{status: StatusNone, cwd: abs}
	s.initialized = true

	if err := s.pane.Clear(); err != nil {
		return fmt.Errorf("clear pane after init: %w", err)
	}

	// Safety net: the tmux session (and the process tree under it) must not
	// outlive a Session the caller forgot to Close.
	runtime.SetFinalizer(s, func(sess *Session) { _ = sess.Close() })

	s.log.Debug("shell session initialized in %s", abs)
	return nil
}

// Close tears down the backing terminal. Idempotent.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.pane != nil {
		return s.pane.Close()
	}
	return nil
}

// Cwd returns the last-tracked working directory of the shell.
func (s *Session) Cwd() string {
	return s.state.cwd
}

// Status returns the session-scoped status of the most recent command.
func (s *Session) Status() CommandStatus {
	return s.state.status
}

// Execute runs one command request through the pane and blocks until the
// command completes or a timeout boundary fires. Recoverable conditions are
// reported inside the Observation; only protocol-integrity and misuse
// failures surface as errors.
func (s *Session) Execute(req Request) (*Observation, error) {
	if !s.initialized || s.pane == nil {
		return nil, ErrNotInitialized
	}

	command := strings.TrimSpace(req.Command)

	// Orphan empty/input requests: nothing is running to poll or feed.
	if !s.state.status.Running() {
		if command == "" {
			return errorObservation("ERROR: No previous running command to retrieve logs from."), nil
		}
		if req.IsInput {
			return errorObservation("ERROR: No previous running command to interact with."), nil
		}
	}

	// Reject visually-separate sequential commands in one request.
	if split := SplitCommands(command); len(split) > 1 {
		var b strings.Builder
		b.WriteString("ERROR: Cannot execute multiple commands at once.\n")
		b.WriteString("Please run each command separately OR chain them into a single command via && or ;\n")
		b.WriteString("Provided commands:\n")
		for i, sub := range split {
			fmt.Fprintf(&b, "(%d) %s\n", i+1, sub)
		}
		return errorObservation(strings.TrimRight(b.String(), "\n")), nil
	}

	initialPane, err := s.pane.Capture()
	if err != nil {
		return nil, fmt.Errorf("capture pane: %w", err)
	}
	initialCount := len(s.marker.FindAll(initialPane))
	s.log.Debug("execute %q is_input=%v timeout=%v initial_markers=%d", command, req.IsInput, req.Timeout, initialCount)

	start := time.Now()
	lastChange := start
	lastPane := initialPane

	// A fresh command while the previous one still owns the foreground is
	// rejected without touching the pane; input and polling are the only
	// accepted channels until it completes.
	if s.state.status.Running() && !s.marker.EndsWithMarker(lastPane) && !req.IsInput && command != "" {
		return s.rejectBusy(command, lastPane), nil
	}

	if command != "" {
		special := isControlKey(command)
		text := command
		if !req.IsInput {
			text = escapeSpecialChars(command)
		}
		if err := s.pane.Send(text, !special); err != nil {
			return nil, fmt.Errorf("send keys: %w", err)
		}
	}

	for {
		curPane, err := s.pane.Capture()
		if err != nil {
			return nil, fmt.Errorf("capture pane: %w", err)
		}
		occurrences := s.marker.FindAll(curPane)

		if curPane != lastPane {
			lastPane = curPane
			lastChange = time.Now()
		}

		// Completion always wins over the timeout checks in the same
		// iteration. The suffix check covers markers scrolled out of the
		// history buffer.
		if len(occurrences) > initialCount || s.marker.EndsWithMarker(curPane) {
			return s.handleCompleted(command, curPane, occurrences)
		}

		if req.Timeout == 0 && time.Since(lastChange) >= s.cfg.NoChangeTimeout {
			return s.handleNoChangeTimeout(command, curPane, occurrences), nil
		}

		if req.Timeout > 0 && time.Since(start) >= req.Timeout {
			return s.handleHardTimeout(command, curPane, occurrences, req.Timeout), nil
		}

		time.Sleep(s.cfg.PollInterval)
	}
}

// rejectBusy builds the error observation for a new command submitted while
// the previous one is still running, carrying whatever output the previous
// command has produced since the last poll.
func (s *Session) rejectBusy(command, paneContent string) *Observation {
	occurrences := s.marker.FindAll(paneContent)
	raw := combineOutputs(paneContent, occurrences, false)

	meta := newMetadata()
	meta.Suffix = fmt.Sprintf(
		"\n[Your command %q is NOT executed. The previous command is still running - "+
			"You CANNOT send new commands until the previous command is completed. "+
			"By setting is_input to true, you can interact with the current process: %s]",
		command, timeoutHint)
	output := s.takeOutput(command, raw, &meta, "[Below is the output of the previous command.]\n")

	return &Observation{
		Output:   output,
		Command:  command,
		ExitCode: -1,
		Error:    true,
		Metadata: meta,
	}
}

// handleCompleted finalizes a command whose terminating marker (or prompt
// suffix) was observed. Zero parseable markers at this point is fatal.
func (s *Session) handleCompleted(command, paneContent string, occurrences []Occurrence) (*Observation, error) {
	if len(occurrences) == 0 {
		return nil, fmt.Errorf("%w\n---FULL OUTPUT---\n%s\n---END OF OUTPUT---", ErrMarkerLost, paneContent)
	}

	last := occurrences[len(occurrences)-1]

	// A single surviving marker on the completion path means the history
	// limit evicted everything up to and including the pre-command prompt;
	// the output is what precedes the marker, and it is truncated.
	truncated := len(occurrences) == 1

	if last.WorkingDir != "" && last.WorkingDir != s.state.cwd {
		s.state.cwd = last.WorkingDir
	}

	raw := combineOutputs(paneContent, occurrences, truncated)

	meta := newMetadata()
	meta.PID = last.PID
	meta.ExitCode = last.ExitCode
	meta.Username = last.Username
	meta.Hostname = last.Hostname
	meta.WorkingDir = last.WorkingDir
	meta.PyInterpreterPath = last.PyInterpreterPath

	if truncated {
		numLines := len(strings.Split(raw, "\n"))
		meta.Prefix = fmt.Sprintf(
			"[Previous command outputs are truncated. Showing the last %d lines of the output below.]\n", numLines)
	}

	if isControlKey(command) {
		key := strings.ToUpper(command[len(command)-1:])
		meta.Suffix = fmt.Sprintf("\n[The command completed with exit code %d. CTRL+%s was sent.]", last.ExitCode, key)
	} else {
		meta.Suffix = fmt.Sprintf("\n[The command completed with exit code %d.]", last.ExitCode)
	}

	output := s.takeOutput(command, raw, &meta, "")

	s.state.status = StatusCompleted
	s.state.prevOutput = ""
	if err := s.pane.Clear(); err != nil {
		return nil, fmt.Errorf("clear pane after completion: %w", err)
	}
	s.log.Debug("command completed exit=%d cwd=%s", last.ExitCode, s.state.cwd)

	return &Observation{
		Output:   output,
		Command:  command,
		ExitCode: last.ExitCode,
		Metadata: meta,
	}, nil
}

// handleNoChangeTimeout reports a command whose output went quiet without a
// terminating marker. The command keeps running in the pane.
func (s *Session) handleNoChangeTimeout(command, paneContent string, occurrences []Occurrence) *Observation {
	s.state.status = StatusNoChangeTimeout
	if len(occurrences) != 1 {
		s.log.Warn("expected exactly one marker before an in-flight command, got %d", len(occurrences))
	}

	raw := combineOutputs(paneContent, occurrences, false)
	meta := newMetadata()
	meta.Suffix = fmt.Sprintf("\n[The command has no new output after %s seconds. %s]",
		formatSeconds(s.cfg.NoChangeTimeout), timeoutHint)
	output := s.takeOutput(command, raw, &meta, "[Below is the output of the previous command.]\n")

	return &Observation{
		Output:   output,
		Command:  command,
		ExitCode: -1,
		Timeout:  true,
		Metadata: meta,
	}
}

// handleHardTimeout reports a command that outlived the caller-supplied
// timeout. The process is not killed; control simply returns to the caller.
func (s *Session) handleHardTimeout(command, paneContent string, occurrences []Occurrence, timeout time.Duration) *Observation {
	s.state.status = StatusHardTimeout
	if len(occurrences) != 1 {
		s.log.Warn("expected exactly one marker before an in-flight command, got %d", len(occurrences))
	}

	raw := combineOutputs(paneContent, occurrences, false)
	meta := newMetadata()
	meta.Suffix = fmt.Sprintf("\n[The command timed out after %s seconds. %s]",
		formatSeconds(timeout), timeoutHint)
	output := s.takeOutput(command, raw, &meta, "[Below is the output of the previous command.]\n")

	return &Observation{
		Output:   output,
		Command:  command,
		ExitCode: -1,
		Timeout:  true,
		Metadata: meta,
	}
}

// takeOutput removes the previously returned raw output (so repeated polls
// of one in-flight command never re-show the same text), records the new raw
// output for the next poll, and strips the command echo.
func (s *Session) takeOutput(command, raw string, meta *Metadata, continuePrefix string) string {
	output := raw
	if s.state.prevOutput != "" {
		output = strings.TrimPrefix(raw, s.state.prevOutput)
		meta.Prefix = continuePrefix
	}
	s.state.prevOutput = raw
	output = removeCommandEcho(output, command)
	return strings.TrimRight(output, " \t\r\n")
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
