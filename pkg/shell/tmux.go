package shell

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const paneSettleDelay = 100 * time.Millisecond

// TmuxPane is a Pane backed by a detached tmux session. tmux gives us the
// three primitives the driver needs and a pty for free: literal keystroke
// delivery, full scrollback capture, and history clearing.
type TmuxPane struct {
	mu      sync.Mutex
	session string
	target  string
	closed  bool
}

// TmuxAvailable reports whether a usable tmux binary is on PATH.
func TmuxAvailable() error {
	if out, err := exec.Command("tmux", "-V").CombinedOutput(); err != nil {
		return fmt.Errorf("tmux not available: %w (output: %s)", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// spawnShellCommand returns the command the pane window runs for the given
// identity. A named user gets a fresh non-login shell via su; otherwise the
// window runs bash directly.
func spawnShellCommand(username string) string {
	if username != "" {
		return fmt.Sprintf("su %s -", username)
	}
	return "/bin/bash"
}

// NewTmuxPane spawns a detached tmux session running a shell in workDir.
// The history limit is applied before the shell window is created: the
// initial window inherits tmux's small default limit, so it is replaced and
// killed once the real window exists.
func NewTmuxPane(workDir, username string, historyLimit int) (*TmuxPane, error) {
	if err := TmuxAvailable(); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("drover-%s-%s", usernameLabel(username), uuid.NewString())
	p := &TmuxPane{session: name, target: name + ":shell"}

	// A large fixed pane geometry keeps tmux from rewrapping long lines on
	// capture, which would break the marker regex mid-line.
	if err := p.run("new-session", "-d", "-s", name, "-c", workDir, "-x", "1000", "-y", "1000"); err != nil {
		return nil, fmt.Errorf("spawn tmux session: %w", err)
	}
	if err := p.run("set-option", "-t", name, "history-limit", strconv.Itoa(historyLimit)); err != nil {
		p.Close()
		return nil, fmt.Errorf("set history limit: %w", err)
	}
	if err := p.run("new-window", "-t", name, "-n", "shell", "-c", workDir, spawnShellCommand(username)); err != nil {
		p.Close()
		return nil, fmt.Errorf("spawn shell window: %w", err)
	}
	if err := p.run("kill-window", "-t", name+":0"); err != nil {
		p.Close()
		return nil, fmt.Errorf("drop initial window: %w", err)
	}
	return p, nil
}

func usernameLabel(username string) string {
	if username == "" {
		return "default"
	}
	return username
}

func (p *TmuxPane) run(args ...string) error {
	out, err := exec.Command("tmux", args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("tmux %s: %w (output: %s)", args[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}

// Send implements Pane.
func (p *TmuxPane) Send(text string, pressEnter bool) error {
	if !pressEnter {
		// Key-name form, e.g. C-c or C-l.
		return p.run("send-keys", "-t", p.target, text)
	}
	if err := p.run("send-keys", "-t", p.target, "-l", "--", text); err != nil {
		return err
	}
	return p.run("send-keys", "-t", p.target, "Enter")
}

// Capture implements Pane. The -S - flag starts the capture at the top of
// the scrollback; -J joins wrapped lines so markers stay on one line.
func (p *TmuxPane) Capture() (string, error) {
	out, err := exec.Command("tmux", "capture-pane", "-t", p.target, "-J", "-p", "-S", "-").Output()
	if err != nil {
		return "", fmt.Errorf("tmux capture-pane: %w", err)
	}
	lines := strings.Split(string(out), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n"), nil
}

// Clear implements Pane. C-l redraws an empty screen; the settle delay lets
// the shell process it before the scrollback is dropped.
func (p *TmuxPane) Clear() error {
	if err := p.Send("C-l", false); err != nil {
		return err
	}
	time.Sleep(paneSettleDelay)
	return p.run("clear-history", "-t", p.target)
}

// Close implements Pane. Killing the tmux session kills the shell and any
// children it spawned.
func (p *TmuxPane) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	if err := p.run("kill-session", "-t", p.session); err != nil {
		// The session may already be gone (e.g. the server exited).
		if strings.Contains(err.Error(), "no server running") ||
			strings.Contains(err.Error(), "session not found") ||
			strings.Contains(err.Error(), "can't find session") {
			return nil
		}
		return err
	}
	return nil
}
