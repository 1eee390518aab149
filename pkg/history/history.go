package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/drover-dev/drover/pkg/agent"
)

const historyVersion = 1

// Header is the first line of a history file.
type Header struct {
	Type      string    `json:"type"` // "header"
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	WorkDir   string    `json:"workDir,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// History is one conversation backed by an append-only JSONL file. The first
// line is the header; every following line is one agent.Message. An empty
// path keeps the history in memory only.
type History struct {
	path     string
	header   Header
	messages []agent.Message
	appended int // messages already flushed to disk
}

// New creates a history persisted at path (or in memory when path is empty).
func New(path string) *History {
	cwd, _ := os.Getwd()
	return &History{
		path: path,
		header: Header{
			Type:      "header",
			ID:        uuid.NewString(),
			Version:   historyVersion,
			WorkDir:   cwd,
			CreatedAt: time.Now(),
		},
	}
}

// Load reads a history file. A missing file yields a fresh history at the
// same path; unreadable lines are skipped.
func Load(path string) (*History, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(path), nil
		}
		return nil, fmt.Errorf("read history file: %w", err)
	}

	h := New(path)
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var header Header
			if err := json.Unmarshal(line, &header); err == nil && header.Type == "header" {
				h.header = header
				continue
			}
			// No header line; treat it as a message.
		}
		var msg agent.Message
		if err := json.Unmarshal(line, &msg); err != nil {
			continue
		}
		h.messages = append(h.messages, msg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history file: %w", err)
	}
	h.appended = len(h.messages)
	return h, nil
}

// ID returns the history's identifier.
func (h *History) ID() string {
	return h.header.ID
}

// Path returns the backing file path, empty for in-memory histories.
func (h *History) Path() string {
	return h.path
}

// Messages returns the recorded conversation.
func (h *History) Messages() []agent.Message {
	return h.messages
}

// SetMessages replaces the in-memory conversation; Flush persists the
// difference on the next call.
func (h *History) SetMessages(messages []agent.Message) {
	h.messages = messages
	if h.appended > len(messages) {
		h.appended = len(messages)
	}
}

// Append records one message.
func (h *History) Append(msg agent.Message) {
	h.messages = append(h.messages, msg)
}

// Flush appends any unwritten messages to the backing file.
func (h *History) Flush() error {
	if h.path == "" || h.appended == len(h.messages) {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("create history directory: %w", err)
	}

	fresh := h.appended == 0
	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open history file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if fresh {
		if info, err := file.Stat(); err == nil && info.Size() == 0 {
			if err := writeJSONLine(w, h.header); err != nil {
				return err
			}
		}
	}
	for _, msg := range h.messages[h.appended:] {
		if err := writeJSONLine(w, msg); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush history file: %w", err)
	}
	h.appended = len(h.messages)
	return nil
}

func writeJSONLine(w *bufio.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode history line: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	return w.WriteByte('\n')
}
