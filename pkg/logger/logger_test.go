package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"warn", WARN},
		{"error", ERROR},
		{"bogus", INFO},
		{"", INFO},
	}
	for _, c := range cases {
		if got := ParseLogLevel(c.in); got != c.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{
		level:         WARN,
		prefix:        "[test] ",
		consoleWriter: &buf,
		consoleEnable: true,
	}

	l.Debug("dropped %d", 1)
	l.Info("dropped %d", 2)
	l.Warn("kept %d", 3)
	l.Error("kept %d", 4)

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("low-severity messages leaked through filter: %q", out)
	}
	if !strings.Contains(out, "kept 3") || !strings.Contains(out, "kept 4") {
		t.Errorf("expected WARN and ERROR messages, got: %q", out)
	}
	if !strings.Contains(out, "[WARN]") || !strings.Contains(out, "[ERROR]") {
		t.Errorf("expected level tags in output, got: %q", out)
	}
}

func TestFileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "drover.log")

	l, err := NewLogger(&Config{
		Level:    INFO,
		Prefix:   "[drover] ",
		File:     true,
		FilePath: path,
	})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	l.Info("hello from test")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello from test") {
		t.Errorf("log file missing message, got: %q", string(data))
	}
}

func TestWithPrefix(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{
		level:         INFO,
		prefix:        "[a] ",
		consoleWriter: &buf,
		consoleEnable: true,
	}

	sub := l.WithPrefix("[b] ")
	sub.Info("msg")

	if !strings.HasPrefix(buf.String(), "[b] ") {
		t.Errorf("expected derived prefix, got: %q", buf.String())
	}
}
