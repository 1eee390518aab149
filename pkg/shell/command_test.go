package shell

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitCommands(t *testing.T) {
	cases := []struct {
		name    string
		command string
		want    []string
	}{
		{"single", "echo hello", []string{"echo hello"}},
		{"semicolon", "echo a; echo b", []string{"echo a", "echo b"}},
		{"newline", "echo a\necho b", []string{"echo a", "echo b"}},
		{"and chain is one statement", "echo a && echo b", []string{"echo a && echo b"}},
		{"or chain is one statement", "false || echo b", []string{"false || echo b"}},
		{"pipeline is one statement", "cat f | grep x | wc -l", []string{"cat f | grep x | wc -l"}},
		{"background is one statement", "sleep 10 &", []string{"sleep 10 &"}},
		{
			"multiline if is one statement",
			"if true; then\n  echo yes\nfi",
			[]string{"if true; then\n  echo yes\nfi"},
		},
		{
			"heredoc is one statement",
			"cat <<EOF\nline one\nline two\nEOF",
			[]string{"cat <<EOF\nline one\nline two\nEOF"},
		},
		{
			"three statements",
			"cd /tmp; ls\npwd",
			[]string{"cd /tmp", "ls", "pwd"},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, SplitCommands(c.command))
		})
	}
}

func TestSplitCommandsEmpty(t *testing.T) {
	assert.Nil(t, SplitCommands(""))
	assert.Nil(t, SplitCommands("   \n\t"))
}

func TestSplitCommandsUnparseable(t *testing.T) {
	// Broken syntax is not split; the shell reports the error itself.
	cmd := "echo 'unclosed"
	assert.Equal(t, []string{cmd}, SplitCommands(cmd))
}

func TestEscapeSpecialChars(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"echo test", "echo test"},
		{`echo \;`, `echo \\;`},
		{`grep foo\|bar f`, `grep foo\\|bar f`},
		{`touch a\ b`, `touch a\\ b`},
		{`echo "\;"`, `echo "\;"`},   // double quotes protect the backslash
		{`echo '\;'`, `echo '\;'`},   // single quotes too
		{`echo \n`, `echo \n`},       // not a metacharacter, untouched
		{`echo \\`, `echo \\`},       // trailing pair untouched
		{"", ""},
		{"   ", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, escapeSpecialChars(c.in), "input: %q", c.in)
	}
}

func TestIsControlKey(t *testing.T) {
	assert.True(t, isControlKey("C-c"))
	assert.True(t, isControlKey("  C-d  "))
	assert.False(t, isControlKey("C-"))
	assert.False(t, isControlKey("ctrl-c"))
	assert.False(t, isControlKey("echo C-c"))
	assert.False(t, isControlKey(""))
}
