package history

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drover-dev/drover/pkg/agent"
)

func TestFlushAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.jsonl")

	h := New(path)
	h.Append(agent.NewUserMessage("first question"))
	h.Append(agent.Message{
		Role:    "assistant",
		Content: []agent.ContentBlock{agent.NewTextContent("first answer")},
	})
	require.NoError(t, h.Flush())

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, h.ID(), loaded.ID())
	msgs := loaded.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first question", msgs[0].ExtractText())
	assert.Equal(t, "first answer", msgs[1].ExtractText())
}

func TestFlushIsIncremental(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.jsonl")

	h := New(path)
	h.Append(agent.NewUserMessage("one"))
	require.NoError(t, h.Flush())
	h.Append(agent.NewUserMessage("two"))
	require.NoError(t, h.Flush())
	// Flushing with nothing new is a no-op.
	require.NoError(t, h.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3) // header + two messages
	assert.Contains(t, lines[0], `"type":"header"`)
}

func TestLoadMissingFileStartsFresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.jsonl")
	h, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, h.Messages())
	assert.Equal(t, path, h.Path())
}

func TestLoadSkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conv.jsonl")
	body := `{"type":"header","id":"abc","version":1,"createdAt":"2026-01-01T00:00:00Z"}
{"role":"user","content":[{"type":"text","text":"kept"}]}
not json at all
{"role":"assistant","content":[{"type":"text","text":"also kept"}]}
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))

	h, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", h.ID())
	require.Len(t, h.Messages(), 2)
}

func TestInMemoryHistory(t *testing.T) {
	h := New("")
	h.Append(agent.NewUserMessage("ephemeral"))
	require.NoError(t, h.Flush())
	assert.Len(t, h.Messages(), 1)
}

func TestStoreCreateListLatest(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir)

	metas, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, metas)

	first, err := store.Create()
	require.NoError(t, err)
	first.Append(agent.NewUserMessage("older"))
	require.NoError(t, first.Flush())

	// Ensure distinct mtimes on coarse-grained filesystems.
	time.Sleep(10 * time.Millisecond)

	second, err := store.Create()
	require.NoError(t, err)
	second.Append(agent.NewUserMessage("newer"))
	require.NoError(t, second.Flush())

	metas, err = store.List()
	require.NoError(t, err)
	require.Len(t, metas, 2)

	latest, err := store.Latest()
	require.NoError(t, err)
	require.NotNil(t, latest)
	require.Len(t, latest.Messages(), 1)
	assert.Equal(t, "newer", latest.Messages()[0].ExtractText())

	opened, err := store.Open(latest.ID())
	require.NoError(t, err)
	assert.Equal(t, latest.ID(), opened.ID())
}
