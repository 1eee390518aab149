package history

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Meta is what the store knows about a history without loading it fully.
type Meta struct {
	ID        string    `json:"id"`
	Path      string    `json:"path"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store manages the history files of a directory, one <id>.jsonl per
// conversation.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// DefaultDir returns the default histories directory.
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".drover", "sessions"), nil
}

// Create starts a new persisted history.
func (s *Store) Create() (*History, error) {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("create sessions directory: %w", err)
	}
	id := uuid.NewString()
	h := New(filepath.Join(s.dir, id+".jsonl"))
	h.header.ID = id
	return h, nil
}

// Open loads the history with the given id.
func (s *Store) Open(id string) (*History, error) {
	path := filepath.Join(s.dir, id+".jsonl")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("session %s not found: %w", id, err)
	}
	return Load(path)
}

// List returns the stored histories, newest first.
func (s *Store) List() ([]Meta, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	var metas []Meta
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".jsonl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		metas = append(metas, Meta{
			ID:        strings.TrimSuffix(name, ".jsonl"),
			Path:      filepath.Join(s.dir, name),
			UpdatedAt: info.ModTime(),
		})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].UpdatedAt.After(metas[j].UpdatedAt) })
	return metas, nil
}

// Latest opens the most recently updated history, or returns nil when the
// store is empty.
func (s *Store) Latest() (*History, error) {
	metas, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(metas) == 0 {
		return nil, nil
	}
	return Load(metas[0].Path)
}
