package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/shugein/ceg/internal/models"
)

// FileCursorStore persists per-source cursors as one JSON file per source
// beneath dir, using the same atomic temp-file-then-rename pattern used
// for the learned-alias store (spec.md §6 Persisted state).
type FileCursorStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileCursorStore creates a store rooted at dir, creating it if
// necessary.
func NewFileCursorStore(dir string) (*FileCursorStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cursor directory %q: %w", dir, err)
	}
	return &FileCursorStore{dir: dir}, nil
}

func (s *FileCursorStore) path(sourceCode string) string {
	return filepath.Join(s.dir, sourceCode+".cursor.json")
}

// Load implements CursorStore.
func (s *FileCursorStore) Load(_ context.Context, sourceCode string) (models.Cursor, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(sourceCode))
	if os.IsNotExist(err) {
		return NewEmptyCursor(sourceCode), false, nil
	}
	if err != nil {
		return models.Cursor{}, false, fmt.Errorf("failed to read cursor for %q: %w", sourceCode, err)
	}

	var cursor models.Cursor
	if err := json.Unmarshal(data, &cursor); err != nil {
		return models.Cursor{}, false, fmt.Errorf("failed to parse cursor for %q: %w", sourceCode, err)
	}
	return cursor, true, nil
}

// Save implements CursorStore. It is only called after a batch's side
// effects are fully committed (spec.md §5 Ordering guarantees).
func (s *FileCursorStore) Save(_ context.Context, cursor models.Cursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cursor, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cursor for %q: %w", cursor.SourceCode, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+cursor.SourceCode+".*.cursor.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp cursor file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if _, err := os.Stat(tmpPath); err == nil {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp cursor file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp cursor file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path(cursor.SourceCode)); err != nil {
		return fmt.Errorf("failed to rename temp cursor file: %w", err)
	}
	return nil
}
