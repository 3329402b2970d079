// Package statestore persists the posting state as a single flat JSON
// record, overwritten atomically on each save.
//
// The store assumes one run at a time against one state record; there is no
// cross-process lock. The tmp+rename overwrite only guarantees a crashed
// run never leaves a torn record behind.
package statestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Shrish242/moltbook-ai-agent/internal/domain/entity"
)

// FileStore reads and writes the posting state at a fixed path.
type FileStore struct {
	path   string
	logger *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewFileStore creates a store for the given path.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{path: path, logger: logger, now: time.Now}
}

// Load reads the persisted state. A missing or unreadable record yields a
// fresh state for today rather than an error: losing the counters is
// preferable to blocking every future run on a corrupt file.
func (s *FileStore) Load() (*entity.PostingState, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("state file unreadable, starting fresh",
				slog.String("path", s.path),
				slog.Any("error", err))
		}
		return entity.NewPostingState(s.now()), nil
	}

	var state entity.PostingState
	if err := json.Unmarshal(raw, &state); err != nil {
		s.logger.Warn("state file corrupt, starting fresh",
			slog.String("path", s.path),
			slog.Any("error", err))
		return entity.NewPostingState(s.now()), nil
	}

	return &state, nil
}

// Save overwrites the record atomically: write to a temp file in the same
// directory, then rename over the target.
func (s *FileStore) Save(state *entity.PostingState) error {
	raw, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".moltbot_state-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp state file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
