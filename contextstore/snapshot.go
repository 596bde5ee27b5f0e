package contextstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// snapshotter persists one file per ContextID under a directory, per
// spec.md's "Persisted state layout" note: "one file per ContextID
// containing a serialized ContextEntry; loaded on process start by
// scanning the directory."
type snapshotter struct {
	dir    string
	logger *zap.Logger
}

func newSnapshotter(dir string, logger *zap.Logger) *snapshotter {
	return &snapshotter{dir: dir, logger: logger}
}

func (s *snapshotter) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *snapshotter) save(entry Entry) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("snapshot: creating directory: %w", err)
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("snapshot: marshaling entry: %w", err)
	}
	return os.WriteFile(s.path(entry.ID), data, 0o644)
}

func (s *snapshotter) remove(id string) error {
	err := os.Remove(s.path(id))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *snapshotter) loadAll() (map[string]Entry, error) {
	entries := make(map[string]Entry)

	files, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return entries, nil
		}
		return nil, err
	}

	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, f.Name()))
		if err != nil {
			s.logger.Warn("snapshot file unreadable, skipping", zap.String("file", f.Name()), zap.Error(err))
			continue
		}
		var entry Entry
		if err := json.Unmarshal(data, &entry); err != nil {
			s.logger.Warn("snapshot file malformed, skipping", zap.String("file", f.Name()), zap.Error(err))
			continue
		}
		entries[entry.ID] = entry
	}
	return entries, nil
}
