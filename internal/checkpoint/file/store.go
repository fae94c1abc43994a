// Package file implements the checkpoint store as a single JSON file,
// written as a full replace on every commit.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/vgassen/lexharvest/internal/harvest"
)

// Store persists the resolved-identifier set as a sorted JSON array.
type Store struct {
	path   string
	logger *zap.Logger
}

// New returns a Store writing to path. Parent directories are created
// on the first commit.
func New(path string, logger *zap.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("checkpoint path is required")
	}
	return &Store{path: path, logger: logger}, nil
}

// Load reads the persisted set. A missing or corrupt file degrades to
// an empty set; a fresh start is always safe because delivery dedup is
// keyed on identifiers downstream.
func (s *Store) Load(_ context.Context) (harvest.ProcessedSet, error) {
	set := make(harvest.ProcessedSet)
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("checkpoint unreadable, starting empty",
				zap.String("path", s.path),
				zap.Error(err),
			)
		}
		return set, nil
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		s.logger.Warn("checkpoint corrupt, starting empty",
			zap.String("path", s.path),
			zap.Error(err),
		)
		return set, nil
	}
	for _, id := range ids {
		set.Add(harvest.Identifier(id))
	}
	return set, nil
}

// Commit merges newly into the on-disk set and replaces the file. The
// write goes through a temp file and rename so a failure leaves the
// previous durable state intact.
func (s *Store) Commit(ctx context.Context, newly []harvest.Identifier) error {
	current, err := s.Load(ctx)
	if err != nil {
		return fmt.Errorf("reload checkpoint: %w", err)
	}
	for _, id := range newly {
		current.Add(id)
	}

	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	payload, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create checkpoint dir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint %s: %w", s.path, err)
	}
	return nil
}
