// Package store persists the index snapshot.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/palette-index-go/internal/domain"
	"github.com/kapu/palette-index-go/internal/util"
	"github.com/kapu/palette-index-go/pkg/errors"
)

// FileStore keeps the snapshot as one pretty-printed JSON document.
type FileStore struct {
	path   string
	now    func() time.Time
	logger *zap.Logger
}

func NewFileStore(path string, logger *zap.Logger) *FileStore {
	return &FileStore{
		path:   path,
		now:    time.Now,
		logger: util.OrNop(logger),
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored snapshot. A missing or unreadable file yields an
// empty snapshot so the first run can start from nothing.
func (s *FileStore) Load(_ context.Context) domain.IndexSnapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("Failed to read existing index, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return EmptySnapshot()
	}

	var snapshot domain.IndexSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		s.logger.Warn("Existing index is not valid JSON, starting empty", zap.String("path", s.path), zap.Error(err))
		return EmptySnapshot()
	}

	if snapshot.Entries == nil {
		snapshot.Entries = []domain.IndexEntry{}
	}
	snapshot.Count = len(snapshot.Entries)
	return snapshot
}

// Save rewrites the whole file with generatedAt set to now and count set to
// the number of entries. The write goes through a temp file and a rename.
func (s *FileStore) Save(_ context.Context, snapshot domain.IndexSnapshot) (domain.IndexSnapshot, error) {
	if snapshot.Entries == nil {
		snapshot.Entries = []domain.IndexEntry{}
	}
	snapshot.GeneratedAt = s.now().UTC().Truncate(time.Millisecond)
	snapshot.Count = len(snapshot.Entries)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return snapshot, errors.NewStoreError("failed to encode snapshot", "encode", s.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return snapshot, errors.NewStoreError("failed to create output directory", "mkdir", s.path, err)
	}

	tmpFile := s.path + ".tmp"
	if err := os.WriteFile(tmpFile, buf.Bytes(), 0o644); err != nil {
		return snapshot, errors.NewStoreError("failed to write snapshot", "write", tmpFile, err)
	}
	if err := os.Rename(tmpFile, s.path); err != nil {
		return snapshot, errors.NewStoreError("failed to finalize snapshot", "rename", s.path, err)
	}

	return snapshot, nil
}

// EmptySnapshot is the snapshot of a store that has never been written.
func EmptySnapshot() domain.IndexSnapshot {
	return domain.IndexSnapshot{Entries: []domain.IndexEntry{}}
}
