package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "indexer.log")

	logger, err := NewLogger("info", path)
	require.NoError(t, err)
	logger.Info("Palette indexer starting...")
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), " | INFO | ")
	assert.Contains(t, string(data), "Palette indexer starting...")
	assert.NotContains(t, string(data), "hidden at info level")
}

func TestNewLoggerReportsBadPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := NewLogger("info", filepath.Join(blocker, "indexer.log"))
	assert.Error(t, err)
}
