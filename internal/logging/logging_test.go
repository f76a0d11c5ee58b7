package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fins.log")
	logger, err := New(Config{Level: "debug", Format: "json", File: path, MaxSizeMB: 1})
	require.NoError(t, err)

	logger.Named("FINS").Debug("send", zap.Uint8("sid", 1))
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"logger":"FINS"`)
	assert.Contains(t, string(data), `"sid":1`)
}

func TestNewLevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fins.log")
	logger, err := New(Config{Level: "WARN", File: path})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestSetupReplacesGlobals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fins.log")
	logger, err := Setup(Config{File: path})
	require.NoError(t, err)
	defer zap.ReplaceGlobals(zap.NewNop())

	assert.Same(t, logger, zap.L())
}
