package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("INFO"))
	assert.Equal(t, zapcore.WarnLevel, ParseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, zapcore.InfoLevel, ParseLevel("chatty"))
}

func TestZapLoggerFormatsMessages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := FromZap(zap.New(core))

	logger.Debug("parsed %d rows", 3)
	logger.Info("plain message")
	logger.Warn("file %s: %v", "a.csv", "bad row")
	logger.Error("100%% done")

	entries := logs.All()
	require.Len(t, entries, 4)
	assert.Equal(t, "parsed 3 rows", entries[0].Message)
	assert.Equal(t, "plain message", entries[1].Message)
	assert.Equal(t, "file a.csv: bad row", entries[2].Message)
	assert.Equal(t, zapcore.WarnLevel, entries[2].Level)
	assert.Equal(t, "100%% done", entries[3].Message)
}

func TestWithAddsField(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := FromZap(zap.New(core)).With("run_id", "abc")

	logger.Info("hello")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "abc", logs.All()[0].ContextMap()["run_id"])
}

func TestNewWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pedidos.log")

	logger, err := New(Options{Level: "warn", File: path})
	require.NoError(t, err)

	logger.Info("dropped")
	logger.Warn("kept %d", 1)
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"kept 1"`)
	assert.NotContains(t, string(data), "dropped")
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("nothing %s", "happens")
	assert.NoError(t, logger.Sync())
}
