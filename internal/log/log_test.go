package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultConfig(t *testing.T) {
	t.Parallel()

	logger := New(nil)
	assert.NotNil(t, logger)
}

func TestNew_JSONOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{
		Output: &buf,
		Level:  slog.LevelInfo,
	})

	logger.Info("session started", "options", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Contains(t, entry, "ts")
	assert.NotContains(t, entry, "time")
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "session started", entry["msg"])
	assert.EqualValues(t, 3, entry["options"])
}

func TestNew_GroupedTimeKeyKept(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{Output: &buf})

	logger.WithGroup("entry").Info("cache hit", "time", "later")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	group, ok := entry["entry"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "later", group["time"])
}

func TestNew_DebugLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{
		Output: &buf,
		Debug:  true,
	})

	logger.Debug("preview request")

	assert.Contains(t, buf.String(), "preview request")
}

func TestNew_InfoLevel_HidesDebug(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(&Config{
		Output: &buf,
		Level:  slog.LevelInfo,
	})

	logger.Debug("preview request")

	assert.Empty(t, buf.String())
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseLevel(name), name)
	}
}

func TestOpen_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "nested", "menusel.log")
	w, closeFn, err := Open(path)
	require.NoError(t, err)

	New(&Config{Output: w}).Info("first")
	require.NoError(t, closeFn())

	w, closeFn, err = Open(path)
	require.NoError(t, err)
	New(&Config{Output: w}).Info("second")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "first")
	assert.Contains(t, lines[1], "second")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestOpen_Stderr(t *testing.T) {
	t.Parallel()

	w, closeFn, err := Open(Stderr)
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, w)
	assert.NoError(t, closeFn())
}

func TestOpen_Unwritable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	_, _, err := Open(filepath.Join(blocker, "menusel.log"))
	assert.Error(t, err)
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("MENUSEL_DEBUG", "1")
	assert.True(t, NewFromEnv().Enabled(t.Context(), slog.LevelDebug))

	t.Setenv("MENUSEL_DEBUG", "")
	assert.False(t, NewFromEnv().Enabled(t.Context(), slog.LevelDebug))
}
