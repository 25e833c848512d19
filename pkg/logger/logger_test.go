package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_FileOutputJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.log")

	log, err := New(Config{Level: "debug", Format: "json", OutputPath: path})
	require.NoError(t, err)
	log.Info("Starting server")
	log.Debug("Browser session closed")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Starting server", entry["msg"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_LevelFallsBackToInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.log")

	log, err := New(Config{Level: "chatty", Format: "json", OutputPath: path})
	require.NoError(t, err)
	log.Debug("hidden")
	log.Info("shown")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}
