// ABOUTME: Tests for logger setup
// ABOUTME: Level parsing, output format and level filtering
package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}

	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestInitLoggerJSON(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	var buf bytes.Buffer
	logger := InitLogger("warn", "json", &buf)

	logger.Info("hidden")
	WithComponent(logger, "relay").Warn("Write rejected", "handle", 3)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Write rejected", entry["msg"])
	assert.Equal(t, "relay", entry["component"])
	assert.Equal(t, float64(3), entry["handle"])
}

func TestInitLoggerText(t *testing.T) {
	previous := slog.Default()
	defer slog.SetDefault(previous)

	var buf bytes.Buffer
	InitLogger("debug", "text", &buf)

	slog.Debug("Ignoring stale sink signal", "handle", 1)
	assert.Contains(t, buf.String(), `msg="Ignoring stale sink signal" handle=1`)
}
