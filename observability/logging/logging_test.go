package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoggerRenamesStandardKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, Options{Service: "stakeld", Env: "test"})
	logger.Info("hello", slog.String("record", "stk1abc"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "hello", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "stakeld", line["service"])
	require.Equal(t, "test", line["env"])
	require.Contains(t, line, "timestamp")
}

func TestLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, Options{Service: "stakeld", Level: "warn"})
	logger.Info("dropped")
	require.Zero(t, buf.Len())
	logger.Warn("kept")
	require.NotZero(t, buf.Len())
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("token", "secret").Value.String())
	require.Equal(t, "", MaskField("token", "").Value.String())
	require.Equal(t, "stake_getConfig", MaskField("method", "stake_getConfig").Value.String())
	require.Contains(t, RedactionAllowlist(), "request_id")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	require.Equal(t, slog.LevelError, ParseLevel("error"))
	require.Equal(t, slog.LevelInfo, ParseLevel("chatty"))
}
