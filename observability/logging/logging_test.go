package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger, closer := Setup(Options{Service: "subsim", Environment: "test", Level: slog.LevelInfo, Writer: buf})
	t.Cleanup(func() { _ = closer.Close() })

	logger.Debug("hidden")
	logger.Info("scenario complete", slog.Int("months", 12))

	var line map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line), "only the info line is written")
	require.Equal(t, "scenario complete", line["message"])
	require.Equal(t, "INFO", line["severity"])
	require.Equal(t, "subsim", line["service"])
	require.Equal(t, "test", line["env"])
	require.Equal(t, float64(12), line["months"])
	require.Contains(t, line, "timestamp")
}

func TestSetupWritesRotatingFile(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	path := filepath.Join(t.TempDir(), "subsim.log")
	logger, closer := Setup(Options{Service: "subsim", Writer: &bytes.Buffer{}, File: path, MaxSizeMB: 1})
	logger.Warn("pool drift", slog.Float64("drift", 1e-12))
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"severity":"WARN"`)
}

func TestMaskField(t *testing.T) {
	require.Equal(t, RedactedValue, MaskField("remote", "10.0.0.1").Value.String())
	require.Equal(t, "/v1/quote", MaskField("path", "/v1/quote").Value.String())
	require.Equal(t, "", MaskField("remote", "").Value.String())
	require.Equal(t, "a1b2", MaskField(" RUN_ID ", "a1b2").Value.String())
	require.Equal(t, []string{"method", "path", "route", "run_id", "scenario"}, RedactionAllowlist())

	cleared := RedactionAllowlist()
	cleared[0] = "remote"
	require.False(t, IsAllowlisted("remote"), "callers cannot widen the allowlist")
}
