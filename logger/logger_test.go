package logger

import (
	"bytes"
	"encoding/json"
	"log"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))

		out = append(out, rec)
	}

	return out
}

func TestLogger(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		Output:    &buf,
	})

	Get().Info("default subsystem")

	ctx := WithSubsystem(t.Context(), "overridden")
	Get(ctx).Info("overridden subsystem")

	ctx = With(ctx, "machine", "door")
	ctx = With(ctx, "request_id", "r-1")
	Get(ctx).Info("with values")

	Get(WithMuted(ctx, true)).Error("muted")

	records := decodeLines(t, &buf)
	require.Len(t, records, 3)

	assert.Equal(t, "test", records[0]["subsystem"])
	assert.Equal(t, GetPodName(), records[0]["pod"])
	assert.Equal(t, "overridden", records[1]["subsystem"])
	assert.Equal(t, "door", records[2]["machine"])
	assert.Equal(t, "r-1", records[2]["request_id"])
}

func TestMinLevel(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "test",
		JSON:      true,
		MinLevel:  slog.LevelWarn,
		Output:    &buf,
	})

	Get().Info("dropped")
	Get().Warn("kept")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "kept", records[0]["msg"])
}

func TestLegacy(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem:   "test",
		JSON:        true,
		MinLevel:    slog.LevelDebug,
		LegacyLevel: slog.LevelInfo,
		Output:      &buf,
	})

	log.Println("from the log package")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "INFO", records[0]["level"])
	assert.Equal(t, "from the log package", records[0]["msg"])
}

func TestConfigureLoggingFromEnv(t *testing.T) { //nolint:paralleltest
	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "debug")

	var buf bytes.Buffer

	logger := ConfigureLogging("env-app", WithOutput(&buf))
	logger.Debug("debug line")

	records := decodeLines(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, "DEBUG", records[0]["level"])
	assert.Equal(t, "env-app", GetSubsystem(t.Context()))
}

func TestFanoutHandler(t *testing.T) {
	t.Parallel()

	var info, warn bytes.Buffer

	handler := &fanoutHandler{handlers: []slog.Handler{
		slog.NewJSONHandler(&info, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(&warn, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}}

	logger := slog.New(handler).With("machine", "door")
	logger.Info("info line")
	logger.Warn("warn line")

	infoRecords := decodeLines(t, &info)
	warnRecords := decodeLines(t, &warn)

	require.Len(t, infoRecords, 2)
	require.Len(t, warnRecords, 1)
	assert.Equal(t, "door", warnRecords[0]["machine"])
	assert.False(t, handler.Enabled(t.Context(), slog.LevelDebug))
}
