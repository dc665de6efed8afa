package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogLoggerLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		level   LogLevel
		logFunc func(Logger)
		want    bool
	}{
		{"debug hidden at info", LogLevelInfo, func(l Logger) { l.Debug("msg") }, false},
		{"info shown at info", LogLevelInfo, func(l Logger) { l.Info("msg") }, true},
		{"warn shown at info", LogLevelInfo, func(l Logger) { l.Warn("msg") }, true},
		{"info hidden at error", LogLevelError, func(l Logger) { l.Info("msg") }, false},
		{"trace shown at trace", LogLevelTrace, func(l Logger) { l.Trace("msg") }, true},
		{"trace hidden at debug", LogLevelDebug, func(l Logger) { l.Trace("msg") }, false},
		{"explicit level", LogLevelWarn, func(l Logger) { l.Log(LogLevelError, "msg") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.logFunc(NewSlogLogger(&buf, tt.level, time.UTC))
			assert.Equal(t, tt.want, strings.Contains(buf.String(), "msg"))
		})
	}
}

func TestTextHandlerFormatsModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelDebug, time.UTC).Module("loader").Module("fetch")
	log.With(String("session_id", "s1")).Info("session loaded",
		Int("events", 42),
		Float64("ratio", 0.123456),
		Duration("took", 1500*time.Millisecond),
		String("path", "a b"),
		Int64("bytes_out", 2048),
		Uint64("seq", 7),
		Time("loaded_at", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)),
		Error(errors.New("boom")))

	line := buf.String()
	assert.True(t, strings.HasPrefix(line, "INFO  [loader.fetch] session loaded"), line)
	assert.Contains(t, line, "session_id=s1")
	assert.Contains(t, line, "events=42")
	assert.Contains(t, line, "ratio=0.123")
	assert.Contains(t, line, "took=1.5s")
	assert.Contains(t, line, `path="a b"`)
	assert.Contains(t, line, "bytes_out=2048")
	assert.Contains(t, line, "seq=7")
	assert.Contains(t, line, "loaded_at=2024-05-01T10:00:00Z")
	assert.Contains(t, line, "error=boom")
}

func TestWithContextAddsTraceID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewSlogLogger(&buf, LogLevelInfo, time.UTC)

	log.WithContext(WithTraceID(t.Context(), "abc-123")).Info("traced")
	log.WithContext(context.Background()).Info("untraced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "trace_id=abc-123")
	assert.NotContains(t, lines[1], "trace_id")
}

func TestWithDoesNotMutateParent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	parent := NewSlogLogger(&buf, LogLevelInfo, time.UTC).With(String("a", "1"))
	_ = parent.With(String("b", "2"))
	parent.Info("parent")

	assert.Contains(t, buf.String(), "a=1")
	assert.NotContains(t, buf.String(), "b=2")
}

func TestErrorFieldNil(t *testing.T) {
	t.Parallel()

	f := Error(nil)
	assert.Equal(t, "error", f.Key)
	assert.Nil(t, f.Value)
}

func TestCentralLoggerModuleLevels(t *testing.T) {
	t.Parallel()

	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		ModuleLevels: map[string]string{"loader": "debug", "http": "error"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cl.Close() })

	assert.Equal(t, -4, int(cl.Module("loader").(*moduleLogger).level))
	assert.Equal(t, -4, int(cl.Module("loader.fetch").(*moduleLogger).level), "inherits parent module level")
	assert.Equal(t, 8, int(cl.Module("http").(*moduleLogger).level))
	assert.Equal(t, 0, int(cl.Module("navigation").(*moduleLogger).level))
}

func TestCentralLoggerWritesJSONFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "evened.log")
	cl, err := NewCentralLogger(&LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &ConsoleOutput{Enabled: false},
		FileOutput:   &FileOutput{Enabled: true, Path: path, Level: "info"},
	})
	require.NoError(t, err)

	cl.Module("feed").Info("feed refreshed", Int("sessions", 3))
	cl.Module("feed").Debug("hidden")
	require.NoError(t, cl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	var record map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &record))
	assert.Equal(t, "feed refreshed", record["msg"])
	assert.Equal(t, "feed", record[moduleKey])
	assert.InDelta(t, 3, record["sessions"], 0)
	assert.False(t, scanner.Scan(), "debug record must be filtered")
}

func TestNewCentralLoggerRejectsBadTimezone(t *testing.T) {
	t.Parallel()

	_, err := NewCentralLogger(&LoggingConfig{Timezone: "Not/AZone"})
	require.Error(t, err)

	_, err = NewCentralLogger(nil)
	require.Error(t, err)
}

func TestMultiWriterHandlerFansOut(t *testing.T) {
	t.Parallel()

	var info, errOnly bytes.Buffer
	h := newMultiWriterHandler(
		newTextHandler(&info, parseLogLevel("info"), time.UTC),
		newTextHandler(&errOnly, parseLogLevel("error"), time.UTC),
	)
	log := &moduleLogger{logger: slog.New(h), level: parseLogLevel("debug")}

	log.Info("first")
	log.Error("second")

	assert.Contains(t, info.String(), "first")
	assert.Contains(t, info.String(), "second")
	assert.NotContains(t, errOnly.String(), "first")
	assert.Contains(t, errOnly.String(), "second")
}
