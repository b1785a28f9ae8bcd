package logger

import (
	"bytes"
	"context"
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
		" warn ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNew_JSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", true)

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("shown", "conn_id", "c1")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "c1", entry["conn_id"])
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", false).With("conn_id", "c42")

	ctx := IntoContext(context.Background(), l)
	FromContext(ctx).Debug("hello")
	assert.Contains(t, buf.String(), "conn_id=c42")

	assert.Same(t, Get(), FromContext(context.Background()))
}

func TestPackageHelpersUseDefaultLogger(t *testing.T) {
	prev := defaultLogger
	t.Cleanup(func() { defaultLogger = prev })

	var buf bytes.Buffer
	defaultLogger = New(&buf, "debug", false)

	Debug("config loaded", "port", "8080")
	Info("server started")
	Warn("rate limiter disabled")
	Error("hub shutdown incomplete")
	With("component", "hub").Info("hub stopped")

	out := buf.String()
	assert.Contains(t, out, "level=DEBUG msg=\"config loaded\" port=8080")
	assert.Contains(t, out, "level=INFO msg=\"server started\"")
	assert.Contains(t, out, "level=WARN msg=\"rate limiter disabled\"")
	assert.Contains(t, out, "level=ERROR msg=\"hub shutdown incomplete\"")
	assert.Contains(t, out, "component=hub")
}
