package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureLogger swaps the package logger for one writing JSON to a buffer.
func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	previous := logger
	buf := &bytes.Buffer{}
	logger = slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	t.Cleanup(func() { logger = previous })
	return buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestInitLogger(t *testing.T) {
	previous := logger
	previousDefault := slog.Default()
	defer func() {
		logger = previous
		slog.SetDefault(previousDefault)
	}()

	for _, format := range []string{"json", "text"} {
		t.Run(format, func(t *testing.T) {
			InitLogger("debug", format)
			require.NotNil(t, logger)
			assert.Same(t, logger, slog.Default())
			assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
		})
	}

	t.Run("json_output_carries_service", func(t *testing.T) {
		buf := &bytes.Buffer{}
		InitLoggerTo(buf, "info", "json")

		logger.Debug("hidden")
		logger.Info("visible")

		record := decodeLine(t, buf)
		assert.Equal(t, "visible", record["msg"])
		assert.Equal(t, "studio-backend", record["service"])
	})

	t.Run("text_output", func(t *testing.T) {
		buf := &bytes.Buffer{}
		InitLoggerTo(buf, "warn", "TEXT")

		logger.Info("hidden")
		logger.Warn("kiln overheating")

		assert.Contains(t, buf.String(), "msg=\"kiln overheating\"")
		assert.NotContains(t, buf.String(), "hidden")
	})
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for input, want := range tests {
		assert.Equal(t, want, parseLevel(input), "parseLevel(%q)", input)
	}
}

func TestFromContext(t *testing.T) {
	t.Run("attaches_request_id_and_username", func(t *testing.T) {
		buf := captureLogger(t)

		ctx := WithRequestID(context.Background(), "req-123")
		ctx = WithUsername(ctx, "admin")
		FromContext(ctx).Info("session checked")

		record := decodeLine(t, buf)
		assert.Equal(t, "session checked", record["msg"])
		assert.Equal(t, "req-123", record["request_id"])
		assert.Equal(t, "admin", record["username"])
	})

	t.Run("skips_empty_values", func(t *testing.T) {
		buf := captureLogger(t)

		ctx := WithRequestID(context.Background(), "")
		ctx = WithUsername(ctx, "")
		FromContext(ctx).Info("anonymous")

		record := decodeLine(t, buf)
		assert.NotContains(t, record, "request_id")
		assert.NotContains(t, record, "username")
	})

	t.Run("uses_chi_request_id", func(t *testing.T) {
		buf := captureLogger(t)

		ctx := context.WithValue(context.Background(), chimiddleware.RequestIDKey, "chi-req-7")
		FromContext(ctx).Info("from router")

		record := decodeLine(t, buf)
		assert.Equal(t, "chi-req-7", record["request_id"])
	})

	t.Run("falls_back_to_default_when_uninitialized", func(t *testing.T) {
		previous := logger
		logger = nil
		defer func() { logger = previous }()

		assert.Same(t, slog.Default(), FromContext(context.Background()))
	})
}
