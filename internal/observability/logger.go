package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	usernameKey  contextKey = "username"
)

var logger *slog.Logger

// InitLogger initializes the global structured logger on stdout.
// format is "json" or "text"; level is debug, info, warn or error.
func InitLogger(level, format string) {
	InitLoggerTo(os.Stdout, level, format)
}

// InitLoggerTo is InitLogger with an explicit destination.
func InitLoggerTo(w io.Writer, level, format string) {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger = slog.New(handler).With(slog.String("service", "studio-backend"))
	slog.SetDefault(logger)
}

// FromContext returns a logger with the request id and admin username attached.
// The request id set by chi's RequestID middleware is used when none was stored explicitly.
func FromContext(ctx context.Context) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}

	attrs := make([]any, 0, 2)

	reqID, _ := ctx.Value(requestIDKey).(string)
	if reqID == "" {
		reqID = chimiddleware.GetReqID(ctx)
	}
	if reqID != "" {
		attrs = append(attrs, slog.String("request_id", reqID))
	}

	if username, ok := ctx.Value(usernameKey).(string); ok && username != "" {
		attrs = append(attrs, slog.String("username", username))
	}

	if len(attrs) > 0 {
		return logger.With(attrs...)
	}
	return logger
}

// WithRequestID adds request ID to context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithUsername adds the authenticated admin's username to context
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
