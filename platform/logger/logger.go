// Package logger is the slog setup shared by the API, the scheduler and the tools.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey carries the HTTP request id.
	RequestIDKey contextKey = "request_id"
	// TickIDKey carries the id of the scheduler tick being processed.
	TickIDKey contextKey = "tick_id"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// New logs to stdout: text at debug level in development, JSON at info otherwise.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger writing to w. Tests pass io.Discard.
func NewWithWriter(env string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return NewWithWriter("production", io.Discard)
}

// WithContext adds the request and tick ids found in ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	var attrs []any
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		attrs = append(attrs, slog.String("request_id", requestID))
	}
	if tickID, ok := ctx.Value(TickIDKey).(string); ok && tickID != "" {
		attrs = append(attrs, slog.String("tick_id", tickID))
	}
	if len(attrs) == 0 {
		return l
	}
	return &Logger{Logger: l.With(attrs...)}
}

// Pipeline tags records with a scheduler pipeline name.
func (l *Logger) Pipeline(name string) *Logger {
	return &Logger{Logger: l.With(slog.String("pipeline", name))}
}

// ForJob is WithContext plus the job id.
func (l *Logger) ForJob(ctx context.Context, jobID fmt.Stringer) *Logger {
	return &Logger{Logger: l.WithContext(ctx).With(slog.String("jobId", jobID.String()))}
}

// HTTPRequest logs one served request.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// ExternalCallFailed logs a failed call to a third-party API.
func (l *Logger) ExternalCallFailed(service, operation string, err error, attrs ...any) {
	args := append([]any{
		slog.String("service", service),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	}, attrs...)
	l.Warn("external_call_failed", args...)
}

// RateLimitExceeded logs a throttled client.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
