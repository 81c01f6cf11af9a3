// Package logger configures zerolog for the service and carries
// request-scoped loggers through context.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// New builds the process logger and installs it as the zerolog global.
// An unknown level falls back to info.
func New(level string, pretty bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	l := zerolog.New(out).Level(lvl).With().Timestamp().Str("service", "shop-api").Logger()
	log.Logger = l
	zerolog.DefaultContextLogger = &l
	return l
}

// WithRequestID returns ctx carrying a child logger tagged with requestID.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	l := zerolog.Ctx(ctx).With().Str("request_id", requestID).Logger()
	return l.WithContext(ctx)
}

// FromContext returns the logger stored in ctx, falling back to the global
// logger, and tags it with the active trace id when there is one.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		tl := l.With().Str("trace_id", sc.TraceID().String()).Logger()
		return &tl
	}
	return l
}
