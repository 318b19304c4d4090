// Package logger wraps zerolog with request-scoped fields carried in the context.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medok/medok-backend/pkg/env"
)

const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

type Options struct {
	ServiceName string
	Level       zerolog.Level
	// Format is json or console. Empty falls back to MEDOK_LOG_FORMAT so the
	// bootstrap logger created before config loads honours it too.
	Format    string
	WarnStack bool
	Output    io.Writer
}

type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

type fieldsKey struct{}

func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	format := opts.Format
	if format == "" {
		format = env.Get("MEDOK_LOG_FORMAT", FormatJSON)
	}
	if strings.EqualFold(format, FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}
	level := opts.Level
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	ctx := zerolog.New(out).Level(level).With().Timestamp().Str("service", opts.ServiceName)
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		ctx = ctx.Str("version", info.Main.Version)
	}
	return &Logger{root: ctx.Logger(), warnStack: opts.WarnStack}
}

// ParseLevel maps MEDOK_LOG_LEVEL to a zerolog level, defaulting to info.
func ParseLevel(value string) zerolog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	if lvl, err := zerolog.ParseLevel(value); err == nil && value != "" {
		return lvl
	}
	return zerolog.InfoLevel
}

func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if scoped, ok := ctx.Value(fieldsKey{}).(*zerolog.Logger); ok {
			return scoped
		}
	}
	return &l.root
}

func (l *Logger) with(ctx context.Context, build func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scoped := build(l.from(ctx).With()).Logger()
	return context.WithValue(ctx, fieldsKey{}, &scoped)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.with(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "request_id", id)
}

func (l *Logger) WithUserID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "user_id", id)
}

func (l *Logger) WithHospitalID(ctx context.Context, id string) context.Context {
	return l.WithField(ctx, "hospital_id", id)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.WithField(ctx, "actor_role", role)
}

func (l *Logger) Debug(ctx context.Context, msg string) { l.from(ctx).Debug().Msg(msg) }

func (l *Logger) Info(ctx context.Context, msg string) { l.from(ctx).Info().Msg(msg) }

// Warn attaches a stack only when WarnStack is enabled.
func (l *Logger) Warn(ctx context.Context, msg string) {
	ev := l.from(ctx).Warn()
	if l.warnStack {
		ev = ev.Str("stack", stack())
	}
	ev.Msg(msg)
}

// Error always attaches a stack.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	ev := l.from(ctx).Error().Str("stack", stack())
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
