package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

const serviceName = "pricing-api"

// New returns the JSON logger on stdout. level overrides the environment
// default (debug for local and dev, info elsewhere) when non-empty.
func New(appEnv, level string) (*slog.Logger, error) {
	return NewWithWriter(appEnv, level, os.Stdout)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(appEnv, level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := resolveLevel(appEnv, level)
	if err != nil {
		return nil, err
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
	return slog.New(h).With("service", serviceName, "env", appEnv), nil
}

func resolveLevel(appEnv, level string) (slog.Level, error) {
	if strings.TrimSpace(level) == "" {
		if appEnv == "local" || appEnv == "dev" {
			return slog.LevelDebug, nil
		}
		return slog.LevelInfo, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return lvl, nil
}

type ctxKey struct{}

// With returns ctx carrying l. Services log through From(ctx) so request
// attributes added upstream follow the call.
func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// From returns the logger on ctx, or slog.Default().
func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
