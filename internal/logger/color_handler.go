package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// ANSI sequences per level. Info stays uncolored so routine lines do
// not dominate a terminal visually.
var levelColors = map[slog.Level]string{
	slog.LevelDebug: "\033[36m",
	slog.LevelWarn:  "\033[33m",
	slog.LevelError: "\033[31m",
}

const ansiReset = "\033[0m"

// colorHandler decorates a text handler with a colored level prefix on
// the message. Colors are suppressed when NO_COLOR is set.
type colorHandler struct {
	inner slog.Handler
	color bool
}

func newColorHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	_, noColor := os.LookupEnv("NO_COLOR")
	return &colorHandler{
		inner: slog.NewTextHandler(w, opts),
		color: !noColor,
	}
}

func (h *colorHandler) Enabled(ctx context.Context, lvl slog.Level) bool {
	return h.inner.Enabled(ctx, lvl)
}

func (h *colorHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.color {
		if c, ok := levelColors[r.Level]; ok {
			r.Message = c + r.Level.String() + ansiReset + " " + r.Message
		}
	}
	return h.inner.Handle(ctx, r)
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &colorHandler{inner: h.inner.WithAttrs(attrs), color: h.color}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	return &colorHandler{inner: h.inner.WithGroup(name), color: h.color}
}
