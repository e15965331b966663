package emulator

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// Handler prints "[time] [LEVEL] [attr values...] message" with the attribute
// keys hidden. The level tag only appears above info.
type Handler struct {
	level slog.Leveler
	attrs []slog.Attr
	mu    *sync.Mutex
	out   io.Writer
}

func NewHandler(o io.Writer, opts *slog.HandlerOptions) *Handler {
	var level slog.Leveler = slog.LevelInfo
	if opts != nil && opts.Level != nil {
		level = opts.Level
	}
	return &Handler{level: level, out: o, mu: &sync.Mutex{}}
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// WithAttrs keeps the values so every line of the derived handler carries
// them ahead of the record's own attributes.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{
		level: h.level,
		attrs: append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
		mu:    h.mu,
		out:   h.out,
	}
}

// Keys are never printed, so groups change nothing.
func (h *Handler) WithGroup(string) slog.Handler {
	return h
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Time.Format("[2006/01/02 15:04:05]"))
	if r.Level > slog.LevelInfo {
		b.WriteString(" [" + r.Level.String() + "]")
	}
	write := func(a slog.Attr) bool {
		if !a.Equal(slog.Attr{}) {
			b.WriteString(" [" + a.Value.Resolve().String() + "]")
		}
		return true
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(write)
	b.WriteString(" " + r.Message + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}
