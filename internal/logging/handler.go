// internal/logging/handler.go
package logging

import (
	"context"
	"log/slog"
	"strings"
)

// Handler is a slog.Handler that renders records as single text lines
// and dispatches them through the sink registry.
type Handler struct {
	pre    string // attrs added through WithAttrs, already rendered
	prefix string // open groups, dot separated
}

// NewLogger returns a slog.Logger that writes into the registered sinks.
func NewLogger() *slog.Logger {
	return slog.New(&Handler{})
}

func (h *Handler) Enabled(_ context.Context, l slog.Level) bool {
	return Enabled(l)
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.pre)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&b, h.prefix, a)
		return true
	})

	dispatch(b.String())
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.pre)
	for _, a := range attrs {
		writeAttr(&b, h.prefix, a)
	}
	return &Handler{pre: b.String(), prefix: h.prefix}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &Handler{pre: h.pre, prefix: join(h.prefix, name)}
}

func writeAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = join(prefix, a.Key)
		}
		for _, ga := range a.Value.Group() {
			writeAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(join(prefix, a.Key))
	b.WriteByte('=')
	b.WriteString(a.Value.String())
}

func join(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
