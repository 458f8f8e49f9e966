package logging

import (
	"context"
	"errors"
	"log/slog"
)

// AttrSource returns attributes computed at log time, such as the running session's phase.
type AttrSource func() []slog.Attr

// fanout sends every record to each sink that accepts its level.
type fanout []slog.Handler

// Fanout combines sinks. Nil sinks are dropped. A failing sink does not stop the others;
// its error is returned after all sinks ran.
func Fanout(sinks ...slog.Handler) slog.Handler {
	f := make(fanout, 0, len(sinks))
	for _, h := range sinks {
		if h != nil {
			f = append(f, h)
		}
	}
	return f
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		errs = errors.Join(errs, h.Handle(ctx, r.Clone()))
	}
	return errs
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}

// dynamicAttrs appends src's attributes to every record it passes on.
type dynamicAttrs struct {
	next slog.Handler
	src  AttrSource
}

// WithDynamicAttrs wraps next so that each record carries src's current attributes.
func WithDynamicAttrs(next slog.Handler, src AttrSource) slog.Handler {
	if src == nil {
		return next
	}
	return &dynamicAttrs{next: next, src: src}
}

func (h *dynamicAttrs) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *dynamicAttrs) Handle(ctx context.Context, r slog.Record) error {
	if attrs := h.src(); len(attrs) > 0 {
		r.AddAttrs(attrs...)
	}
	return h.next.Handle(ctx, r)
}

func (h *dynamicAttrs) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &dynamicAttrs{next: h.next.WithAttrs(attrs), src: h.src}
}

func (h *dynamicAttrs) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &dynamicAttrs{next: h.next.WithGroup(name), src: h.src}
}
