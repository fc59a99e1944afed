package logging

import (
	"context"
	"log/slog"

	"launcher/internal/services"
)

// scopeHandler adds the command name and correlation id carried by the
// record's context. Keys already bound through WithAttrs are not repeated.
type scopeHandler struct {
	next           slog.Handler
	hasCommand     bool
	hasCorrelation bool
}

func newScopeHandler(next slog.Handler) slog.Handler {
	return &scopeHandler{next: next}
}

func (h *scopeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *scopeHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx == nil {
		return h.next.Handle(ctx, r)
	}
	var extra []slog.Attr
	if name, ok := services.CommandFromContext(ctx); ok && !h.hasCommand {
		extra = append(extra, slog.String(FieldCommand, name))
	}
	if rid, ok := services.RequestIDFromContext(ctx); ok && !h.hasCorrelation {
		extra = append(extra, slog.String(FieldCorrelationID, rid))
	}
	if len(extra) > 0 {
		r = r.Clone()
		r.AddAttrs(extra...)
	}
	return h.next.Handle(ctx, r)
}

func (h *scopeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	for _, a := range attrs {
		switch a.Key {
		case FieldCommand:
			clone.hasCommand = true
		case FieldCorrelationID:
			clone.hasCorrelation = true
		}
	}
	return &clone
}

func (h *scopeHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.next = h.next.WithGroup(name)
	return &clone
}
