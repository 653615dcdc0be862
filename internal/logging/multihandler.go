// Package logging assembles the slog handlers used by the command line tools:
// a console handler for terminals, a text handler for pipes and CI, and an
// optional per-run JSON file.
package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNilHandler is returned by NewMultiHandler when given a nil handler.
var ErrNilHandler = errors.New("nil slog handler")

// MultiHandler dispatches log records to several handlers.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler returns a MultiHandler over handlers.
func NewMultiHandler(handlers ...slog.Handler) (*MultiHandler, error) {
	for _, h := range handlers {
		if h == nil {
			return nil, ErrNilHandler
		}
	}
	return &MultiHandler{handlers: handlers}, nil
}

// Enabled reports whether any underlying handler handles level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of r to every enabled handler and joins their errors.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handlers returns a copy of the underlying handlers.
func (h *MultiHandler) Handlers() []slog.Handler {
	return append([]slog.Handler(nil), h.handlers...)
}

func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return &MultiHandler{handlers: next}
}

func (h *MultiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return &MultiHandler{handlers: next}
}
