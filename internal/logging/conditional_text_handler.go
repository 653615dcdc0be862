package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/isseis/go-lazyelf/internal/terminal"
)

// Static errors for handler validation
var (
	ErrCapabilitiesRequired = errors.New("terminal capabilities are required")
	ErrWriterRequired       = errors.New("writer is required")
)

// ConditionalTextHandler wraps slog.TextHandler and only writes when the
// output is not an interactive terminal, so pipes and CI logs get
// key=value lines while terminals get the console format.
type ConditionalTextHandler struct {
	capabilities terminal.Capabilities
	textHandler  slog.Handler
}

// ConditionalTextHandlerOptions configures NewConditionalTextHandler.
type ConditionalTextHandlerOptions struct {
	Capabilities       terminal.Capabilities
	TextHandlerOptions *slog.HandlerOptions
	Writer             io.Writer
}

// NewConditionalTextHandler returns a ConditionalTextHandler writing to opts.Writer.
func NewConditionalTextHandler(opts ConditionalTextHandlerOptions) (*ConditionalTextHandler, error) {
	if opts.Capabilities == nil {
		return nil, ErrCapabilitiesRequired
	}
	if opts.Writer == nil {
		return nil, ErrWriterRequired
	}
	return &ConditionalTextHandler{
		capabilities: opts.Capabilities,
		textHandler:  slog.NewTextHandler(opts.Writer, opts.TextHandlerOptions),
	}, nil
}

func (h *ConditionalTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return !h.capabilities.IsInteractive() && h.textHandler.Enabled(ctx, level)
}

func (h *ConditionalTextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.capabilities.IsInteractive() {
		return nil
	}
	return h.textHandler.Handle(ctx, r)
}

func (h *ConditionalTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConditionalTextHandler{capabilities: h.capabilities, textHandler: h.textHandler.WithAttrs(attrs)}
}

func (h *ConditionalTextHandler) WithGroup(name string) slog.Handler {
	return &ConditionalTextHandler{capabilities: h.capabilities, textHandler: h.textHandler.WithGroup(name)}
}
