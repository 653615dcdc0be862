package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/isseis/go-lazyelf/internal/color"
	"github.com/isseis/go-lazyelf/internal/terminal"
)

// ConsoleHandler writes short human-readable lines to an interactive
// terminal: "level: message key=value ...", colored when supported.
type ConsoleHandler struct {
	capabilities terminal.Capabilities
	palette      color.Palette
	level        slog.Leveler

	mu     *sync.Mutex
	writer io.Writer
	attrs  []slog.Attr
	prefix string
}

// ConsoleHandlerOptions configures NewConsoleHandler.
type ConsoleHandlerOptions struct {
	Level        slog.Leveler
	Writer       io.Writer
	Capabilities terminal.Capabilities
}

// NewConsoleHandler returns a ConsoleHandler writing to opts.Writer.
func NewConsoleHandler(opts ConsoleHandlerOptions) (*ConsoleHandler, error) {
	if opts.Writer == nil {
		return nil, ErrWriterRequired
	}
	if opts.Capabilities == nil {
		return nil, ErrCapabilitiesRequired
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &ConsoleHandler{
		capabilities: opts.Capabilities,
		palette:      color.NewPalette(opts.Capabilities.SupportsColor()),
		level:        level,
		mu:           &sync.Mutex{},
		writer:       opts.Writer,
	}, nil
}

func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.capabilities.IsInteractive() && level >= h.level.Level()
}

func (h *ConsoleHandler) levelLabel(level slog.Level) string {
	label := strings.ToLower(level.String())
	switch {
	case level >= slog.LevelError:
		return h.palette.Error(label)
	case level >= slog.LevelWarn:
		return h.palette.Warning(label)
	case level < slog.LevelInfo:
		return h.palette.Muted(label)
	default:
		return label
	}
}

func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.capabilities.IsInteractive() {
		return nil
	}
	var b strings.Builder
	b.WriteString(h.levelLabel(r.Level))
	b.WriteString(": ")
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		h.appendAttr(&b, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.appendAttr(&b, h.prefix, a)
		return true
	})
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, b.String())
	return err
}

func (h *ConsoleHandler) appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		groupPrefix := prefix
		if a.Key != "" {
			groupPrefix += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			h.appendAttr(b, groupPrefix, ga)
		}
		return
	}
	fmt.Fprintf(b, " %s=%s", h.palette.Muted(prefix+a.Key), a.Value.String())
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	next := *h
	next.attrs = append([]slog.Attr(nil), h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}
