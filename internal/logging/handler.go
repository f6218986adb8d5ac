package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
)

// SanitizingHandler wraps another handler and sanitizes log attributes.
type SanitizingHandler struct {
	handler   slog.Handler
	sanitizer *Sanitizer
}

// NewSanitizingHandler creates a new sanitizing handler.
func NewSanitizingHandler(handler slog.Handler, sanitizer *Sanitizer) *SanitizingHandler {
	return &SanitizingHandler{
		handler:   handler,
		sanitizer: sanitizer,
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *SanitizingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle sanitizes the record and passes it to the underlying handler.
func (h *SanitizingHandler) Handle(ctx context.Context, r slog.Record) error {
	clean := slog.NewRecord(r.Time, r.Level, h.sanitizer.Sanitize(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		clean.AddAttrs(h.sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, clean)
}

// WithAttrs returns a new handler with sanitized attrs.
func (h *SanitizingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clean := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		clean[i] = h.sanitizeAttr(attr)
	}
	return &SanitizingHandler{
		handler:   h.handler.WithAttrs(clean),
		sanitizer: h.sanitizer,
	}
}

// WithGroup returns a new handler with a group.
func (h *SanitizingHandler) WithGroup(name string) slog.Handler {
	return &SanitizingHandler{
		handler:   h.handler.WithGroup(name),
		sanitizer: h.sanitizer,
	}
}

func (h *SanitizingHandler) sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, h.sanitizer.Sanitize(a.Value.String()))
	case slog.KindGroup:
		attrs := a.Value.Group()
		clean := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			clean[i] = h.sanitizeAttr(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(clean...)}
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, h.sanitizer.Sanitize(err.Error()))
		}
		return a
	default:
		return a
	}
}

// lineHandler is the shared base of the line-oriented handlers below. It
// keeps pre-set attrs and group prefixes and renders " key=value" pairs.
type lineHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func newLineHandler(w io.Writer, level slog.Level) lineHandler {
	return lineHandler{mu: &sync.Mutex{}, w: w, level: level}
}

func (h lineHandler) enabled(level slog.Level) bool {
	return level >= h.level
}

func (h lineHandler) withAttrs(attrs []slog.Attr) lineHandler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	h.attrs = merged
	return h
}

func (h lineHandler) withGroup(name string) lineHandler {
	groups := make([]string, 0, len(h.groups)+1)
	groups = append(groups, h.groups...)
	h.groups = append(groups, name)
	return h
}

func (h lineHandler) renderAttrs(r slog.Record, format func(key string, v slog.Value) string) string {
	var b strings.Builder
	for _, a := range h.attrs {
		h.renderAttr(&b, a, format)
	}
	r.Attrs(func(a slog.Attr) bool {
		h.renderAttr(&b, a, format)
		return true
	})
	return b.String()
}

func (h lineHandler) renderAttr(b *strings.Builder, a slog.Attr, format func(key string, v slog.Value) string) {
	if a.Value.Kind() == slog.KindGroup {
		for _, attr := range a.Value.Group() {
			h.renderAttr(b, attr, format)
		}
		return
	}

	key := a.Key
	for i := len(h.groups) - 1; i >= 0; i-- {
		key = h.groups[i] + "." + key
	}
	b.WriteString(format(key, a.Value))
}

func (h lineHandler) write(line string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintln(h.w, line)
	return err
}

// PrettyHandler provides colorized console output for TTY.
type PrettyHandler struct {
	lineHandler
}

// NewPrettyHandler creates a new pretty handler.
func NewPrettyHandler(w io.Writer, level slog.Level) *PrettyHandler {
	return &PrettyHandler{lineHandler: newLineHandler(w, level)}
}

// Enabled reports whether the handler handles records at the given level.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.enabled(level)
}

// Handle formats and writes the log record.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	const (
		colorReset = "\033[0m"
		colorCyan  = "\033[36m"
	)
	attrs := h.renderAttrs(r, func(key string, v slog.Value) string {
		return fmt.Sprintf(" %s%s%s=%v", colorCyan, key, colorReset, v.Any())
	})
	return h.write(fmt.Sprintf("%s %s %s%s", r.Time.Format("15:04:05"), prettyLevel(r.Level), r.Message, attrs))
}

// WithAttrs returns a new handler with attrs.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &PrettyHandler{lineHandler: h.withAttrs(attrs)}
}

// WithGroup returns a new handler with a group.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	return &PrettyHandler{lineHandler: h.withGroup(name)}
}

func prettyLevel(level slog.Level) string {
	const (
		colorReset  = "\033[0m"
		colorRed    = "\033[31m"
		colorYellow = "\033[33m"
		colorBlue   = "\033[34m"
		colorGray   = "\033[90m"
	)

	switch level {
	case slog.LevelDebug:
		return colorGray + "DBG" + colorReset
	case slog.LevelInfo:
		return colorBlue + "INF" + colorReset
	case slog.LevelWarn:
		return colorYellow + "WRN" + colorReset
	case slog.LevelError:
		return colorRed + "ERR" + colorReset
	default:
		return level.String()[:3]
	}
}

// ActionsHandler writes records as GitHub Actions workflow commands so that
// debug lines honour step debug logging and errors are annotated on the run.
type ActionsHandler struct {
	lineHandler
}

// NewActionsHandler creates a handler emitting workflow commands.
func NewActionsHandler(w io.Writer, level slog.Level) *ActionsHandler {
	return &ActionsHandler{lineHandler: newLineHandler(w, level)}
}

// Enabled reports whether the handler handles records at the given level.
func (h *ActionsHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.enabled(level)
}

// Handle writes the record as one workflow command line.
func (h *ActionsHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := h.renderAttrs(r, func(key string, v slog.Value) string {
		return fmt.Sprintf(" %s=%v", key, v.Any())
	})
	msg := escapeCommandData(r.Message + attrs)

	switch {
	case r.Level >= slog.LevelError:
		return h.write("::error::" + msg)
	case r.Level >= slog.LevelWarn:
		return h.write("::warning::" + msg)
	case r.Level >= slog.LevelInfo:
		return h.write(msg)
	default:
		return h.write("::debug::" + msg)
	}
}

// WithAttrs returns a new handler with attrs.
func (h *ActionsHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ActionsHandler{lineHandler: h.withAttrs(attrs)}
}

// WithGroup returns a new handler with a group.
func (h *ActionsHandler) WithGroup(name string) slog.Handler {
	return &ActionsHandler{lineHandler: h.withGroup(name)}
}

// escapeCommandData escapes workflow command data so multi-line values stay
// on a single command.
func escapeCommandData(s string) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	return strings.ReplaceAll(s, "\n", "%0A")
}

// ErrorCommand formats message as an ::error:: workflow command, which marks
// the step failed in the run annotations.
func ErrorCommand(message string) string {
	return "::error::" + escapeCommandData(message)
}
