package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// ErrUnknownFormat is returned when an unrecognized log format is requested.
var ErrUnknownFormat = errors.New("unknown log format")

var _ slog.Handler = (*PrettyHandler)(nil)

// PrettyHandler prints one coloured line per record for terminal runs.
// Logger-scoped attributes (a chain's lane, a run name) are shown in front
// of the message as "key=val "; per-call attributes are dropped except run
// summary values such as duration, acceptance and digest. Use the json or
// text format when every attribute matters.
type PrettyHandler struct {
	out    io.Writer
	level  slog.Leveler
	mu     *sync.Mutex // shared by handlers derived via WithAttrs/WithGroup
	prefix string
}

// NewPrettyHandler returns a PrettyHandler that writes to out at the given level.
func NewPrettyHandler(out io.Writer, level slog.Leveler) *PrettyHandler {
	return &PrettyHandler{
		out:   out,
		level: level,
		mu:    &sync.Mutex{},
	}
}

var (
	_warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("3")) // yellow
	_errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")) // red
	_debugStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // dim
	_summaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")) // cyan
)

// _summaryKeys are the per-call attributes a pretty line keeps.
var _summaryKeys = map[string]struct{}{
	"duration":   {},
	"acceptance": {},
	"digest":     {},
}

// Enabled reports whether records at level are printed.
func (h *PrettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// Handle prints r as a single line coloured by level.
func (h *PrettyHandler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(h.prefix)
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		if _, ok := _summaryKeys[a.Key]; ok {
			b.WriteByte(' ')
			b.WriteString(_summaryStyle.Render(a.Value.String()))
		}
		return true
	})

	line := b.String()
	if style, ok := levelStyle(r.Level); ok {
		line = style.Render(line)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, line+"\n")
	return err
}

// levelStyle returns the colour for records at level; info lines are
// printed unstyled.
func levelStyle(level slog.Level) (lipgloss.Style, bool) {
	switch {
	case level >= slog.LevelError:
		return _errorStyle, true
	case level >= slog.LevelWarn:
		return _warnStyle, true
	case level < slog.LevelInfo:
		return _debugStyle, true
	default:
		return lipgloss.Style{}, false
	}
}

// WithAttrs returns a handler that shows attrs in front of every message.
func (h *PrettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		_, _ = fmt.Fprintf(&b, "%s=%s ", a.Key, a.Value)
	}
	return h.derive(b.String())
}

// WithGroup returns a handler that shows "name." in front of every message.
func (h *PrettyHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return h.derive(h.prefix + name + ".")
}

func (h *PrettyHandler) derive(prefix string) *PrettyHandler {
	return &PrettyHandler{out: h.out, level: h.level, mu: h.mu, prefix: prefix}
}

// NewLogger builds the scanbar logger for format: "pretty" for terminals,
// "json" or "text" for machine-readable output.
func NewLogger(out io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "pretty":
		return slog.New(NewPrettyHandler(out, level)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("log format %q: %w", format, ErrUnknownFormat)
	}
}
