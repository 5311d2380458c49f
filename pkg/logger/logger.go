package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type options struct {
	level      slog.Level
	format     Format
	output     io.Writer
	attrs      []slog.Attr
	extractors []ContextExtractor
	addSource  bool
}

// Option configures New.
type Option func(*options)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(o *options) { o.level = level }
}

// WithFormat sets the output format. Unknown formats fall back to JSON.
func WithFormat(format Format) Option {
	return func(o *options) {
		switch format {
		case FormatJSON, FormatText:
			o.format = format
		default:
			o.format = FormatJSON
		}
	}
}

// WithOutput sets the output writer.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		if w != nil {
			o.output = w
		}
	}
}

// WithAttr attaches static attributes to every record.
func WithAttr(attrs ...slog.Attr) Option {
	return func(o *options) { o.attrs = append(o.attrs, attrs...) }
}

// WithContextExtractors appends context extractors.
func WithContextExtractors(extractors ...ContextExtractor) Option {
	return func(o *options) { o.extractors = append(o.extractors, extractors...) }
}

// WithEnvironment applies the defaults for an APP_ENV value: text output at
// debug level with source locations in development, JSON at info elsewhere.
func WithEnvironment(env string) Option {
	return func(o *options) {
		switch strings.ToLower(strings.TrimSpace(env)) {
		case "development", "dev", "local":
			o.format = FormatText
			o.level = slog.LevelDebug
			o.addSource = true
		default:
			o.format = FormatJSON
			o.level = slog.LevelInfo
		}
		o.attrs = append(o.attrs, slog.String("env", env))
	}
}

// ParseLevel converts a LOG_LEVEL value into a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("logger: invalid level %q: %w", s, err)
	}
	return l, nil
}

// New creates a logger. With no options it writes JSON at info level to stdout.
func New(opts ...Option) *slog.Logger {
	o := &options{
		level:  slog.LevelInfo,
		format: FormatJSON,
		output: os.Stdout,
	}
	for _, opt := range opts {
		opt(o)
	}

	hopts := &slog.HandlerOptions{Level: o.level, AddSource: o.addSource}

	var h slog.Handler
	if o.format == FormatText {
		h = slog.NewTextHandler(o.output, hopts)
	} else {
		h = slog.NewJSONHandler(o.output, hopts)
	}
	if len(o.attrs) > 0 {
		h = h.WithAttrs(o.attrs)
	}

	return slog.New(newContextHandler(h, o.extractors...))
}

// Nop returns a logger that discards everything. Useful in tests.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}
