package observability

import (
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every log line and used as the default trace
// service name.
const ServiceName = "metasearch-service"

// maxLoggedQueryLen bounds the query text copied into log lines.
const maxLoggedQueryLen = 120

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is json, or console/pretty for human-readable output.
	Format string

	// Output is stdout, stderr or discard. Ignored when Writer is set.
	Output string

	// Writer overrides Output.
	Writer io.Writer

	// AddSource adds source file and line number to log entries.
	AddSource bool

	// TimeFormat is the time format for timestamps.
	TimeFormat string
}

// DefaultLoggingConfig returns a LoggingConfig with sensible defaults.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger builds the service logger. The level applies to the returned
// logger only; the zerolog global level is left alone.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	w := cfg.Writer
	if w == nil {
		w = outputWriter(cfg.Output)
	}

	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	zerolog.TimeFieldFormat = timeFormat

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: timeFormat}
	}

	ctx := zerolog.New(w).With().Timestamp().Str("service", ServiceName)
	if cfg.AddSource {
		ctx = ctx.Caller()
	}
	return ctx.Logger().Level(parseLevel(cfg.Level))
}

func outputWriter(name string) io.Writer {
	switch strings.ToLower(name) {
	case "stderr":
		return os.Stderr
	case "discard", "none":
		return io.Discard
	default:
		return os.Stdout
	}
}

// parseLevel maps a level name to zerolog, accepting "warning" and
// defaulting to info.
func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || level == "" || l == zerolog.NoLevel || l == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return l
}

// WithRequestContext adds the request correlation ID to a logger.
func WithRequestContext(logger zerolog.Logger, requestID string) zerolog.Logger {
	if requestID == "" {
		return logger
	}
	return logger.With().Str("request_id", requestID).Logger()
}

// WithQueryContext adds search query fields to a logger. Long queries are
// shortened.
func WithQueryContext(logger zerolog.Logger, queryType, query string, limit int) zerolog.Logger {
	return logger.With().
		Str("query_type", queryType).
		Str("query", shorten(query, maxLoggedQueryLen)).
		Int("limit", limit).
		Logger()
}

// WithProviderContext adds provider fields to a logger.
func WithProviderContext(logger zerolog.Logger, provider, operation string) zerolog.Logger {
	return logger.With().
		Str("provider", provider).
		Str("operation", operation).
		Logger()
}

// WithTraceContext adds distributed tracing fields to a logger.
func WithTraceContext(logger zerolog.Logger, traceID, spanID string) zerolog.Logger {
	return logger.With().
		Str("trace_id", traceID).
		Str("span_id", spanID).
		Logger()
}

// shorten cuts s to at most n runes, marking the cut with an ellipsis.
func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "…"
}
