package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Setup configures the global slog logger based on the desired format,
// level and verbosity. Logs go to stderr so stdout stays free for reports
// and for the MCP stdio stream.
func Setup(format, level string, verbose bool) {
	SetupWriter(os.Stderr, format, level, verbose)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(w io.Writer, format, level string, verbose bool) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if verbose {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	switch format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// ParseLevel maps a config level name to a slog level. Unknown names fall
// back to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
