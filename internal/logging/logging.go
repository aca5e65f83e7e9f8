// Package logging builds log/slog loggers from config.LoggingConfig.
//
// Loggers that write to a file hold the handle open until the returned
// CloseFunc is called. Commands call it on shutdown; tests usually log to a
// buffer or use Discard.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/zacaytion/fixturekit/internal/config"
)

// CloseFunc releases the resources held by a logger's writer.
type CloseFunc func() error

func noopClose() error { return nil }

// New returns a logger configured by cfg and a CloseFunc for its writer.
// The fallback writer replaces stdout/stderr when non-nil and is also used
// when the configured file cannot be opened.
func New(cfg config.LoggingConfig, fallback io.Writer) (*slog.Logger, CloseFunc) {
	writer, closer := openWriter(cfg.Output, fallback)
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, string(config.LogFormatText)) {
		handler = slog.NewTextHandler(writer, opts)
	} else {
		handler = slog.NewJSONHandler(writer, opts)
	}
	return slog.New(handler), closer
}

// SetupDefault installs a logger built from cfg as the slog default.
// Call the returned CloseFunc on shutdown.
func SetupDefault(cfg config.LoggingConfig) CloseFunc {
	logger, closer := New(cfg, nil)
	slog.SetDefault(logger)
	return closer
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// Component returns logger tagged with a component attribute, or the default
// logger when logger is nil.
func Component(logger *slog.Logger, name string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", name)
}

func parseLevel(level string) slog.Level {
	switch config.LogLevel(strings.ToLower(level)) {
	case config.LogLevelDebug:
		return slog.LevelDebug
	case config.LogLevelWarn, "warning":
		return slog.LevelWarn
	case config.LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openWriter(output string, fallback io.Writer) (io.Writer, CloseFunc) {
	switch strings.ToLower(output) {
	case "stdout", "":
		if fallback != nil {
			return fallback, noopClose
		}
		return os.Stdout, noopClose
	case "stderr":
		if fallback != nil {
			return fallback, noopClose
		}
		return os.Stderr, noopClose
	}

	file, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) //nolint:gosec // G304: path comes from config
	if err != nil {
		slog.Warn("failed to open log file, falling back", "path", output, "error", err)
		if fallback != nil {
			return fallback, noopClose
		}
		return os.Stdout, noopClose
	}
	return file, file.Close
}
