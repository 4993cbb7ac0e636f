package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

type FileLogger struct {
	Logger *slog.Logger
	Close  func() error
	Path   string
}

func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo}))
}

// ParseLevel maps a --log-level flag value onto a slog level.
func ParseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", value)
	}
}

// NewFileLogger writes JSON records to <dataDir>/logs/uigen.log, rotated by size.
// With debug set, records are mirrored to stderr as text.
func NewFileLogger(dataDir string, level slog.Level, debug bool) (FileLogger, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return FileLogger{Logger: Nop(), Close: func() error { return nil }}, err
	}
	path := filepath.Join(logDir, "uigen.log")
	rotating := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     28,
	}
	var handler slog.Handler = slog.NewJSONHandler(rotating, &slog.HandlerOptions{
		Level:       level,
		AddSource:   debug,
		ReplaceAttr: replaceAttr,
	})
	if debug {
		handler = fanout{
			handler,
			slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug, ReplaceAttr: replaceAttr}),
		}
	}
	return FileLogger{
		Logger: slog.New(handler),
		Close:  rotating.Close,
		Path:   path,
	}, nil
}
