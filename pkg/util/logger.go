package util

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LogOptions configures an optional rotating file sink next to stdout.
type LogOptions struct {
	File      string
	MaxSizeMB int
}

func NewLogger(env string) *slog.Logger {
	return NewLoggerWithOptions(env, LogOptions{})
}

func NewLoggerWithOptions(env string, o LogOptions) *slog.Logger {
	var handler slog.Handler

	var out io.Writer = os.Stdout
	if o.File != "" {
		maxSize := o.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    maxSize,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		})
	}

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if env == "development" {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}

	return slog.New(handler)
}
