// logger stores an slog.Logger in a context.Context (WithLogger) and
// retrieves it (FromContext). Records are handled by
// github.com/charmbracelet/log on stderr, optionally duplicated into a
// size-rotated log file.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/log"
	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

type contextKey struct{}

var loggerKey = &contextKey{}

// Options for New. The zero value gives DefaultLogger.
type Options struct {
	Verbose bool
	// File, if set, receives a copy of every record (logfmt, no
	// colours) and is rotated at MaxSizeMB.
	File       string
	MaxSizeMB  int
	MaxBackups int
}

// WithLogger returns a context with l as slog.Logger based off the
// ctx context. Retrieve the logger using FromContext.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// WithDefaultLogger returns a context carrying DefaultLogger.
func WithDefaultLogger(ctx context.Context) context.Context {
	return WithLogger(ctx, DefaultLogger())
}

// FromContext retrieves the slog.Logger saved by WithLogger from
// ctx. If there is no such logger DefaultLogger is returned, this
// function always returns a valid slog.Logger.
func FromContext(ctx context.Context) *slog.Logger {
	l, ok := ctx.Value(loggerKey).(*slog.Logger)
	if !ok {
		return DefaultLogger()
	}
	return l
}

// DefaultLogger returns an info level logger on stderr.
func DefaultLogger() *slog.Logger {
	return New(Options{})
}

// New returns a logger configured by opts.
func New(opts Options) *slog.Logger {
	level := log.InfoLevel
	if opts.Verbose {
		level = log.DebugLevel
	}
	console := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
		Level:           level,
	})
	if opts.File == "" {
		return slog.New(console)
	}
	maxSize := opts.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	file := log.NewWithOptions(rotating(opts.File, maxSize, opts.MaxBackups), log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
		Formatter:       log.LogfmtFormatter,
	})
	return slog.New(slogmulti.Fanout(console, file))
}

func rotating(filename string, maxSizeMB, maxBackups int) io.Writer {
	return &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
	}
}
