// Package logging builds the process logger: a console writer on stderr and,
// when a file is configured, a size-rotated JSON log.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level   string
	File    string
	Console io.Writer
}

// New returns a logger and a closer for the file sink. An unknown level falls
// back to info.
func New(opts Options) (zerolog.Logger, io.Closer) {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.DateTime}}

	var closer io.Closer = nopCloser{}
	if opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
		writers = append(writers, file)
		closer = file
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().Timestamp().Logger()
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
