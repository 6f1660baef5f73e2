// Package logging wires zerolog to a per-run log file and the console.
package logging

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where log lines go.
type Options struct {
	File    string    // debug-level log file, truncated per run
	Console io.Writer // info-level progress output; nil disables it
	RunID   string
}

// Setup builds the run logger, installs it as the zerolog global and returns
// a closer for the log file.
func Setup(opts Options) (zerolog.Logger, io.Closer, error) {
	file := &lumberjack.Logger{
		Filename:   opts.File,
		MaxSize:    100, // megabytes
		MaxBackups: 1,
	}
	// Start every run on a fresh file; the previous run is kept as the single backup.
	if err := file.Rotate(); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log file %s: %w", opts.File, err)
	}

	writers := []io.Writer{
		minLevel{Writer: textWriter(file), min: zerolog.DebugLevel},
	}
	if opts.Console != nil {
		writers = append(writers, minLevel{Writer: textWriter(opts.Console), min: zerolog.InfoLevel})
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).Level(zerolog.DebugLevel).With().Timestamp()
	if opts.RunID != "" {
		ctx = ctx.Str("run", opts.RunID)
	}
	logger := ctx.Logger()
	log.Logger = logger
	return logger, file, nil
}

func textWriter(w io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{Out: w, NoColor: true, TimeFormat: "2006-01-02 15:04:05"}
}

// minLevel drops events below min.
type minLevel struct {
	io.Writer
	min zerolog.Level
}

func (w minLevel) WriteLevel(l zerolog.Level, p []byte) (int, error) {
	if l < w.min {
		return len(p), nil
	}
	return w.Writer.Write(p)
}
