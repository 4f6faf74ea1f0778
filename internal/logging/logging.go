// Package logging builds the console logger of the command line.
package logging

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"
)

// Levels accepted by New
var Levels = []string{"debug", "info", "warn", "error"}

// Options of the console logger
type Options struct {
	Level string
	// Stdout receives messages below the error level, Stderr the others
	Stdout *os.File
	Stderr *os.File
}

// New returns a console logger writing informational messages to stdout and errors to stderr
func New(opts Options) (*zap.Logger, error) {
	if opts.Level == "" {
		opts.Level = "info"
	}
	level, err := zapcore.ParseLevel(opts.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	high := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl >= zapcore.ErrorLevel
	})
	low := zap.LevelEnablerFunc(func(lvl zapcore.Level) bool {
		return lvl >= level && lvl < zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(encoder(opts.Stdout), zapcore.Lock(opts.Stdout), low),
		zapcore.NewCore(encoder(opts.Stderr), zapcore.Lock(opts.Stderr), high),
	)
	return zap.New(core).Named("folio"), nil
}

func encoder(stream *os.File) zapcore.Encoder {
	ec := zap.NewDevelopmentEncoderConfig()
	ec.EncodeCaller = nil
	if term.IsTerminal(int(stream.Fd())) {
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.TimeKey = zapcore.OmitKey
	} else {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder
	}
	return zapcore.NewConsoleEncoder(ec)
}
