// Package logging provides the process logger: a zap backend behind the
// sonido-sonar logging.Logger interface, so library code and commands log
// through the same sink.
package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-sonar/logging"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ContextFieldsKey is the context key WithContext reads fields from
const ContextFieldsKey = "logger_fields"

// Options configure a ZapLogger
type Options struct {
	Level logging.Level
	// File, when set, receives JSON logs rotated by size
	File       string
	MaxSizeMB  int
	MaxBackups int
	// Color forces coloured console output; nil decides from the terminal
	Color *bool
}

// ZapLogger implements logging.Logger on top of zap
type ZapLogger struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	closer func() error
}

var _ logging.Logger = (*ZapLogger)(nil)

// New builds a logger writing human readable lines to stderr and, when
// opts.File is set, JSON lines to a rotated file.
func New(opts Options) (*ZapLogger, error) {
	level := zap.NewAtomicLevelAt(toZapLevel(opts.Level))

	color := shouldColorize(os.Stderr)
	if opts.Color != nil {
		color = *opts.Color
	}

	consoleCfg := zap.NewDevelopmentEncoderConfig()
	consoleCfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	if color {
		consoleCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		consoleCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleCfg), zapcore.Lock(os.Stderr), level),
	}

	closer := func() error { return nil }
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    max(opts.MaxSizeMB, 1),
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		}
		fileCfg := zap.NewProductionEncoderConfig()
		fileCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileCfg), zapcore.AddSync(rotator), level))
		closer = rotator.Close
	}

	return &ZapLogger{
		logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)),
		level:  level,
		closer: closer,
	}, nil
}

// NewFromZap wraps an existing zap logger, mainly for tests using zaptest.
// level can only raise the wrapped core's own minimum.
func NewFromZap(z *zap.Logger, level logging.Level) *ZapLogger {
	atomic := zap.NewAtomicLevelAt(toZapLevel(level))
	return &ZapLogger{
		logger: z.WithOptions(zap.IncreaseLevel(atomic)),
		level:  atomic,
		closer: func() error { return nil },
	}
}

// Install makes l the global logger used by every package
func Install(l logging.Logger) {
	logging.SetGlobalLogger(l)
}

// ParseLevel maps a config string to a level; unknown values are Info
func ParseLevel(s string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return logging.DebugLevel
	case "warn", "warning":
		return logging.WarnLevel
	case "error":
		return logging.ErrorLevel
	case "fatal":
		return logging.FatalLevel
	default:
		return logging.InfoLevel
	}
}

func (z *ZapLogger) Debug(msg string, fields ...logging.Fields) {
	z.logger.Debug(msg, zapFields(nil, fields)...)
}

func (z *ZapLogger) Info(msg string, fields ...logging.Fields) {
	z.logger.Info(msg, zapFields(nil, fields)...)
}

func (z *ZapLogger) Warn(msg string, fields ...logging.Fields) {
	z.logger.Warn(msg, zapFields(nil, fields)...)
}

func (z *ZapLogger) Error(err error, msg string, fields ...logging.Fields) {
	z.logger.Error(msg, zapFields(err, fields)...)
}

func (z *ZapLogger) Fatal(err error, msg string, fields ...logging.Fields) {
	z.logger.Fatal(msg, zapFields(err, fields)...)
}

func (z *ZapLogger) WithFields(fields logging.Fields) logging.Logger {
	return &ZapLogger{
		logger: z.logger.With(zapFields(nil, []logging.Fields{fields})...),
		level:  z.level,
		closer: z.closer,
	}
}

func (z *ZapLogger) WithContext(ctx context.Context) logging.Logger {
	if fields, ok := ctx.Value(ContextFieldsKey).(logging.Fields); ok {
		return z.WithFields(fields)
	}
	return z
}

// SetLevel changes the level of this logger and every logger derived from it
func (z *ZapLogger) SetLevel(level logging.Level) {
	z.level.SetLevel(toZapLevel(level))
}

// Sync flushes buffered entries and closes the file sink
func (z *ZapLogger) Sync() error {
	_ = z.logger.Sync()
	return z.closer()
}

func toZapLevel(l logging.Level) zapcore.Level {
	switch l {
	case logging.DebugLevel:
		return zapcore.DebugLevel
	case logging.WarnLevel:
		return zapcore.WarnLevel
	case logging.ErrorLevel:
		return zapcore.ErrorLevel
	case logging.FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func zapFields(err error, fields []logging.Fields) []zap.Field {
	size := 0
	for _, f := range fields {
		size += len(f)
	}
	out := make([]zap.Field, 0, size+1)
	if err != nil {
		out = append(out, zap.Error(err))
	}
	for _, f := range fields {
		for key, value := range f {
			if key == "" {
				continue
			}
			if e, ok := value.(error); ok {
				out = append(out, zap.NamedError(key, e))
				continue
			}
			out = append(out, zap.Any(key, value))
		}
	}
	return out
}

func shouldColorize(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
