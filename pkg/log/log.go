package log

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging interface used across GrowHub.
type Logger interface {
	// Debug logs a message at DebugLevel.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel. The error may be nil.
	Error(err error, msg string, keysAndValues ...any)

	// WithName returns a new logger with the specified name appended.
	WithName(name string) Logger

	// WithValues returns a new logger with additional key-value pairs.
	WithValues(keysAndValues ...any) Logger

	// Logr returns a logr.Logger adapter.
	Logr() logr.Logger

	// Sync flushes any buffered entries. Call it on shutdown.
	Sync() error
}

type zapLogger struct {
	z *zap.Logger
}

var _ Logger = (*zapLogger)(nil)

// NewLogger builds a Logger from the given options. A nil opts uses the
// defaults from NewOptions. Invalid output paths panic: a service that
// cannot log should not come up at all.
func NewLogger(opts *Options) Logger {
	if opts == nil {
		opts = NewOptions()
	}

	level := zapcore.InfoLevel
	if err := level.UnmarshalText([]byte(opts.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	enc := buildEncoder(opts)

	paths := opts.OutputPaths
	if len(paths) == 0 {
		paths = []string{"stdout"}
	}
	sink, _, err := zap.Open(paths...)
	if err != nil {
		panic(fmt.Sprintf("log: cannot open output paths %v: %v", paths, err))
	}

	core := zapcore.NewCore(enc, sink, zap.NewAtomicLevelAt(level))

	zopts := []zap.Option{
		zap.AddStacktrace(zapcore.ErrorLevel),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	}
	if !opts.DisableCaller {
		zopts = append(zopts, zap.AddCaller(), zap.AddCallerSkip(opts.CallerSkip))
	}

	z := zap.New(core, zopts...)
	if opts.Name != "" {
		z = z.Named(opts.Name)
	}

	return &zapLogger{z: z}
}

func buildEncoder(opts *Options) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:    "message",
		LevelKey:      "level",
		TimeKey:       "timestamp",
		NameKey:       "logger",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.CapitalLevelEncoder,
		EncodeTime:    zapcore.ISO8601TimeEncoder,
		EncodeCaller:  zapcore.ShortCallerEncoder,
		EncodeDuration: func(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendFloat64(float64(d) / float64(time.Millisecond))
		},
	}

	if opts.Format == "console" {
		if opts.EnableColor {
			cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		}
		return zapcore.NewConsoleEncoder(cfg)
	}
	return zapcore.NewJSONEncoder(cfg)
}

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.z.Debug(msg, toFields(keysAndValues...)...)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.z.Info(msg, toFields(keysAndValues...)...)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.z.Warn(msg, toFields(keysAndValues...)...)
}

func (l *zapLogger) Error(err error, msg string, keysAndValues ...any) {
	fields := toFields(keysAndValues...)
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	l.z.Error(msg, fields...)
}

func (l *zapLogger) WithName(name string) Logger {
	return &zapLogger{z: l.z.Named(name)}
}

func (l *zapLogger) WithValues(keysAndValues ...any) Logger {
	return &zapLogger{z: l.z.With(toFields(keysAndValues...)...)}
}

func (l *zapLogger) Logr() logr.Logger {
	return zapr.NewLogger(l.z)
}

func (l *zapLogger) Sync() error {
	return l.z.Sync()
}

// Package-level logger. It stays a nop until Init runs so libraries can log
// unconditionally and tests stay quiet.
var (
	once sync.Once
	std  = NewNopLogger()
)

// Init installs the global logger. Only the first call takes effect.
func Init(opts *Options) {
	once.Do(func() {
		std = NewLogger(opts)
	})
}

// Std returns the global logger instance.
func Std() Logger { return std }

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func Debug(msg string, keysAndValues ...any)            { std.Debug(msg, keysAndValues...) }
func Info(msg string, keysAndValues ...any)             { std.Info(msg, keysAndValues...) }
func Warn(msg string, keysAndValues ...any)             { std.Warn(msg, keysAndValues...) }
func Error(err error, msg string, keysAndValues ...any) { std.Error(err, msg, keysAndValues...) }
func WithName(name string) Logger                       { return std.WithName(name) }
func WithValues(keysAndValues ...any) Logger            { return std.WithValues(keysAndValues...) }
func Logr() logr.Logger                                 { return std.Logr() }

// Sync flushes the global logger.
func Sync() error { return std.Sync() }
