// Package logger provides structured logging with context support.
package logger

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"buildledger/internal/core/actor"
	appctx "buildledger/internal/core/context"
)

// Logger wraps zap.SugaredLogger with context-aware logging.
type Logger struct {
	*zap.SugaredLogger
}

type loggerKey struct{}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error
	Development bool   // console encoder, colored levels
	Service     string // added to every entry; defaults to "buildledger"
	OutputPaths []string
}

// New creates a new Logger from configuration.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	if cfg.Service == "" {
		cfg.Service = "buildledger"
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}

	zl, err := zc.Build(
		zap.AddCallerSkip(1),
		zap.Fields(zap.String("service", cfg.Service)),
	)
	if err != nil {
		return nil, err
	}
	return &Logger{zl.Sugar()}, nil
}

var (
	fallbackOnce sync.Once
	fallback     *Logger
)

// Default is used when no logger was put in the context.
func Default() *Logger {
	fallbackOnce.Do(func() {
		l, err := New(Config{Level: "info", OutputPaths: []string{"stdout"}})
		if err != nil {
			l = NewNop()
		}
		fallback = l
	})
	return fallback
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// contextFields returns the request and actor fields carried by ctx.
func contextFields(ctx context.Context) []any {
	var kv []any
	if c, ok := appctx.CorrelationFrom(ctx); ok {
		kv = append(kv, "trace_id", c.TraceID)
		if c.RequestID != "" {
			kv = append(kv, "request_id", c.RequestID)
		}
		if c.Job != "" {
			kv = append(kv, "job", c.Job)
		}
	}
	if a, ok := actor.FromContext(ctx); ok {
		kv = append(kv, "user_id", a.UserID().String(), "role", string(a.Role()))
	}
	return kv
}

// WithContext adds trace and actor fields from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	kv := contextFields(ctx)
	if len(kv) == 0 {
		return l
	}
	return &Logger{l.SugaredLogger.With(kv...)}
}

// With adds key-value pairs to logger.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{l.SugaredLogger.With(keysAndValues...)}
}

// WithComponent tags entries with the emitting subsystem.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithLogger stores logger in ctx for the package-level helpers.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the context logger, or Default, with context fields.
func FromContext(ctx context.Context) *Logger {
	l, ok := ctx.Value(loggerKey{}).(*Logger)
	if !ok {
		l = Default()
	}
	return l.WithContext(ctx)
}

func Debug(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Debugw(msg, keysAndValues...)
}

func Info(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Infow(msg, keysAndValues...)
}

func Warn(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Warnw(msg, keysAndValues...)
}

func Error(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, keysAndValues...)
}

// Fatal logs and exits with status 1.
func Fatal(ctx context.Context, msg string, keysAndValues ...any) {
	FromContext(ctx).Errorw(msg, keysAndValues...)
	_ = FromContext(ctx).Sync()
	os.Exit(1)
}
