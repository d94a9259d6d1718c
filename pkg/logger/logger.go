package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured logging interface used across CALLCOACH-CORE.
// Fields are sugared key/value pairs.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})

	// With returns a child logger that always carries the given fields,
	// e.g. a request id for one chat pipeline execution.
	With(fields ...interface{}) Logger
}

type zapLogger struct {
	logger *zap.SugaredLogger
}

func New(level string) Logger {
	config := zap.NewProductionConfig()

	switch level {
	case "debug":
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "info":
		config.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	case "warn":
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		config.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	}

	config.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	logger, err := config.Build()
	if err != nil {
		panic(err)
	}

	return &zapLogger{logger: logger.Sugar()}
}

// NewNop returns a logger that discards everything. Used by tests.
func NewNop() Logger {
	return &zapLogger{logger: zap.NewNop().Sugar()}
}

func (l *zapLogger) Debug(msg string, fields ...interface{}) { l.logger.Debugw(msg, fields...) }
func (l *zapLogger) Info(msg string, fields ...interface{})  { l.logger.Infow(msg, fields...) }
func (l *zapLogger) Warn(msg string, fields ...interface{})  { l.logger.Warnw(msg, fields...) }
func (l *zapLogger) Error(msg string, fields ...interface{}) { l.logger.Errorw(msg, fields...) }
func (l *zapLogger) Fatal(msg string, fields ...interface{}) { l.logger.Fatalw(msg, fields...) }

func (l *zapLogger) With(fields ...interface{}) Logger {
	return &zapLogger{logger: l.logger.With(fields...)}
}
