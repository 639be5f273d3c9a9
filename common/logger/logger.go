package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Option tunes NewLogger
type Option func(*options)

type options struct {
	version string
	fields  []zap.Field
}

// WithVersion adds the build version as "version" to every entry
func WithVersion(version string) Option {
	return func(o *options) { o.version = version }
}

// WithFields adds static fields to every entry
func WithFields(fields ...zap.Field) Option {
	return func(o *options) { o.fields = append(o.fields, fields...) }
}

// ParseLevel maps "debug", "info", "warn"/"warning", "error"; anything else is info
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewLogger builds a zap logger.
// format: "json" or "console" (default "json").
// serviceName is attached to every entry as service_name when not empty.
func NewLogger(level string, format string, serviceName string, opts ...Option) (*zap.Logger, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.OutputPaths = []string{"stdout"}
		config.ErrorOutputPaths = []string{"stderr"}
	}
	config.Level = zap.NewAtomicLevelAt(ParseLevel(level))

	baseLogger, err := config.Build()
	if err != nil {
		return nil, err
	}

	fields := make([]zap.Field, 0, 3+len(o.fields))
	if serviceName != "" {
		fields = append(fields, zap.String("service_name", serviceName))
	}
	if o.version != "" {
		fields = append(fields, zap.String("version", o.version))
	}
	if hostname, err := os.Hostname(); err == nil && hostname != "" {
		fields = append(fields, zap.String("hostname", hostname))
	}
	fields = append(fields, o.fields...)

	return baseLogger.With(fields...), nil
}

// Component child logger for one part of the service: named after it and
// tagged with a "component" field so JSON output can be filtered on it.
func Component(l *zap.Logger, name string) *zap.Logger {
	return l.Named(name).With(zap.String("component", name))
}
