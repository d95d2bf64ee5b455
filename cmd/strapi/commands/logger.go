package commands

import (
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/fivetwenty-io/strapi-client/pkg/strapi"
)

// ZapLogger adapts a zap.Logger to strapi.Logger.
type ZapLogger struct {
	logger *zap.Logger
}

var _ strapi.Logger = (*ZapLogger)(nil)

// NewZapLogger wraps logger.
func NewZapLogger(logger *zap.Logger) *ZapLogger {
	return &ZapLogger{logger: logger}
}

// Debug implements strapi.Logger.
func (l *ZapLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, zapFields(fields)...)
}

// Info implements strapi.Logger.
func (l *ZapLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, zapFields(fields)...)
}

// Warn implements strapi.Logger.
func (l *ZapLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, zapFields(fields)...)
}

// Error implements strapi.Logger.
func (l *ZapLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, zapFields(fields)...)
}

func zapFields(fields map[string]interface{}) []zap.Field {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, key := range keys {
		if err, ok := fields[key].(error); ok {
			out = append(out, zap.NamedError(key, err))

			continue
		}

		out = append(out, zap.Any(key, fields[key]))
	}

	return out
}

// newCLILogger logs to stderr: debug and up when verbose, warnings otherwise.
func newCLILogger(verbose bool) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.DisableStacktrace = true

	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}

	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger
}
