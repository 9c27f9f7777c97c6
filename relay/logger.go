package relay

import (
	"github.com/ThreeDotsLabs/watermill"

	"github.com/rise-and-shine/actionrpc/observability/logger"
)

var _ watermill.LoggerAdapter = (*loggerAdapter)(nil)

// loggerAdapter lets watermill components log through logger.Logger.
type loggerAdapter struct {
	base logger.Logger
}

// NewLoggerAdapter adapts log to watermill.LoggerAdapter.
func NewLoggerAdapter(log logger.Logger) watermill.LoggerAdapter {
	return &loggerAdapter{base: log}
}

func (l *loggerAdapter) Error(msg string, err error, fields watermill.LogFields) {
	l.with(fields).With("error", err).Error(msg)
}

func (l *loggerAdapter) Info(msg string, fields watermill.LogFields) {
	l.with(fields).Info(msg)
}

func (l *loggerAdapter) Debug(msg string, fields watermill.LogFields) {
	l.with(fields).Debug(msg)
}

// Trace logs at debug; logger.Logger has no trace level.
func (l *loggerAdapter) Trace(msg string, fields watermill.LogFields) {
	l.with(fields).Debug(msg)
}

func (l *loggerAdapter) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return &loggerAdapter{base: l.with(fields)}
}

func (l *loggerAdapter) with(fields watermill.LogFields) logger.Logger {
	log := l.base
	for k, v := range fields {
		log = log.With(k, v)
	}
	return log
}
