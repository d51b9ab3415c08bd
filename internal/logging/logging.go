// Package logging holds the logger factory used when the caller doesn't
// supply one.
package logging

import (
	"github.com/pion/logging"
)

var loggerFactory = logging.NewDefaultLoggerFactory()

// NewLogger creates a leveled logger for scope using the default factory.
func NewLogger(scope string) logging.LeveledLogger {
	return loggerFactory.NewLogger(scope)
}

// Factory returns the default factory.
func Factory() logging.LoggerFactory {
	return loggerFactory
}
