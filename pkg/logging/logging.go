// Package logging centralizes logrus setup: one shared *logrus.Logger for
// the whole process instead of letting every package call the logrus
// package-level functions directly.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger from a level name ("debug", "info", "warn",
// "error") and a format name ("json" or "text"). An unrecognized level
// falls back to Info; an unrecognized format falls back to text.
func New(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
