// Package logging builds the process logger from configuration.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/aqasim81/schemagate/internal/config"
)

// New creates a logger writing to out at the configured level and format.
func New(cfg config.Log, out io.Writer) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(cfg.Level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}
