// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger at the given level. Deployed environments log JSON,
// everything else logs human-readable text. An unknown level falls back to info.
func New(level, environment string) *logrus.Logger {
	return NewWithOutput(os.Stdout, level, environment)
}

func NewWithOutput(out io.Writer, level, environment string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(out)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("level", level).Warn("invalid log level, defaulting to info")
	} else {
		log.SetLevel(lvl)
	}

	switch strings.ToLower(environment) {
	case "production", "staging":
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	default:
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return log
}
