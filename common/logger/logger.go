package logger

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger provides a unified logging facade for the retrieval system.
// It wraps a shared logrus logger so every package logs through one sink.

var log = newDefault()

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	return l
}

// Underlying returns the shared logrus logger for callers that need fields.
func Underlying() *logrus.Logger { return log }

// SetLevel sets the minimum log level ("debug", "info", "warn", "error").
func SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
}

// SetOutput redirects log output; tests use io.Discard.
func SetOutput(w io.Writer) { log.SetOutput(w) }

// Debugf logs a debug message.
func Debugf(format string, args ...interface{}) { log.Debugf(format, args...) }

// Infof logs an info message.
func Infof(format string, args ...interface{}) { log.Infof(format, args...) }

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) { log.Warnf(format, args...) }

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) { log.Errorf(format, args...) }

// WithFields returns an entry carrying structured context.
func WithFields(fields map[string]interface{}) *logrus.Entry {
	return log.WithFields(logrus.Fields(fields))
}
