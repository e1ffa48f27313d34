// Package log provides the single shared logger used by both the
// wireproto and submodule cores. It mirrors gitaly's own
// internal/log package: a package-level logrus.Logger, configured once
// at process startup and handed out by Default as a *logrus.Entry
// value rather than used through global functions.
package log

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"
)

var (
	// Loggers is the set of loggers Configure adjusts. Kept as a slice,
	// gitaly-style, so a caller embedding both cores in one process can
	// configure auxiliary loggers (e.g. an access log) alongside this one.
	Loggers = []*logrus.Logger{logrus.StandardLogger()}

	defaultLogger = logrus.StandardLogger()
)

// Configure sets the output format ("json" or "text") and level for
// every logger in Loggers. An unrecognized level falls back to "info".
func Configure(loggers []*logrus.Logger, format, level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	var formatter logrus.Formatter
	switch format {
	case "json":
		formatter = &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	default:
		formatter = &logrus.TextFormatter{FullTimestamp: true}
	}

	for _, l := range loggers {
		l.SetFormatter(formatter)
		l.SetLevel(lvl)
	}
}

// SetOutput redirects the default logger's output; tests use this to
// capture log lines instead of writing to stderr.
func SetOutput(w io.Writer) {
	defaultLogger.SetOutput(w)
}

// Default returns the package-level logger as a *logrus.Entry so
// callers can attach structured fields without mutating global state.
func Default() *logrus.Entry {
	return logrus.NewEntry(defaultLogger)
}

// FromContext returns the default logger enriched with the request's
// correlation ID, if the context carries one. Callers that don't have
// a labkit-managed correlation ID (CORE A has no ambient context) use
// WithRequestID instead.
func FromContext(ctx context.Context) *logrus.Entry {
	entry := Default()
	if id := correlation.ExtractFromContext(ctx); id != "" {
		entry = entry.WithField(correlation.FieldName, id)
	}
	return entry
}

// WithRequestID attaches an ad-hoc request identifier to the default
// logger. Used by the wireproto driver, which parses synchronously
// outside of any context.Context.
func WithRequestID(id string) *logrus.Entry {
	return Default().WithField(correlation.FieldName, id)
}

func init() {
	if os.Getenv("SCM_CORES_LOG_FORMAT") != "" {
		Configure(Loggers, os.Getenv("SCM_CORES_LOG_FORMAT"), os.Getenv("SCM_CORES_LOG_LEVEL"))
	}
}
