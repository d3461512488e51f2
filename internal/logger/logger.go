// Package logger provides the Logger interface the fragmentation handler
// and its surrounding CLI/config layers log through, backed by
// github.com/sirupsen/logrus the way the teacher's transport layer logged
// through a hand-rolled *log.Logger wrapper — swapped for a structured,
// leveled backend since SPEC_FULL.md's ambient logging section calls for
// one.
package logger

import (
	"github.com/sirupsen/logrus"
)

// Level represents a logging level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) logrusLevel() logrus.Level {
	switch l {
	case LevelDebug:
		return logrus.DebugLevel
	case LevelInfo:
		return logrus.InfoLevel
	case LevelWarn:
		return logrus.WarnLevel
	case LevelError:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// Logger is the interface fragmentation.Handler and its callers log
// through. format/args follow Printf conventions rather than logrus's
// structured fields so call sites (adapted from the teacher's) don't need
// rewriting.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
	SetLevel(level Level)
}

// LogrusLogger adapts a *logrus.Logger to Logger.
type LogrusLogger struct {
	entry *logrus.Logger
}

// NewLogrusLogger builds a LogrusLogger writing text-formatted entries at
// level and above.
func NewLogrusLogger(level Level) *LogrusLogger {
	l := logrus.New()
	l.SetLevel(level.logrusLevel())
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &LogrusLogger{entry: l}
}

func (l *LogrusLogger) Debug(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *LogrusLogger) Info(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *LogrusLogger) Warn(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *LogrusLogger) Error(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
func (l *LogrusLogger) SetLevel(level Level)                     { l.entry.SetLevel(level.logrusLevel()) }

// NoOpLogger discards everything. It is the Handler default so
// fragmentation.NewHandler never requires a logging dependency.
type NoOpLogger struct{}

func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (*NoOpLogger) Debug(string, ...interface{}) {}
func (*NoOpLogger) Info(string, ...interface{})  {}
func (*NoOpLogger) Warn(string, ...interface{})  {}
func (*NoOpLogger) Error(string, ...interface{}) {}
func (*NoOpLogger) SetLevel(Level)               {}

var defaultLogger Logger = NewLogrusLogger(LevelInfo)

// SetDefault replaces the package-level default logger.
func SetDefault(l Logger) { defaultLogger = l }

// GetDefault returns the package-level default logger.
func GetDefault() Logger { return defaultLogger }
