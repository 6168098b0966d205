// Package logger is a small levelled wrapper around the standard log package.
// The active level can be changed at runtime (see featureflags.LogLevel).
package logger

import (
	"fmt"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

// Level is a log severity.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	}
	return fmt.Sprintf("level(%d)", int32(l))
}

// ParseLevel maps a level name to a Level. Unknown names yield LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug", "trace":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "fatal":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	current atomic.Int32
	std     = log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds)
)

func init() {
	current.Store(int32(LevelInfo))
}

// Init sets the initial level.
func Init(level string) {
	SetLevel(level)
}

// SetLevel changes the active level.
func SetLevel(level string) {
	current.Store(int32(ParseLevel(level)))
}

// GetLevel returns the active level name.
func GetLevel() string {
	return Level(current.Load()).String()
}

// Enabled reports whether messages at l are emitted.
func Enabled(l Level) bool {
	return l >= Level(current.Load())
}

func logf(l Level, format string, args ...interface{}) {
	if !Enabled(l) {
		return
	}
	_ = std.Output(3, "["+strings.ToUpper(l.String())+"] "+fmt.Sprintf(format, args...))
}

func Debugf(format string, args ...interface{}) { logf(LevelDebug, format, args...) }
func Infof(format string, args ...interface{})  { logf(LevelInfo, format, args...) }
func Warnf(format string, args ...interface{})  { logf(LevelWarn, format, args...) }
func Errorf(format string, args ...interface{}) { logf(LevelError, format, args...) }
