// Package logger provides the leveled logger used throughout the generator.
package logger

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nativebind/bindgen/textutils"
)

type LogLevel int

const (
	INFO  LogLevel = 0
	WARN  LogLevel = 1
	ERROR LogLevel = 2
	FATAL LogLevel = 99
)

func (l LogLevel) String() string {
	switch l {
	case INFO:
		return "INFO"
	case WARN:
		return "WARNING"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		panic(fmt.Sprintf("invalid log level: %d", int(l)))
	}
}

// ParseLevel parses "info", "warn"/"warning", "error" (case-insensitive).
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(s) {
	case "info":
		return INFO, true
	case "warn", "warning":
		return WARN, true
	case "error":
		return ERROR, true
	default:
		return -1, false
	}
}

// Logger writes one prefixed line per message. Multi-line messages
// are indented below the level marker.
//
// A nil *Logger, or one with a nil Writer, discards everything
// except FATAL, which still exits.
type Logger struct {
	Writer   io.Writer
	Prefix   string
	MinLevel LogLevel

	// Counts holds the number of messages logged per level,
	// including filtered ones.
	Counts map[LogLevel]int
}

func New(w io.Writer, prefix string, minLevel LogLevel) *Logger {
	return &Logger{
		Writer:   w,
		Prefix:   prefix,
		MinLevel: minLevel,
		Counts:   map[LogLevel]int{},
	}
}

func (l *Logger) Log(level LogLevel, format string, args ...any) {
	if l == nil {
		if level == FATAL {
			os.Exit(1)
		}
		return
	}
	if l.Counts != nil {
		l.Counts[level]++
	}
	if l.Writer == nil || level < l.MinLevel {
		if level == FATAL {
			os.Exit(1)
		}
		return
	}
	var b bytes.Buffer
	if l.Prefix != "" {
		b.WriteString(l.Prefix)
		b.WriteString(" ")
	}
	b.WriteString(level.String())
	b.WriteString(":")
	s := fmt.Sprintf(format, args...)
	if strings.Contains(s, "\n") {
		b.WriteString("\n")
		s = textutils.IndentString(s, "  ", 1)
	} else {
		b.WriteString(" ")
	}
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
	_, _ = io.Copy(l.Writer, &b)
	if level == FATAL {
		os.Exit(1)
	}
}

func (l *Logger) Infof(format string, args ...any)  { l.Log(INFO, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.Log(WARN, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.Log(ERROR, format, args...) }
func (l *Logger) Fatalf(format string, args ...any) { l.Log(FATAL, format, args...) }

// Count returns how many messages of the given level were logged.
func (l *Logger) Count(level LogLevel) int {
	if l == nil || l.Counts == nil {
		return 0
	}
	return l.Counts[level]
}
