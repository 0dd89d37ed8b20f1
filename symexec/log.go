package symexec

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/itchyny/timefmt-go"
	"github.com/pkg/errors"
)

// LogLevel represents the severity level for logs.
type LogLevel int

const (
	LevelOff LogLevel = iota - 1
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LevelOff:
		return "OFF"
	case LevelError:
		return "ERROR"
	case LevelWarn:
		return "WARN"
	case LevelInfo:
		return "INFO"
	case LevelDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel parses a level name. The empty string means warn.
func ParseLogLevel(s string) (LogLevel, error) {
	switch strings.ToUpper(s) {
	case "OFF", "NONE":
		return LevelOff, nil
	case "ERROR":
		return LevelError, nil
	case "WARN", "WARNING", "":
		return LevelWarn, nil
	case "INFO":
		return LevelInfo, nil
	case "DEBUG":
		return LevelDebug, nil
	}
	return LevelWarn, errors.Errorf("unknown log level %q", s)
}

// Logger is the interface used by the engine for logging.
type Logger interface {
	// Debugf, Infof, Warnf, Errorf log formatted messages at respective levels.
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With returns a child logger augmented with the provided fields.
	With(fields map[string]any) Logger
}

// timestamp layout, strftime style
const logTimeLayout = "%Y-%m-%dT%H:%M:%S.%fZ"

// textFormatter emits one line per entry:
// [LEVEL] ts msg key1=val1 key2=val2 ...
type textFormatter struct {
	includeTimestamp bool
}

func (f *textFormatter) format(ts time.Time, level LogLevel, msg string, fields map[string]any) []byte {
	var b strings.Builder
	b.Grow(96 + 16*len(fields))

	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	if f.includeTimestamp {
		b.WriteString(timefmt.Format(ts.UTC(), logTimeLayout))
		b.WriteByte(' ')
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(fieldString(fields[k]))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

func fieldString(v any) string {
	switch t := v.(type) {
	case string:
		if strings.IndexFunc(t, func(r rune) bool { return r <= ' ' }) >= 0 {
			return fmt.Sprintf("%q", t)
		}
		return t
	case []string:
		return strings.Join(t, ",")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// textLogger writes formatted lines to out. Children created by With share
// the parent's writer and lock.
type textLogger struct {
	out    io.Writer
	level  LogLevel
	fmt    *textFormatter
	fields map[string]any
	mu     *sync.Mutex
}

// NewLogger creates a text logger with the given level.
// If w is nil, os.Stderr is used.
func NewLogger(level LogLevel, w io.Writer) Logger {
	return newTextLogger(level, w, true)
}

// NewPlainLogger is NewLogger without timestamps.
func NewPlainLogger(level LogLevel, w io.Writer) Logger {
	return newTextLogger(level, w, false)
}

func newTextLogger(level LogLevel, w io.Writer, timestamps bool) Logger {
	if level == LevelOff {
		return NopLogger()
	}
	if w == nil {
		w = os.Stderr
	}
	return &textLogger{
		out:    w,
		level:  level,
		fmt:    &textFormatter{includeTimestamp: timestamps},
		fields: map[string]any{},
		mu:     &sync.Mutex{},
	}
}

func (l *textLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

func (l *textLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *textLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *textLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *textLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *textLogger) logf(level LogLevel, format string, args ...any) {
	if level > l.level {
		return
	}
	line := l.fmt.format(time.Now(), level, fmt.Sprintf(format, args...), l.fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}

// NopLogger returns a logger that discards all output.
func NopLogger() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)       {}
func (nopLogger) Infof(string, ...any)        {}
func (nopLogger) Warnf(string, ...any)        {}
func (nopLogger) Errorf(string, ...any)       {}
func (n nopLogger) With(map[string]any) Logger { return n }
