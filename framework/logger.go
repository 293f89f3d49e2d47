package framework

import (
	"fmt"
	"strings"
	"sync"
)

// Logger is the minimal logging interface used by all framework components. Library code never
// writes to stdout directly; it logs through whatever Logger the caller injected.
type Logger interface {
	Println(args ...interface{})
	Printf(message string, args ...interface{})
}

type nullLogger struct{}

func (n nullLogger) Println(args ...interface{})                {}
func (n nullLogger) Printf(message string, args ...interface{}) {}

// NullLogger returns a Logger that discards everything.
func NullLogger() Logger { return nullLogger{} }

// LoggerOrNull returns logger, or a NullLogger if logger is nil.
func LoggerOrNull(logger Logger) Logger {
	if logger == nil {
		return NullLogger()
	}
	return logger
}

type prefixedLogger struct {
	base   Logger
	prefix string
}

// LoggerWithPrefix returns a Logger that prepends prefix to every message.
func LoggerWithPrefix(baseLogger Logger, prefix string) Logger {
	return prefixedLogger{LoggerOrNull(baseLogger), prefix}
}

func (p prefixedLogger) Println(args ...interface{}) {
	p.base.Println(append([]interface{}{p.prefix}, args...)...)
}

func (p prefixedLogger) Printf(message string, args ...interface{}) {
	p.base.Printf(p.prefix+message, args...)
}

// RecordingLogger keeps every message in memory. It is safe for concurrent use, and is mostly
// useful in tests that need to verify what a component reported.
type RecordingLogger struct {
	messages []string
	lock     sync.Mutex
}

func (l *RecordingLogger) Println(args ...interface{}) {
	l.append(strings.TrimRight(fmt.Sprintln(args...), "\r\n")) // Sprintln appends a newline
}

func (l *RecordingLogger) Printf(message string, args ...interface{}) {
	l.append(fmt.Sprintf(message, args...))
}

func (l *RecordingLogger) append(m string) {
	l.lock.Lock()
	l.messages = append(l.messages, m)
	l.lock.Unlock()
}

// Messages returns a copy of everything logged so far.
func (l *RecordingLogger) Messages() []string {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]string(nil), l.messages...)
}
