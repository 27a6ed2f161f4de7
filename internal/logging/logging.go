// internal/logging/logging.go
package logging

import (
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Sink accepts one formatted diagnostic line.
type Sink interface {
	Log(line string)
}

// registry is copy-on-write: AddSink/RemoveSink build a new slice,
// dispatch only loads the current one.
type registry struct {
	sinks []Sink
}

var (
	current  atomic.Pointer[registry]
	minLevel atomic.Int64
)

func init() {
	current.Store(&registry{})
	minLevel.Store(int64(slog.LevelDebug))
}

// AddSink registers s. Registering the same sink twice delivers lines twice.
func AddSink(s Sink) {
	if s == nil {
		return
	}
	for {
		old := current.Load()
		next := &registry{sinks: make([]Sink, 0, len(old.sinks)+1)}
		next.sinks = append(next.sinks, old.sinks...)
		next.sinks = append(next.sinks, s)
		if current.CompareAndSwap(old, next) {
			return
		}
	}
}

// RemoveSink unregisters the first registration of s.
func RemoveSink(s Sink) bool {
	for {
		old := current.Load()
		idx := -1
		for i, have := range old.sinks {
			if have == s {
				idx = i
				break
			}
		}
		if idx < 0 {
			return false
		}
		next := &registry{sinks: make([]Sink, 0, len(old.sinks)-1)}
		next.sinks = append(next.sinks, old.sinks[:idx]...)
		next.sinks = append(next.sinks, old.sinks[idx+1:]...)
		if current.CompareAndSwap(old, next) {
			return true
		}
	}
}

// Reset drops every sink and restores the debug level.
func Reset() {
	current.Store(&registry{})
	minLevel.Store(int64(slog.LevelDebug))
}

// SetLevel sets the minimum level that reaches any sink.
func SetLevel(l slog.Level) {
	minLevel.Store(int64(l))
}

func Level() slog.Level {
	return slog.Level(minLevel.Load())
}

func Enabled(l slog.Level) bool {
	return l >= Level()
}

// Log formats msg once and hands it to every registered sink.
func Log(level slog.Level, msg string) {
	if !Enabled(level) {
		return
	}
	dispatch(level.String() + " " + msg)
}

func Logf(level slog.Level, format string, args ...any) {
	if !Enabled(level) {
		return
	}
	dispatch(level.String() + " " + fmt.Sprintf(format, args...))
}

func dispatch(line string) {
	for _, s := range current.Load().sinks {
		s.Log(line)
	}
}
