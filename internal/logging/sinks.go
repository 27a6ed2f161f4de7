// internal/logging/sinks.go
package logging

import (
	"io"
	"sync"
)

// WriterSink writes each line followed by a newline, like a serial console.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Log(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = io.WriteString(s.w, line)
	_, _ = io.WriteString(s.w, "\n")
}

// FuncSink forwards lines to a function.
type FuncSink func(line string)

func (f FuncSink) Log(line string) { f(line) }

// RingSink keeps the last N lines in memory. Storage is sized at construction.
type RingSink struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
}

func NewRingSink(capacity int) *RingSink {
	if capacity < 1 {
		capacity = 1
	}
	return &RingSink{lines: make([]string, capacity)}
}

func (r *RingSink) Log(line string) {
	r.mu.Lock()
	r.lines[r.next] = line
	r.next++
	if r.next == len(r.lines) {
		r.next = 0
		r.full = true
	}
	r.mu.Unlock()
}

// Lines returns buffered lines, oldest first.
func (r *RingSink) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]string(nil), r.lines[:r.next]...)
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.next:]...)
	out = append(out, r.lines[:r.next]...)
	return out
}

func (r *RingSink) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.lines)
	}
	return r.next
}
