// internal/stream/memory.go
package stream

import (
	"fmt"
	"io"
)

// Memory is a RAM-only stream. Flush is a no-op.
type Memory struct {
	data []byte
}

// NewMemory returns a zeroed stream of size bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size is the stream length in bytes.
func (m *Memory) Size() uint32 { return uint32(len(m.data)) }

// Read copies from off into dst; a read past the end is short with io.EOF.
func (m *Memory) Read(dst []byte, off uint32) (int, error) {
	if off >= m.Size() {
		if len(dst) == 0 {
			return 0, nil
		}
		return 0, io.EOF
	}
	n := copy(dst, m.data[off:])
	if n < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// Write copies src to off or fails with ErrOutOfRange.
func (m *Memory) Write(src []byte, off uint32) error {
	if uint64(off)+uint64(len(src)) > uint64(m.Size()) {
		return fmt.Errorf("%w: %d bytes at %d, size %d", ErrOutOfRange, len(src), off, m.Size())
	}
	copy(m.data[off:], src)
	return nil
}

// Flush does nothing; memory is never durable.
func (m *Memory) Flush() error { return nil }
