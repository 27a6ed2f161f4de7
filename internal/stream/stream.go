// internal/stream/stream.go
package stream

import (
	"fmt"

	"github.com/tamzrod/datalogger/internal/errs"
)

// Stream is a flat byte space 0..Size().
//
// Read returns the number of bytes read; it is short only at the end of the
// space, in which case the error is io.EOF. Write is all-or-nothing: on error
// no byte of src has been applied. Flush makes every accepted write durable.
type Stream interface {
	Read(dst []byte, off uint32) (int, error)
	Write(src []byte, off uint32) error
	Flush() error
	Size() uint32
}

var (
	ErrOutOfRange = fmt.Errorf("%w: write beyond end of stream", errs.ErrCapacity)

	// ErrSpanTooLarge is returned when a single write touches more than one
	// page beyond the cache size, so it could not be applied atomically.
	ErrSpanTooLarge = fmt.Errorf("%w: write spans more pages than cache slots", errs.ErrCapacity)
)
