// internal/errs/errs.go
package errs

import "errors"

// Error kinds. Every failure returned by the storage and sensor layers
// wraps exactly one of these; callers classify with errors.Is.
var (
	// ErrIO means the block device refused a page read or write.
	ErrIO = errors.New("i/o failure")

	// ErrCapacity means a file, the directory or the allocator is full.
	ErrCapacity = errors.New("capacity exhausted")

	// ErrValidation means persisted or supplied data violated the format.
	ErrValidation = errors.New("validation failed")
)

// Kind returns the kind sentinel wrapped by err, or nil.
func Kind(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrIO):
		return ErrIO
	case errors.Is(err, ErrCapacity):
		return ErrCapacity
	case errors.Is(err, ErrValidation):
		return ErrValidation
	}
	return nil
}
