// internal/blockdev/device.go
package blockdev

import (
	"errors"
	"fmt"

	"github.com/tamzrod/datalogger/internal/errs"
)

// Device is page-granular non-volatile storage. Pages are the unit of
// durability; buffers passed to ReadPage/WritePage are exactly PageSize bytes.
type Device interface {
	PageSize() int
	PageCount() uint32
	ReadPage(idx uint32, buf []byte) error
	WritePage(idx uint32, buf []byte) error
}

// Syncer is implemented by devices whose writes need an explicit barrier.
type Syncer interface {
	Sync() error
}

var (
	ErrPageRange = fmt.Errorf("%w: page index out of range", errs.ErrIO)
	ErrPageSize  = fmt.Errorf("%w: buffer is not one page", errs.ErrIO)
	ErrGeometry  = errors.New("blockdev: page size must be a power of two >= 16 and page count > 0")
	ErrReadOnly  = fmt.Errorf("%w: device is read-only", errs.ErrIO)
)

// Capacity returns the device size in bytes.
func Capacity(d Device) uint32 {
	return uint32(d.PageSize()) * d.PageCount()
}

func checkGeometry(pageSize int, pageCount uint32) error {
	if pageSize < 16 || pageSize&(pageSize-1) != 0 || pageCount == 0 {
		return ErrGeometry
	}
	if uint64(pageSize)*uint64(pageCount) > 1<<31-1 {
		return fmt.Errorf("%w: capacity exceeds int32 offsets", ErrGeometry)
	}
	return nil
}

func checkAccess(d Device, idx uint32, buf []byte) error {
	if idx >= d.PageCount() {
		return fmt.Errorf("%w: page %d of %d", ErrPageRange, idx, d.PageCount())
	}
	if len(buf) != d.PageSize() {
		return fmt.Errorf("%w: got %d bytes, page is %d", ErrPageSize, len(buf), d.PageSize())
	}
	return nil
}
