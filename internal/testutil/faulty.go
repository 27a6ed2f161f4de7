// internal/testutil/faulty.go
package testutil

import (
	"fmt"

	"github.com/tamzrod/datalogger/internal/blockdev"
	"github.com/tamzrod/datalogger/internal/errs"
)

// FaultyDevice wraps a device and fails page I/O on demand.
type FaultyDevice struct {
	blockdev.Device

	FailReads  bool
	FailWrites bool

	Reads  int
	Writes int
}

func NewFaultyDevice(d blockdev.Device) *FaultyDevice {
	return &FaultyDevice{Device: d}
}

func (f *FaultyDevice) ReadPage(idx uint32, buf []byte) error {
	if f.FailReads {
		return fmt.Errorf("%w: injected read failure on page %d", errs.ErrIO, idx)
	}
	f.Reads++
	return f.Device.ReadPage(idx, buf)
}

func (f *FaultyDevice) WritePage(idx uint32, buf []byte) error {
	if f.FailWrites {
		return fmt.Errorf("%w: injected write failure on page %d", errs.ErrIO, idx)
	}
	f.Writes++
	return f.Device.WritePage(idx, buf)
}
