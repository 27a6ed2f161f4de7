// internal/datafile/header.go
package datafile

import (
	"fmt"

	"github.com/tamzrod/datalogger/internal/convert"
)

const (
	// HeaderSize is the on-disk size of Header.
	HeaderSize = 8

	// RecordSize is the size of one f32 record.
	RecordSize = 4

	// CurrentVersion is written by Init and required by Load.
	CurrentVersion int32 = 1
)

// Header is stored at the start of every file:
//
//	0..3  version      i32 LE
//	4..5  size         i16 LE, record region bytes, header excluded
//	6..7  num_records  i16 LE
type Header struct {
	Version    int32
	Size       int16
	NumRecords int16
}

func (h *Header) Encode(dst []byte) {
	convert.PutInt32(dst[0:4], h.Version)
	convert.PutInt16(dst[4:6], h.Size)
	convert.PutInt16(dst[6:8], h.NumRecords)
}

func (h *Header) Decode(src []byte) {
	h.Version = convert.Int32(src[0:4])
	h.Size = convert.Int16(src[4:6])
	h.NumRecords = convert.Int16(src[6:8])
}

// Capacity is the number of whole records the region holds.
func (h *Header) Capacity() int {
	return int(h.Size) / RecordSize
}

func (h *Header) Validate() error {
	if h.Version != CurrentVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrVersion, h.Version, CurrentVersion)
	}
	if h.Size < 0 || h.NumRecords < 0 {
		return fmt.Errorf("%w: negative size %d or count %d", ErrCorrupt, h.Size, h.NumRecords)
	}
	if int(h.NumRecords)*RecordSize > int(h.Size) {
		return fmt.Errorf("%w: %d records do not fit in %d bytes", ErrCorrupt, h.NumRecords, h.Size)
	}
	return nil
}
