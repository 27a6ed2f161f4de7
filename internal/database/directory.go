// internal/database/directory.go
package database

import (
	"github.com/tamzrod/datalogger/internal/convert"
)

// On-disk directory at stream offset 0:
//
//	0..3    magic     "SLDB"
//	4..7    version   i32 LE
//	8..9    capacity  u16 LE
//	10..11  count     u16 LE
//	12..    capacity * Entry
//
// Entry (16 bytes):
//
//	0..7    identifier, NUL padded
//	8..11   file_offset  i32 LE
//	12..13  file_size    i16 LE
//	14      in_use       u8
//	15      pad
const (
	DirHeaderSize = 12
	EntrySize     = 16

	DirVersion int32 = 1
)

// Magic identifies a formatted device.
var Magic = [4]byte{'S', 'L', 'D', 'B'}

type dirHeader struct {
	magic    [4]byte
	version  int32
	capacity uint16
	count    uint16
}

func (h *dirHeader) encode(dst []byte) {
	copy(dst[0:4], h.magic[:])
	convert.PutInt32(dst[4:8], h.version)
	convert.PutUint16(dst[8:10], h.capacity)
	convert.PutUint16(dst[10:12], h.count)
}

func (h *dirHeader) decode(src []byte) {
	copy(h.magic[:], src[0:4])
	h.version = convert.Int32(src[4:8])
	h.capacity = convert.Uint16(src[8:10])
	h.count = convert.Uint16(src[10:12])
}

// Entry is one directory slot.
type Entry struct {
	ID     ID
	Offset int32
	Size   int16
	InUse  bool
}

// End is the first byte past the file region, header included.
func (e *Entry) End() int64 {
	return int64(e.Offset) + int64(fileHeaderSize) + int64(e.Size)
}

// allocated reports whether the slot ever held a file.
func (e *Entry) allocated() bool {
	return e.InUse || e.Offset != 0
}

func (e *Entry) encode(dst []byte) {
	copy(dst[0:8], e.ID[:])
	convert.PutInt32(dst[8:12], e.Offset)
	convert.PutInt16(dst[12:14], e.Size)
	dst[14] = 0
	if e.InUse {
		dst[14] = 1
	}
	dst[15] = 0
}

func (e *Entry) decode(src []byte) {
	copy(e.ID[:], src[0:8])
	e.Offset = convert.Int32(src[8:12])
	e.Size = convert.Int16(src[12:14])
	e.InUse = src[14] != 0
}

// DirectorySize is the byte length of a directory with the given capacity.
func DirectorySize(capacity uint16) uint32 {
	return DirHeaderSize + uint32(capacity)*EntrySize
}

func entryOffset(i int) uint32 {
	return DirHeaderSize + uint32(i)*EntrySize
}
