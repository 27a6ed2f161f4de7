// internal/datafile/file.go
package datafile

import (
	"fmt"

	"github.com/tamzrod/datalogger/internal/convert"
	"github.com/tamzrod/datalogger/internal/errs"
	"github.com/tamzrod/datalogger/internal/stream"
)

var (
	ErrFull        = fmt.Errorf("%w: file full", errs.ErrCapacity)
	ErrCorrupt     = fmt.Errorf("%w: corrupt file header", errs.ErrValidation)
	ErrVersion     = fmt.Errorf("%w: unsupported file version", errs.ErrValidation)
	ErrShortHeader = fmt.Errorf("%w: short file header", errs.ErrValidation)
	ErrBadSize     = fmt.Errorf("%w: invalid file size", errs.ErrValidation)
	ErrRecordRange = fmt.Errorf("%w: record index out of range", errs.ErrValidation)
)

// File is a fixed-capacity, append-only run of f32 records behind a Header.
//
// Add updates the header in memory only. Commit writes it into the stream
// and Flush additionally flushes the stream. Every Add also clears the next
// record slot, so after an unclean shutdown Load can recover appends whose
// header update never reached the device: it counts forward from the stored
// count up to the first erased (all 0x00 or all 0xFF) record. A sample whose
// encoding is all zero bits (+0.0) ends that scan, so appends following it
// are only recovered once a header has been committed past them.
type File struct {
	stream    stream.Stream
	offset    uint32
	header    Header
	dirty     bool
	recovered int
	scratch   []byte
}

// Init writes a fresh header for a file of size record bytes at offset.
func Init(s stream.Stream, offset uint32, size int16) (*File, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	if uint64(offset)+HeaderSize+uint64(size) > uint64(s.Size()) {
		return nil, fmt.Errorf("%w: region %d+%d exceeds stream of %d bytes",
			stream.ErrOutOfRange, offset, HeaderSize+int(size), s.Size())
	}
	f := &File{
		stream: s,
		offset: offset,
		header: Header{Version: CurrentVersion, Size: size},
	}

	var buf [HeaderSize + RecordSize]byte
	f.header.Encode(buf[:HeaderSize])
	n := HeaderSize
	if size >= RecordSize {
		n += RecordSize // terminator for the recovery scan
	}
	if err := s.Write(buf[:n], offset); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads and validates the header at offset, then runs the recovery scan.
func Load(s stream.Stream, offset uint32) (*File, error) {
	var buf [HeaderSize]byte
	n, err := s.Read(buf[:], offset)
	if n != HeaderSize {
		if err == nil {
			err = ErrShortHeader
		}
		return nil, fmt.Errorf("%w: read %d of %d bytes at %d: %w", ErrShortHeader, n, HeaderSize, offset, err)
	}

	f := &File{stream: s, offset: offset}
	f.header.Decode(buf[:])
	if err := f.header.Validate(); err != nil {
		return nil, err
	}
	if uint64(offset)+HeaderSize+uint64(f.header.Size) > uint64(s.Size()) {
		return nil, fmt.Errorf("%w: region %d+%d exceeds stream", ErrCorrupt, offset, f.header.Size)
	}
	if err := f.recover(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *File) recover() error {
	stored := int(f.header.NumRecords)
	n := stored
	for n < f.header.Capacity() {
		rec := f.buffer(RecordSize)
		if _, err := f.stream.Read(rec, f.recordOffset(n)); err != nil {
			return err
		}
		if erased(rec) {
			break
		}
		n++
	}
	if n > stored {
		f.header.NumRecords = int16(n)
		f.recovered = n - stored
		f.dirty = true
	}
	return nil
}

func erased(rec []byte) bool {
	zero, ones := true, true
	for _, b := range rec {
		zero = zero && b == 0x00
		ones = ones && b == 0xFF
	}
	return zero || ones
}

// Add appends one record. On error neither the in-memory count nor the
// stream contents change.
func (f *File) Add(v float32) error {
	one := [1]float32{v}
	return f.AddAll(one[:])
}

// AddAll appends vals and the following terminator in a single stream
// write, so either every value is appended or none is. A batch that does
// not fit fails with ErrFull and appends nothing.
func (f *File) AddAll(vals []float32) error {
	if len(vals) == 0 {
		return nil
	}
	n := int(f.header.NumRecords)
	if (n+len(vals))*RecordSize > int(f.header.Size) {
		return ErrFull
	}

	w := len(vals) * RecordSize
	term := (n+len(vals)+1)*RecordSize <= int(f.header.Size)
	if term {
		w += RecordSize
	}
	buf := f.buffer(w)
	for i, v := range vals {
		convert.PutFloat32(buf[i*RecordSize:], v)
	}
	if term {
		clear(buf[len(vals)*RecordSize:])
	}
	if err := f.stream.Write(buf, f.recordOffset(n)); err != nil {
		return err
	}
	f.header.NumRecords += int16(len(vals))
	f.dirty = true
	return nil
}

// Reserve sizes the append buffer for batches of up to n values so later
// appends do not allocate.
func (f *File) Reserve(n int) {
	f.buffer((n + 1) * RecordSize)
}

func (f *File) buffer(w int) []byte {
	if cap(f.scratch) < w {
		f.scratch = make([]byte, w)
	}
	return f.scratch[:w]
}

// Commit writes the in-memory header into the stream if it changed.
func (f *File) Commit() error {
	if !f.dirty {
		return nil
	}
	var buf [HeaderSize]byte
	f.header.Encode(buf[:])
	if err := f.stream.Write(buf[:], f.offset); err != nil {
		return err
	}
	f.dirty = false
	return nil
}

// Flush commits the header and flushes the underlying stream.
func (f *File) Flush() error {
	if err := f.Commit(); err != nil {
		return err
	}
	return f.stream.Flush()
}

// Record reads record i.
func (f *File) Record(i int) (float32, error) {
	if i < 0 || i >= int(f.header.NumRecords) {
		return 0, fmt.Errorf("%w: %d of %d", ErrRecordRange, i, f.header.NumRecords)
	}
	var rec [RecordSize]byte
	if _, err := f.stream.Read(rec[:], f.recordOffset(i)); err != nil {
		return 0, err
	}
	return convert.Float32(rec[:]), nil
}

// Records fills dst with records from the start and returns how many were read.
func (f *File) Records(dst []float32) (int, error) {
	n := len(dst)
	if c := int(f.header.NumRecords); n > c {
		n = c
	}
	var rec [RecordSize]byte
	for i := 0; i < n; i++ {
		if _, err := f.stream.Read(rec[:], f.recordOffset(i)); err != nil {
			return i, err
		}
		dst[i] = convert.Float32(rec[:])
	}
	return n, nil
}

func (f *File) recordOffset(i int) uint32 {
	return f.offset + HeaderSize + uint32(i)*RecordSize
}

// Size returns the record region size in bytes.
func (f *File) Size() int32     { return int32(f.header.Size) }
func (f *File) NumRecords() int { return int(f.header.NumRecords) }
func (f *File) Capacity() int   { return f.header.Capacity() }
func (f *File) Offset() uint32  { return f.offset }
func (f *File) Header() Header  { return f.header }
func (f *File) Dirty() bool     { return f.dirty }
func (f *File) Full() bool      { return (int(f.header.NumRecords)+1)*RecordSize > int(f.header.Size) }
func (f *File) Recovered() int  { return f.recovered }
func (f *File) End() uint32     { return f.offset + HeaderSize + uint32(f.header.Size) }
