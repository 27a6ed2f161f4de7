// internal/blockdev/file.go
package blockdev

import (
	"fmt"
	"io"
	"os"

	"github.com/tamzrod/datalogger/internal/errs"
)

// File stores pages in a regular file using positioned I/O.
// The file is grown to full capacity on open; new space reads as zero.
type File struct {
	f        *os.File
	pageSize int
	pages    uint32
	readOnly bool
}

// OpenFile opens or creates path as a device of the given geometry.
func OpenFile(path string, pageSize int, pageCount uint32) (*File, error) {
	if err := checkGeometry(pageSize, pageCount); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}
	size := int64(pageSize) * int64(pageCount)
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: stat %s: %w", path, err)
	}
	if st.Size() < size {
		if err := f.Truncate(size); err != nil {
			f.Close()
			return nil, fmt.Errorf("blockdev: grow %s: %w", path, err)
		}
	}
	return &File{f: f, pageSize: pageSize, pages: pageCount}, nil
}

// OpenFileReadOnly opens an existing image. The page count is derived from its size.
func OpenFileReadOnly(path string, pageSize int) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("blockdev: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: stat %s: %w", path, err)
	}
	pages := uint32(st.Size() / int64(pageSize))
	if err := checkGeometry(pageSize, pages); err != nil {
		f.Close()
		return nil, err
	}
	return &File{f: f, pageSize: pageSize, pages: pages, readOnly: true}, nil
}

// PageSize returns the page size in bytes.
func (d *File) PageSize() int { return d.pageSize }

// PageCount returns the number of pages.
func (d *File) PageCount() uint32 { return d.pages }

// ReadPage copies page idx into buf.
func (d *File) ReadPage(idx uint32, buf []byte) error {
	if err := checkAccess(d, idx, buf); err != nil {
		return err
	}
	n, err := d.f.ReadAt(buf, int64(idx)*int64(d.pageSize))
	if err == io.EOF && n == len(buf) {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("%w: read page %d: %v", errs.ErrIO, idx, err)
	}
	return nil
}

// WritePage replaces page idx with buf. Read-only devices fail with ErrReadOnly.
func (d *File) WritePage(idx uint32, buf []byte) error {
	if d.readOnly {
		return ErrReadOnly
	}
	if err := checkAccess(d, idx, buf); err != nil {
		return err
	}
	if _, err := d.f.WriteAt(buf, int64(idx)*int64(d.pageSize)); err != nil {
		return fmt.Errorf("%w: write page %d: %v", errs.ErrIO, idx, err)
	}
	return nil
}

// Sync flushes written pages to stable storage.
func (d *File) Sync() error {
	if d.readOnly {
		return nil
	}
	if err := d.f.Sync(); err != nil {
		return fmt.Errorf("%w: sync: %v", errs.ErrIO, err)
	}
	return nil
}

// Close closes the backing file.
func (d *File) Close() error {
	return d.f.Close()
}
