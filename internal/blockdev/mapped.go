// internal/blockdev/mapped.go
package blockdev

import (
	"fmt"
	"os"
)

// Mapped exposes a memory-mapped image file as a device. Page writes are
// plain copies into the mapping; Sync flushes them to the file.
type Mapped struct {
	f        *os.File
	data     []byte
	pageSize int
	pages    uint32
}

// OpenMapped opens or creates path, grows it to full capacity and maps it shared.
func OpenMapped(path string, pageSize int, pageCount uint32) (*Mapped, error) {
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
	data, err := mmap(f, int(size))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("blockdev: mmap %s: %w", path, err)
	}
	return &Mapped{f: f, data: data, pageSize: pageSize, pages: pageCount}, nil
}

// PageSize returns the page size in bytes.
func (m *Mapped) PageSize() int { return m.pageSize }

// PageCount returns the number of pages.
func (m *Mapped) PageCount() uint32 { return m.pages }

// ReadPage copies page idx into buf.
func (m *Mapped) ReadPage(idx uint32, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	off := int(idx) * m.pageSize
	copy(buf, m.data[off:off+m.pageSize])
	return nil
}

// WritePage replaces page idx with buf.
func (m *Mapped) WritePage(idx uint32, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	off := int(idx) * m.pageSize
	copy(m.data[off:off+m.pageSize], buf)
	return nil
}

// Sync flushes written pages to stable storage.
func (m *Mapped) Sync() error {
	return msync(m.data)
}

// Close syncs, unmaps and closes the backing file.
func (m *Mapped) Close() error {
	if m.data == nil {
		return nil
	}
	serr := msync(m.data)
	uerr := munmap(m.data)
	m.data = nil
	cerr := m.f.Close()
	for _, err := range []error{serr, uerr, cerr} {
		if err != nil {
			return err
		}
	}
	return nil
}
