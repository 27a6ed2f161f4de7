// internal/blockdev/memory.go
package blockdev

// Memory is a RAM-backed device. Its contents survive as long as the value
// does, which lets tests "reboot" by building a new stream over it.
type Memory struct {
	pageSize int
	pages    uint32
	data     []byte
}

// NewMemory allocates a device filled with the erase value.
func NewMemory(pageSize int, pageCount uint32, erase byte) (*Memory, error) {
	if err := checkGeometry(pageSize, pageCount); err != nil {
		return nil, err
	}
	data := make([]byte, pageSize*int(pageCount))
	if erase != 0 {
		for i := range data {
			data[i] = erase
		}
	}
	return &Memory{pageSize: pageSize, pages: pageCount, data: data}, nil
}

// PageSize returns the page size in bytes.
func (m *Memory) PageSize() int { return m.pageSize }

// PageCount returns the number of pages.
func (m *Memory) PageCount() uint32 { return m.pages }

// ReadPage copies page idx into buf.
func (m *Memory) ReadPage(idx uint32, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	off := int(idx) * m.pageSize
	copy(buf, m.data[off:off+m.pageSize])
	return nil
}

// WritePage replaces page idx with buf.
func (m *Memory) WritePage(idx uint32, buf []byte) error {
	if err := checkAccess(m, idx, buf); err != nil {
		return err
	}
	off := int(idx) * m.pageSize
	copy(m.data[off:off+m.pageSize], buf)
	return nil
}

// Bytes exposes the raw image. Mutating it bypasses any stream cache.
func (m *Memory) Bytes() []byte { return m.data }
