// internal/blockdev/device_test.go
package blockdev

import (
	"bytes"
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/datalogger/internal/errs"
)

func TestGeometry(t *testing.T) {
	_, err := NewMemory(100, 4, 0)
	assert.ErrorIs(t, err, ErrGeometry)
	_, err = NewMemory(8, 4, 0)
	assert.ErrorIs(t, err, ErrGeometry)
	_, err = NewMemory(256, 0, 0)
	assert.ErrorIs(t, err, ErrGeometry)

	m, err := NewMemory(256, 16, 0xFF)
	require.NoError(t, err)
	assert.Equal(t, uint32(4096), Capacity(m))
}

// exercise runs the common contract against any device.
func exercise(t *testing.T, d Device) {
	t.Helper()
	page := make([]byte, d.PageSize())
	for i := range page {
		page[i] = byte(i)
	}
	require.NoError(t, d.WritePage(1, page))

	got := make([]byte, d.PageSize())
	require.NoError(t, d.ReadPage(1, got))
	assert.Equal(t, page, got)

	err := d.ReadPage(d.PageCount(), got)
	assert.ErrorIs(t, err, ErrPageRange)
	assert.True(t, errors.Is(err, errs.ErrIO))

	assert.ErrorIs(t, d.WritePage(0, page[:3]), ErrPageSize)
}

func TestMemory(t *testing.T) {
	m, err := NewMemory(32, 8, 0xFF)
	require.NoError(t, err)

	buf := make([]byte, 32)
	require.NoError(t, m.ReadPage(0, buf))
	assert.Equal(t, bytes.Repeat([]byte{0xFF}, 32), buf)

	exercise(t, m)
}

func TestFile_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flash.img")

	d, err := OpenFile(path, 64, 8)
	require.NoError(t, err)
	exercise(t, d)
	require.NoError(t, d.Sync())
	require.NoError(t, d.Close())

	ro, err := OpenFileReadOnly(path, 64)
	require.NoError(t, err)
	defer ro.Close()
	assert.Equal(t, uint32(8), ro.PageCount())

	got := make([]byte, 64)
	require.NoError(t, ro.ReadPage(1, got))
	assert.Equal(t, byte(63), got[63])
	assert.ErrorIs(t, ro.WritePage(1, got), ErrReadOnly)
}

func TestMapped(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "plan9" || runtime.GOOS == "js" {
		t.Skip("mmap unsupported")
	}
	path := filepath.Join(t.TempDir(), "flash.img")

	d, err := OpenMapped(path, 64, 8)
	require.NoError(t, err)
	exercise(t, d)
	require.NoError(t, d.Close())

	again, err := OpenFile(path, 64, 8)
	require.NoError(t, err)
	defer again.Close()
	got := make([]byte, 64)
	require.NoError(t, again.ReadPage(1, got))
	assert.Equal(t, byte(10), got[10])
}
