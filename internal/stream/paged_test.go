// internal/stream/paged_test.go
package stream

import (
	"bytes"
	"expvar"
	"io"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/datalogger/internal/blockdev"
	"github.com/tamzrod/datalogger/internal/errs"
	"github.com/tamzrod/datalogger/internal/testutil"
)

func newDevice(t *testing.T, pageSize int, pages uint32) *blockdev.Memory {
	t.Helper()
	d, err := blockdev.NewMemory(pageSize, pages, 0)
	require.NoError(t, err)
	return d
}

func newPaged(t *testing.T, dev blockdev.Device, slots int) *Paged {
	t.Helper()
	p, err := NewPaged(dev, Options{Slots: slots})
	require.NoError(t, err)
	return p
}

func TestPaged_PageBoundaryWrite(t *testing.T) {
	dev := newDevice(t, 16, 8)
	p := newPaged(t, dev, 2)

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, p.Write(want, 12))
	require.NoError(t, p.Flush())

	got := make([]byte, 8)
	n, err := p.Read(got, 12)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, want, got)

	// The bytes reached both device pages.
	assert.Equal(t, want[:4], dev.Bytes()[12:16])
	assert.Equal(t, want[4:], dev.Bytes()[16:20])

	// A fresh stream over the same device sees them too.
	again := newPaged(t, dev, 2)
	got2 := make([]byte, 8)
	_, err = again.Read(got2, 12)
	require.NoError(t, err)
	assert.Equal(t, want, got2)
}

func TestPaged_WritesInvisibleOnDeviceUntilFlush(t *testing.T) {
	dev := newDevice(t, 16, 8)
	p := newPaged(t, dev, 4)

	require.NoError(t, p.Write([]byte{0xAA}, 3))
	assert.Equal(t, byte(0), dev.Bytes()[3])
	assert.Equal(t, 1, p.Dirty())

	require.NoError(t, p.Flush())
	assert.Equal(t, byte(0xAA), dev.Bytes()[3])
	assert.Equal(t, 0, p.Dirty())
}

func TestPaged_EvictionWritesBackDirtyVictim(t *testing.T) {
	dev := newDevice(t, 16, 8)
	p := newPaged(t, dev, 1)

	require.NoError(t, p.Write([]byte{9}, 0))
	// Touching page 2 evicts page 0.
	require.NoError(t, p.Write([]byte{7}, 32))
	assert.Equal(t, byte(9), dev.Bytes()[0])
	assert.Equal(t, byte(0), dev.Bytes()[32])

	st := p.Stats()
	assert.Equal(t, uint64(1), st.Evictions)
	assert.Equal(t, uint64(1), st.Writebacks)
}

func TestPaged_LRUVictim(t *testing.T) {
	dev := newDevice(t, 16, 8)
	p := newPaged(t, dev, 2)
	buf := make([]byte, 1)

	_, _ = p.Read(buf, 0)  // page 0
	_, _ = p.Read(buf, 16) // page 1
	_, _ = p.Read(buf, 0)  // page 0 most recent
	_, _ = p.Read(buf, 32) // evicts page 1

	assert.GreaterOrEqual(t, p.lookup(0), 0)
	assert.Equal(t, -1, p.lookup(1))
	assert.GreaterOrEqual(t, p.lookup(2), 0)
}

func TestPaged_Fidelity(t *testing.T) {
	const (
		pageSize = 32
		pages    = 16
	)
	dev := newDevice(t, pageSize, pages)
	p := newPaged(t, dev, 3)
	rng := rand.New(rand.NewSource(42))

	shadow := make([]byte, pageSize*pages)
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(pageSize)
		off := rng.Intn(len(shadow) - n)
		buf := make([]byte, n)
		rng.Read(buf)
		require.NoError(t, p.Write(buf, uint32(off)))
		copy(shadow[off:], buf)

		if i%97 == 0 {
			got := make([]byte, len(shadow))
			_, err := p.Read(got, 0)
			require.NoError(t, err)
			require.Equal(t, shadow, got)
		}
	}
	require.NoError(t, p.Flush())
	assert.Equal(t, shadow, dev.Bytes())

	reopened := newPaged(t, dev, 2)
	got := make([]byte, len(shadow))
	n, err := reopened.Read(got, 0)
	require.NoError(t, err)
	assert.Equal(t, len(shadow), n)
	assert.Equal(t, shadow, got)
}

func TestPaged_ShortReadAtEnd(t *testing.T) {
	p := newPaged(t, newDevice(t, 16, 2), 2)

	buf := make([]byte, 8)
	n, err := p.Read(buf, 28)
	assert.Equal(t, 4, n)
	assert.ErrorIs(t, err, io.EOF)

	n, err = p.Read(buf, 32)
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, io.EOF)
}

func TestPaged_WriteOutOfRange(t *testing.T) {
	dev := newDevice(t, 16, 2)
	p := newPaged(t, dev, 2)

	err := p.Write([]byte{1, 2, 3, 4}, 30)
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, err, errs.ErrCapacity)
	assert.Equal(t, 0, p.Dirty())
}

func TestPaged_SpanTooLarge(t *testing.T) {
	p := newPaged(t, newDevice(t, 16, 8), 2)

	err := p.Write(make([]byte, 56), 0) // pages 0..3
	assert.ErrorIs(t, err, ErrSpanTooLarge)
	assert.Equal(t, 0, p.Dirty())
}

func TestPaged_SingleSlotBoundaryWrite(t *testing.T) {
	dev := newDevice(t, 16, 8)
	p := newPaged(t, dev, 1)

	src := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	require.NoError(t, p.Write(src, 12))

	got := make([]byte, 8)
	_, err := p.Read(got, 12)
	require.NoError(t, err)
	assert.Equal(t, src, got)

	require.NoError(t, p.Flush())
	assert.Equal(t, src, dev.Bytes()[12:20])
}

func TestPaged_StagedWriteUsesResidentPage(t *testing.T) {
	dev := newDevice(t, 16, 8)
	p := newPaged(t, dev, 1)

	// Page 1 resident and dirty; page 0 goes through the stage.
	require.NoError(t, p.Write([]byte{9}, 20))
	require.NoError(t, p.Write([]byte{1, 2, 3, 4, 5, 6}, 13))

	assert.Equal(t, []byte{1, 2, 3}, dev.Bytes()[13:16], "staged page written through")
	assert.Equal(t, byte(0), dev.Bytes()[16], "cached page not yet flushed")
	assert.Equal(t, 1, p.Dirty())

	got := make([]byte, 8)
	_, err := p.Read(got, 13)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4, 5, 6, 0, 9}, got)
}

func TestPaged_StagedWriteIsAtomicOnFailure(t *testing.T) {
	mem := newDevice(t, 16, 8)
	dev := testutil.NewFaultyDevice(mem)
	p := newPaged(t, dev, 1)

	require.NoError(t, p.Write([]byte{0x42}, 0))
	dev.FailWrites = true

	err := p.Write([]byte{5, 5, 5, 5, 5, 5, 5, 5}, 12)
	require.ErrorIs(t, err, errs.ErrIO)

	dev.FailWrites = false
	got := make([]byte, 9)
	_, err = p.Read(got, 11)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 9), got)

	one := make([]byte, 1)
	_, err = p.Read(one, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), one[0])
}

func TestPaged_SingleSlotFidelity(t *testing.T) {
	dev := newDevice(t, 16, 16)
	p := newPaged(t, dev, 1)
	shadow := make([]byte, 256)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(16)
		off := rng.Intn(len(shadow) - n + 1)
		buf := make([]byte, n)
		rng.Read(buf)
		require.NoError(t, p.Write(buf, uint32(off)))
		copy(shadow[off:], buf)
	}

	got := make([]byte, len(shadow))
	_, err := p.Read(got, 0)
	require.NoError(t, err)
	assert.Equal(t, shadow, got)

	require.NoError(t, p.Flush())
	assert.Equal(t, shadow, dev.Bytes())
}

func TestPaged_WriteIsAtomicOnReadFailure(t *testing.T) {
	mem := newDevice(t, 16, 8)
	dev := testutil.NewFaultyDevice(mem)
	p := newPaged(t, dev, 2)

	// Page 0 resident, page 1 not.
	require.NoError(t, p.Write([]byte{1}, 0))
	dev.FailReads = true

	err := p.Write([]byte{5, 5, 5, 5, 5, 5, 5, 5}, 12)
	require.ErrorIs(t, err, errs.ErrIO)

	dev.FailReads = false
	got := make([]byte, 8)
	_, err = p.Read(got, 12)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, 8), got)

	one := make([]byte, 1)
	_, err = p.Read(one, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(1), one[0])
}

func TestPaged_EvictionFailureKeepsDirtyPage(t *testing.T) {
	mem := newDevice(t, 16, 8)
	dev := testutil.NewFaultyDevice(mem)
	p := newPaged(t, dev, 1)

	require.NoError(t, p.Write([]byte{0x42}, 0))
	dev.FailWrites = true
	require.ErrorIs(t, p.Write([]byte{1}, 16), errs.ErrIO)

	// Page 0 is still cached and dirty.
	assert.Equal(t, 1, p.Dirty())
	b := make([]byte, 1)
	_, err := p.Read(b, 0)
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), b[0])

	dev.FailWrites = false
	require.NoError(t, p.Write([]byte{1}, 16))
	assert.Equal(t, byte(0x42), mem.Bytes()[0])
}

func TestPaged_FlushRetries(t *testing.T) {
	mem := newDevice(t, 16, 8)
	dev := testutil.NewFaultyDevice(mem)
	p := newPaged(t, dev, 4)

	require.NoError(t, p.Write(bytes.Repeat([]byte{3}, 20), 10))
	dev.FailWrites = true
	require.Error(t, p.Flush())
	assert.Equal(t, 2, p.Dirty())

	dev.FailWrites = false
	require.NoError(t, p.Flush())
	assert.Equal(t, 0, p.Dirty())
	assert.Equal(t, bytes.Repeat([]byte{3}, 20), mem.Bytes()[10:30])
}

func TestPaged_Metrics(t *testing.T) {
	p := newPaged(t, newDevice(t, 16, 4), 2)
	hits, misses := new(expvar.Int), new(expvar.Int)
	p.SetMetrics(hits, misses)

	b := make([]byte, 1)
	_, _ = p.Read(b, 0)
	_, _ = p.Read(b, 1)
	_, _ = p.Read(b, 2)

	assert.Equal(t, int64(2), hits.Value())
	assert.Equal(t, int64(1), misses.Value())
	assert.Equal(t, uint64(2), p.Stats().Hits)
}

func TestNewPaged_Options(t *testing.T) {
	p, err := NewPaged(newDevice(t, 16, 4), Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultSlots, p.Slots())
	assert.Equal(t, uint32(64), p.Size())

	_, err = NewPaged(newDevice(t, 16, 4), Options{Slots: -1})
	assert.Error(t, err)
}

func TestMemory_Stream(t *testing.T) {
	m := NewMemory(16)
	require.NoError(t, m.Write([]byte{1, 2, 3}, 13))
	assert.ErrorIs(t, m.Write([]byte{1, 2, 3, 4}, 13), ErrOutOfRange)

	buf := make([]byte, 5)
	n, err := m.Read(buf, 13)
	assert.Equal(t, 3, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, []byte{1, 2, 3}, buf[:3])
	assert.NoError(t, m.Flush())
}
