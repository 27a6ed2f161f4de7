// internal/stream/paged.go
package stream

import (
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"math/bits"

	"github.com/tamzrod/datalogger/internal/blockdev"
)

// DefaultSlots is the cache size used when Options.Slots is zero.
const DefaultSlots = 4

// Options configures a Paged stream.
type Options struct {
	Slots  int
	Logger *slog.Logger
}

// Stats are cumulative cache counters.
type Stats struct {
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

type slot struct {
	page   uint32
	valid  bool
	dirty  bool
	pinned bool
	used   uint64
	data   []byte
}

// Paged is a byte-addressable stream over a block device with a small
// fully-associative LRU page cache. It is not safe for concurrent use.
type Paged struct {
	dev      blockdev.Device
	pageSize uint32
	shift    uint
	size     uint32
	slots    []slot
	stage    []byte // one page, for writes touching one page more than slots
	clock    uint64
	stats    Stats
	logger   *slog.Logger

	// Optional expvar mirrors of stats.
	hits   *expvar.Int
	misses *expvar.Int
}

var _ Stream = (*Paged)(nil)

// NewPaged builds a stream over dev. All slot memory is allocated here.
func NewPaged(dev blockdev.Device, opts Options) (*Paged, error) {
	if opts.Slots == 0 {
		opts.Slots = DefaultSlots
	}
	if opts.Slots < 1 {
		return nil, errors.New("stream: cache needs at least one slot")
	}
	ps := dev.PageSize()
	if ps <= 0 || ps&(ps-1) != 0 {
		return nil, fmt.Errorf("stream: page size %d is not a power of two", ps)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "paged_stream")
	}

	backing := make([]byte, (opts.Slots+1)*ps)
	slots := make([]slot, opts.Slots)
	for i := range slots {
		slots[i].data = backing[i*ps : (i+1)*ps : (i+1)*ps]
	}
	return &Paged{
		dev:      dev,
		pageSize: uint32(ps),
		shift:    uint(bits.TrailingZeros32(uint32(ps))),
		size:     blockdev.Capacity(dev),
		slots:    slots,
		stage:    backing[opts.Slots*ps:],
		logger:   opts.Logger,
	}, nil
}

// Size is the device capacity in bytes.
func (p *Paged) Size() uint32 { return p.size }

// PageSize is the device page size in bytes.
func (p *Paged) PageSize() uint32 { return p.pageSize }

// Slots is the number of cached pages.
func (p *Paged) Slots() int { return len(p.slots) }

// Stats returns a snapshot of the cache counters.
func (p *Paged) Stats() Stats { return p.stats }

// SetMetrics mirrors hit/miss counts into expvar integers.
func (p *Paged) SetMetrics(hits, misses *expvar.Int) {
	p.hits = hits
	p.misses = misses
}

// Dirty reports the number of cached pages not yet written back.
func (p *Paged) Dirty() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].valid && p.slots[i].dirty {
			n++
		}
	}
	return n
}

// Read copies from off into dst through the cache. A read running past the
// end is short and returns io.EOF.
func (p *Paged) Read(dst []byte, off uint32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	if off >= p.size {
		return 0, io.EOF
	}
	want := len(dst)
	if rem := p.size - off; uint64(want) > uint64(rem) {
		want = int(rem)
	}

	n := 0
	for n < want {
		pos := off + uint32(n)
		page := pos >> p.shift
		inPage := pos & (p.pageSize - 1)
		i, err := p.acquire(page)
		if err != nil {
			return n, err
		}
		n += copy(dst[n:want], p.slots[i].data[inPage:])
	}
	if want < len(dst) {
		return n, io.EOF
	}
	return n, nil
}

// Write caches src at off. Every page the write touches is made resident
// before any byte is copied, so a device failure leaves the stream unchanged.
// A write may touch one page more than there are slots; that page is staged
// and written through to the device before the cached pages change.
func (p *Paged) Write(src []byte, off uint32) error {
	if len(src) == 0 {
		return nil
	}
	end := uint64(off) + uint64(len(src))
	if end > uint64(p.size) {
		return fmt.Errorf("%w: %d bytes at %d, size %d", ErrOutOfRange, len(src), off, p.size)
	}
	first := off >> p.shift
	last := uint32((end - 1) >> p.shift)
	span := int(last - first + 1)
	if span > len(p.slots)+1 {
		return fmt.Errorf("%w: pages %d..%d with %d slots", ErrSpanTooLarge, first, last, len(p.slots))
	}

	// With one page too many, the first non-resident page bypasses the cache.
	staged, stage := uint32(0), span > len(p.slots)
	if stage {
		for page := first; page <= last; page++ {
			if p.lookup(page) < 0 {
				staged = page
				break
			}
		}
	}

	for page := first; page <= last; page++ {
		if stage && page == staged {
			continue
		}
		i, err := p.acquire(page)
		if err != nil {
			p.unpin()
			return err
		}
		p.slots[i].pinned = true
	}

	if stage {
		if err := p.writeThrough(staged, src, off); err != nil {
			p.unpin()
			return err
		}
	}

	for page := first; page <= last; page++ {
		if stage && page == staged {
			continue
		}
		s := &p.slots[p.lookup(page)]
		inPage, lo, hi := p.segment(page, off, len(src))
		copy(s.data[inPage:], src[lo:hi])
		s.dirty = true
		s.pinned = false
	}
	return nil
}

// writeThrough patches page on the device with its part of src, going
// through the stage buffer. The page must not be resident.
func (p *Paged) writeThrough(page uint32, src []byte, off uint32) error {
	p.stats.Misses++
	if p.misses != nil {
		p.misses.Add(1)
	}
	if err := p.dev.ReadPage(page, p.stage); err != nil {
		p.logger.Error("page read failed", "page", page, "error", err)
		return err
	}
	inPage, lo, hi := p.segment(page, off, len(src))
	copy(p.stage[inPage:], src[lo:hi])
	if err := p.dev.WritePage(page, p.stage); err != nil {
		p.logger.Error("write-through failed", "page", page, "error", err)
		return err
	}
	p.stats.Writebacks++
	return nil
}

// segment maps the part of an n-byte write at off that falls in page to an
// offset within the page and a src range.
func (p *Paged) segment(page, off uint32, n int) (inPage uint32, lo, hi int) {
	start := page << p.shift
	if start < off {
		inPage = off - start
	} else {
		lo = int(start - off)
	}
	hi = lo + int(p.pageSize-inPage)
	if hi > n {
		hi = n
	}
	return inPage, lo, hi
}

// Flush writes dirty pages back in ascending page order, then syncs the
// device if it supports it. Pages that fail stay dirty; calling Flush again
// retries them.
func (p *Paged) Flush() error {
	var prev uint32
	started := false
	for {
		i := p.nextDirty(prev, started)
		if i < 0 {
			break
		}
		s := &p.slots[i]
		if err := p.dev.WritePage(s.page, s.data); err != nil {
			p.logger.Error("flush failed", "page", s.page, "error", err)
			return err
		}
		s.dirty = false
		p.stats.Writebacks++
		prev, started = s.page, true
	}
	if sy, ok := p.dev.(blockdev.Syncer); ok {
		return sy.Sync()
	}
	return nil
}

// nextDirty returns the dirty slot with the smallest page index greater than
// prev (or any page if !started), or -1.
func (p *Paged) nextDirty(prev uint32, started bool) int {
	best := -1
	for i := range p.slots {
		s := &p.slots[i]
		if !s.valid || !s.dirty || (started && s.page <= prev) {
			continue
		}
		if best < 0 || s.page < p.slots[best].page {
			best = i
		}
	}
	return best
}

func (p *Paged) lookup(page uint32) int {
	for i := range p.slots {
		if p.slots[i].valid && p.slots[i].page == page {
			return i
		}
	}
	return -1
}

// acquire returns the slot holding page, loading it on a miss.
func (p *Paged) acquire(page uint32) (int, error) {
	p.clock++
	if i := p.lookup(page); i >= 0 {
		p.slots[i].used = p.clock
		p.stats.Hits++
		if p.hits != nil {
			p.hits.Add(1)
		}
		return i, nil
	}
	p.stats.Misses++
	if p.misses != nil {
		p.misses.Add(1)
	}

	i := p.victim()
	s := &p.slots[i]
	if s.valid && s.dirty {
		if err := p.dev.WritePage(s.page, s.data); err != nil {
			p.logger.Error("evict failed", "page", s.page, "error", err)
			return -1, err
		}
		s.dirty = false
		p.stats.Writebacks++
	}
	if s.valid {
		p.stats.Evictions++
	}

	s.valid = false
	if err := p.dev.ReadPage(page, s.data); err != nil {
		p.logger.Error("page read failed", "page", page, "error", err)
		return -1, err
	}
	s.page = page
	s.valid = true
	s.used = p.clock
	return i, nil
}

// victim picks an empty slot, else the least recently used unpinned one.
// Write never pins more pages than there are slots, so one always exists.
func (p *Paged) victim() int {
	best := -1
	for i := range p.slots {
		s := &p.slots[i]
		if !s.valid {
			return i
		}
		if s.pinned {
			continue
		}
		if best < 0 || s.used < p.slots[best].used {
			best = i
		}
	}
	return best
}

func (p *Paged) unpin() {
	for i := range p.slots {
		p.slots[i].pinned = false
	}
}
