// internal/database/manager.go
package database

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/tamzrod/datalogger/internal/datafile"
	"github.com/tamzrod/datalogger/internal/errs"
	"github.com/tamzrod/datalogger/internal/stream"
)

const fileHeaderSize = datafile.HeaderSize

// DefaultCapacity is the directory size used when Config.Capacity is zero.
const DefaultCapacity = 16

var (
	ErrNotInitialized = fmt.Errorf("%w: database not initialized", errs.ErrValidation)
	ErrExists         = fmt.Errorf("%w: identifier already exists", errs.ErrValidation)
	ErrNotFound       = fmt.Errorf("%w: identifier not found", errs.ErrValidation)
	ErrDirectoryFull  = fmt.Errorf("%w: directory full", errs.ErrCapacity)
	ErrNoSpace        = fmt.Errorf("%w: no contiguous space", errs.ErrCapacity)
	ErrBadMagic       = fmt.Errorf("%w: directory magic mismatch", errs.ErrValidation)
	ErrVersion        = fmt.Errorf("%w: unsupported directory version", errs.ErrValidation)
	ErrCorrupt        = fmt.Errorf("%w: corrupt directory", errs.ErrValidation)
	ErrBadIdentifier  = fmt.Errorf("%w: invalid identifier", errs.ErrValidation)
	ErrBadSize        = fmt.Errorf("%w: invalid file size", errs.ErrValidation)
)

// Config controls formatting. Capacity is only used when a fresh directory
// is written; an existing directory keeps the capacity it was formatted with.
type Config struct {
	Capacity uint16
}

// Options carries collaborators.
type Options struct {
	Logger *slog.Logger
}

// Manager partitions a stream into named files and keeps the directory at
// offset 0. Files are bump-allocated above the directory; removing a file
// frees its slot but never its byte range. Not safe for concurrent use.
type Manager struct {
	stream  stream.Stream
	logger  *slog.Logger
	ready   bool
	dirty   bool
	header  dirHeader
	entries []Entry
}

func New(s stream.Stream, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "database")
	}
	return &Manager{stream: s, logger: opts.Logger}
}

// Init loads the directory if the magic matches, otherwise formats a new one.
func (m *Manager) Init(cfg Config) error {
	err := m.Load()
	if !errors.Is(err, ErrBadMagic) {
		return err
	}
	m.logger.Info("no directory found, formatting", "capacity", capacityOrDefault(cfg))
	return m.Format(cfg)
}

// Load reads an existing directory and never writes. A stream without one
// fails with ErrBadMagic.
func (m *Manager) Load() error {
	var buf [DirHeaderSize]byte
	n, err := m.stream.Read(buf[:], 0)
	if n != DirHeaderSize {
		if errors.Is(err, errs.ErrIO) {
			return fmt.Errorf("database: read directory header: %w", err)
		}
		return fmt.Errorf("%w: stream too small for a directory (read %d of %d bytes)", ErrNoSpace, n, DirHeaderSize)
	}

	var h dirHeader
	h.decode(buf[:])
	if h.magic != Magic {
		return fmt.Errorf("%w: found %q", ErrBadMagic, h.magic[:])
	}
	return m.load(h)
}

// Format writes an empty directory, discarding any existing one.
func (m *Manager) Format(cfg Config) error {
	capacity := capacityOrDefault(cfg)
	if DirectorySize(capacity) > m.stream.Size() {
		return fmt.Errorf("%w: directory of %d entries needs %d bytes, stream has %d",
			ErrNoSpace, capacity, DirectorySize(capacity), m.stream.Size())
	}

	m.ready = false
	m.header = dirHeader{magic: Magic, version: DirVersion, capacity: capacity}
	m.entries = make([]Entry, capacity)

	if err := m.writeAll(); err != nil {
		m.dirty = true
		return err
	}
	if err := m.stream.Flush(); err != nil {
		return err
	}
	m.ready = true
	return nil
}

func (m *Manager) load(h dirHeader) error {
	if h.version != DirVersion {
		return fmt.Errorf("%w: version %d, want %d", ErrVersion, h.version, DirVersion)
	}
	if DirectorySize(h.capacity) > m.stream.Size() {
		return fmt.Errorf("%w: capacity %d exceeds stream", ErrCorrupt, h.capacity)
	}

	entries := make([]Entry, h.capacity)
	var buf [EntrySize]byte
	for i := range entries {
		if _, err := m.stream.Read(buf[:], entryOffset(i)); err != nil {
			return fmt.Errorf("database: read entry %d: %w", i, err)
		}
		entries[i].decode(buf[:])
	}
	if err := m.validate(h, entries); err != nil {
		return err
	}

	m.header = h
	m.entries = entries
	m.ready = true
	m.logger.Info("directory loaded", "capacity", h.capacity, "files", h.count)
	return nil
}

func (m *Manager) validate(h dirHeader, entries []Entry) error {
	dirEnd := int64(DirectorySize(h.capacity))
	limit := int64(m.stream.Size())
	inUse := 0
	for i := range entries {
		e := &entries[i]
		if !e.InUse {
			continue
		}
		inUse++
		if e.ID.IsZero() {
			return fmt.Errorf("%w: entry %d has empty identifier", ErrCorrupt, i)
		}
		if e.Size < 0 || int64(e.Offset) < dirEnd || e.End() > limit {
			return fmt.Errorf("%w: entry %d (%s) region %d+%d out of bounds",
				ErrCorrupt, i, e.ID, e.Offset, e.Size)
		}
		for j := 0; j < i; j++ {
			o := &entries[j]
			if !o.InUse {
				continue
			}
			if o.ID == e.ID {
				return fmt.Errorf("%w: duplicate identifier %s", ErrCorrupt, e.ID)
			}
			if int64(e.Offset) < o.End() && int64(o.Offset) < e.End() {
				return fmt.Errorf("%w: %s overlaps %s", ErrCorrupt, e.ID, o.ID)
			}
		}
	}
	if inUse != int(h.count) {
		return fmt.Errorf("%w: count %d but %d entries in use", ErrCorrupt, h.count, inUse)
	}
	return nil
}

// Create allocates a new file of size record bytes and persists the directory.
func (m *Manager) Create(id ID, size int16) (*datafile.File, error) {
	if !m.ready {
		return nil, ErrNotInitialized
	}
	if id.IsZero() {
		return nil, ErrBadIdentifier
	}
	if size < 0 {
		return nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	if _, ok := m.find(id); ok {
		return nil, fmt.Errorf("%w: %s", ErrExists, id)
	}
	slotIdx := m.freeSlot()
	if slotIdx < 0 {
		return nil, fmt.Errorf("%w: %d entries", ErrDirectoryFull, len(m.entries))
	}
	offset := m.nextOffset()
	end := offset + fileHeaderSize + int64(size)
	if end > int64(m.stream.Size()) || offset > math.MaxInt32 {
		return nil, fmt.Errorf("%w: need %d bytes at %d, stream has %d",
			ErrNoSpace, fileHeaderSize+int(size), offset, m.stream.Size())
	}

	f, err := datafile.Init(m.stream, uint32(offset), size)
	if err != nil {
		return nil, err
	}

	prev := m.entries[slotIdx]
	m.entries[slotIdx] = Entry{ID: id, Offset: int32(offset), Size: size, InUse: true}
	m.header.count++
	if err := m.persist(slotIdx, prev); err != nil {
		return nil, err
	}
	m.logger.Info("file created", "id", id.String(), "offset", offset, "size", size)
	return f, nil
}

// Open binds a File to an existing entry and loads its header.
func (m *Manager) Open(id ID) (*datafile.File, error) {
	if !m.ready {
		return nil, ErrNotInitialized
	}
	i, ok := m.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e := m.entries[i]
	f, err := datafile.Load(m.stream, uint32(e.Offset))
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", id, err)
	}
	if f.Size() != int32(e.Size) {
		return nil, fmt.Errorf("%w: %s header size %d, directory says %d", ErrCorrupt, id, f.Size(), e.Size)
	}
	if n := f.Recovered(); n > 0 {
		m.logger.Warn("recovered uncommitted records", "id", id.String(), "records", n)
	}
	return f, nil
}

// Remove marks the entry unused. Its byte range is not reused.
func (m *Manager) Remove(id ID) error {
	if !m.ready {
		return ErrNotInitialized
	}
	i, ok := m.find(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := m.entries[i]
	m.entries[i].InUse = false
	m.header.count--
	if err := m.persist(i, prev); err != nil {
		return err
	}
	m.logger.Info("file removed", "id", id.String())
	return nil
}

// Flush rewrites the directory if an earlier rollback could not be applied,
// then flushes the stream.
func (m *Manager) Flush() error {
	if m.dirty {
		if err := m.writeAll(); err != nil {
			return err
		}
		m.dirty = false
	}
	return m.stream.Flush()
}

// persist writes slot i and the header, then flushes. On failure the
// in-memory directory is restored to prev and the stream is rewritten to match.
func (m *Manager) persist(i int, prev Entry) error {
	err := m.writeEntry(i)
	if err == nil {
		err = m.writeHeader()
	}
	if err == nil {
		err = m.stream.Flush()
	}
	if err == nil {
		return nil
	}

	if m.entries[i].InUse && !prev.InUse {
		m.header.count--
	} else if !m.entries[i].InUse && prev.InUse {
		m.header.count++
	}
	m.entries[i] = prev
	if rerr := m.writeEntry(i); rerr != nil {
		m.dirty = true
	} else if rerr := m.writeHeader(); rerr != nil {
		m.dirty = true
	}
	m.logger.Error("directory update failed", "slot", i, "error", err)
	return err
}

func (m *Manager) writeAll() error {
	if err := m.writeHeader(); err != nil {
		return err
	}
	for i := range m.entries {
		if err := m.writeEntry(i); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) writeHeader() error {
	var buf [DirHeaderSize]byte
	m.header.encode(buf[:])
	return m.stream.Write(buf[:], 0)
}

func (m *Manager) writeEntry(i int) error {
	var buf [EntrySize]byte
	m.entries[i].encode(buf[:])
	return m.stream.Write(buf[:], entryOffset(i))
}

func (m *Manager) find(id ID) (int, bool) {
	for i := range m.entries {
		if m.entries[i].InUse && m.entries[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

func (m *Manager) freeSlot() int {
	for i := range m.entries {
		if !m.entries[i].InUse {
			return i
		}
	}
	return -1
}

// nextOffset is the high-water mark: the end of the directory or of any
// region ever allocated, whichever is larger. Removed entries keep their
// region until their slot is reused, and a reused slot always moves higher.
func (m *Manager) nextOffset() int64 {
	next := int64(DirectorySize(m.header.capacity))
	for i := range m.entries {
		e := &m.entries[i]
		if e.allocated() && e.End() > next {
			next = e.End()
		}
	}
	return next
}

// Lookup returns the in-use entry for id.
func (m *Manager) Lookup(id ID) (Entry, bool) {
	i, ok := m.find(id)
	if !ok {
		return Entry{}, false
	}
	return m.entries[i], true
}

// Entries returns in-use entries in slot order.
func (m *Manager) Entries() []Entry {
	out := make([]Entry, 0, m.header.count)
	for _, e := range m.entries {
		if e.InUse {
			out = append(out, e)
		}
	}
	return out
}

func (m *Manager) Initialized() bool { return m.ready }
func (m *Manager) Count() int        { return int(m.header.count) }
func (m *Manager) Capacity() int     { return int(m.header.capacity) }

// Free is the number of bytes left above the high-water mark.
func (m *Manager) Free() int64 {
	if !m.ready {
		return 0
	}
	return int64(m.stream.Size()) - m.nextOffset()
}

func capacityOrDefault(cfg Config) uint16 {
	if cfg.Capacity == 0 {
		return DefaultCapacity
	}
	return cfg.Capacity
}
