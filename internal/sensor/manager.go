// internal/sensor/manager.go
package sensor

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/tamzrod/datalogger/internal/database"
	"github.com/tamzrod/datalogger/internal/datafile"
	"github.com/tamzrod/datalogger/internal/errs"
)

var (
	ErrRegistered    = fmt.Errorf("%w: sensor already registered", errs.ErrValidation)
	ErrNotRegistered = fmt.Errorf("%w: sensor not registered", errs.ErrValidation)
	ErrDuplicateID   = fmt.Errorf("%w: identifier already registered", errs.ErrValidation)
	ErrTooMany       = fmt.Errorf("%w: sensor table full", errs.ErrCapacity)
	ErrFileTooSmall  = fmt.Errorf("%w: file smaller than one poll", errs.ErrValidation)
)

// Options tunes the manager. Zero values disable the feature they control.
type Options struct {
	// MaxSensors bounds the sensor table. The table is allocated once.
	MaxSensors int
	// FlushEveryUpdates commits all headers every N updates.
	FlushEveryUpdates int
	// FlushIntervalMs commits all headers once this much tick time passed.
	FlushIntervalMs int32
	Logger          *slog.Logger
}

// Manager polls registered sensors in registration order and appends
// their samples to per-sensor files. Time is driven by Update; the
// manager never reads a clock. Not safe for concurrent use.
type Manager struct {
	db        *database.Manager
	opts      Options
	logger    *slog.Logger
	sensors   []Sensor
	now       int32
	updates   int
	lastFlush int32
}

func NewManager(db *database.Manager, opts Options) *Manager {
	if opts.Logger == nil {
		opts.Logger = slog.Default().With("component", "sensor")
	}
	return &Manager{
		db:      db,
		opts:    opts,
		logger:  opts.Logger,
		sensors: make([]Sensor, 0, opts.MaxSensors),
	}
}

// Add binds s to its file, creating the file on first use, and appends it
// to the polling order. The sensor is first due one interval from now.
func (m *Manager) Add(s Sensor) error {
	b := s.base()
	if b.registered {
		return fmt.Errorf("%w: %s", ErrRegistered, b.cfg.ID)
	}
	if err := b.cfg.Validate(); err != nil {
		return err
	}
	if m.opts.MaxSensors > 0 && len(m.sensors) >= m.opts.MaxSensors {
		return fmt.Errorf("%w: %d sensors", ErrTooMany, m.opts.MaxSensors)
	}
	for _, have := range m.sensors {
		if have.base().cfg.ID == b.cfg.ID {
			return fmt.Errorf("%w: %s", ErrDuplicateID, b.cfg.ID)
		}
	}

	f, err := m.bind(&b.cfg)
	if err != nil {
		return err
	}
	if f.Size() < b.cfg.NumValues*datafile.RecordSize {
		return fmt.Errorf("%w: %s has %d bytes, one poll needs %d",
			ErrFileTooSmall, b.cfg.ID, f.Size(), b.cfg.NumValues*datafile.RecordSize)
	}

	f.Reserve(int(b.cfg.NumValues))
	b.file = f
	b.values = make([]float32, b.cfg.NumValues)
	b.lastPoll = m.now
	b.full = false
	b.registered = true
	m.sensors = append(m.sensors, s)

	m.logger.Info("sensor registered",
		"id", b.cfg.ID.String(),
		"interval_ms", b.cfg.PollIntervalMs,
		"records", f.NumRecords(),
		"capacity", f.Capacity(),
	)
	return nil
}

func (m *Manager) bind(cfg *Config) (*datafile.File, error) {
	f, err := m.db.Open(cfg.ID)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	size := cfg.FileSize()
	if int32(size) != cfg.DBSize {
		m.logger.Warn("db size adjusted", "id", cfg.ID.String(), "requested", cfg.DBSize, "size", size)
	}
	return m.db.Create(cfg.ID, size)
}

// Remove commits the sensor's file and drops it from the polling order.
// The file stays in the directory.
func (m *Manager) Remove(s Sensor) error {
	b := s.base()
	idx := -1
	for i, have := range m.sensors {
		if have.base() == b {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrNotRegistered
	}

	err := b.file.Commit()
	copy(m.sensors[idx:], m.sensors[idx+1:])
	m.sensors[len(m.sensors)-1] = nil
	m.sensors = m.sensors[:len(m.sensors)-1]
	b.registered = false
	b.file = nil
	b.values = nil

	if err != nil {
		m.logger.Error("commit on remove failed", "id", b.cfg.ID.String(), "error", err)
		return err
	}
	m.logger.Info("sensor removed", "id", b.cfg.ID.String())
	return nil
}

// Update advances the tick by elapsedMs and polls every due sensor once.
// Failures are logged and never stop the loop.
func (m *Manager) Update(elapsedMs int32) {
	if elapsedMs > 0 {
		m.now += elapsedMs
	}

	for _, s := range m.sensors {
		b := s.base()
		if m.now-b.lastPoll < b.cfg.PollIntervalMs {
			continue
		}
		m.poll(s, b)
	}

	m.updates++
	if m.flushDue() {
		if err := m.Flush(); err != nil {
			m.logger.Error("periodic flush failed", "error", err)
		}
	}
}

func (m *Manager) poll(s Sensor, b *Base) {
	f := b.file
	if f.NumRecords()+len(b.values) > f.Capacity() {
		if !b.full {
			b.full = true
			m.logger.Warn("file full, sensor no longer logged", "id", b.cfg.ID.String(), "records", f.NumRecords())
		}
		b.lastPoll = m.now
		return
	}

	if !s.Poll(b.values) {
		m.logger.Warn("poll failed", "id", b.cfg.ID.String())
		return
	}
	// One poll is one write: a failed append leaves no partial samples and
	// the sensor is retried on the next update.
	if err := f.AddAll(b.values); err != nil {
		m.logger.Error("append failed", "id", b.cfg.ID.String(), "error", err)
		return
	}
	b.lastPoll = m.now
}

func (m *Manager) flushDue() bool {
	if n := m.opts.FlushEveryUpdates; n > 0 && m.updates%n == 0 {
		return true
	}
	if iv := m.opts.FlushIntervalMs; iv > 0 && m.now-m.lastFlush >= iv {
		return true
	}
	return false
}

// Flush commits every file header and flushes the database.
func (m *Manager) Flush() error {
	var errList []error
	for _, s := range m.sensors {
		b := s.base()
		if err := b.file.Commit(); err != nil {
			errList = append(errList, fmt.Errorf("sensor %s: %w", b.cfg.ID, err))
		}
	}
	if err := m.db.Flush(); err != nil {
		errList = append(errList, err)
	}
	m.lastFlush = m.now
	return errors.Join(errList...)
}

// Close flushes and unregisters every sensor.
func (m *Manager) Close() error {
	err := m.Flush()
	for _, s := range m.sensors {
		b := s.base()
		b.registered = false
		b.file = nil
		b.values = nil
	}
	clear(m.sensors)
	m.sensors = m.sensors[:0]
	return err
}

// Now is the manager tick in milliseconds. It wraps like a 32-bit counter.
func (m *Manager) Now() int32 { return m.now }

// Len is the number of registered sensors.
func (m *Manager) Len() int { return len(m.sensors) }

// Sensors returns the registered sensors in polling order.
func (m *Manager) Sensors() []Sensor {
	out := make([]Sensor, len(m.sensors))
	copy(out, m.sensors)
	return out
}

// LastPoll reports s.LastPoll for any registered or unregistered sensor.
func (m *Manager) LastPoll(s Sensor) int32 { return s.base().lastPoll }
