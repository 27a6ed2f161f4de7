// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/tamzrod/datalogger/internal/database"
	"github.com/tamzrod/datalogger/internal/datafile"
	"github.com/tamzrod/datalogger/internal/errs"
	"github.com/tamzrod/datalogger/internal/sensor/modbus"
)

const (
	WordOrderHighFirst = "high_first"
	WordOrderLowFirst  = "low_first"

	// maxRegisters is the Modbus limit for one read request.
	maxRegisters = 125
)

var ErrInvalid = fmt.Errorf("%w: invalid config", errs.ErrValidation)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}
	if err := validateDevice(cfg); err != nil {
		return err
	}
	if err := validateRuntime(cfg); err != nil {
		return err
	}

	seen := make(map[database.ID]int)
	for i, s := range cfg.Sensors {
		id, err := validateSensor(s)
		if err != nil {
			return fmt.Errorf("%w: sensors[%d]: %v", ErrInvalid, i, err)
		}
		// One poll is appended as a single stream write.
		if batch := (max(s.NumValues, 1) + 1) * datafile.RecordSize; int(batch) > cfg.Stream.CacheSlots*cfg.Device.PageSize {
			return fmt.Errorf("%w: sensors[%d]: one poll writes %d bytes, more than %d cache slots of %d bytes",
				ErrInvalid, i, batch, cfg.Stream.CacheSlots, cfg.Device.PageSize)
		}
		if prev, ok := seen[id]; ok {
			return fmt.Errorf("%w: sensors[%d]: id %q already used by sensors[%d]", ErrInvalid, i, s.ID, prev)
		}
		seen[id] = i
	}
	if m := cfg.Manager.MaxSensors; m > 0 && len(cfg.Sensors) > m {
		return fmt.Errorf("%w: %d sensors configured, max_sensors is %d", ErrInvalid, len(cfg.Sensors), m)
	}
	return nil
}

// ------------------------------------------------------------
// DEVICE GEOMETRY
// ------------------------------------------------------------

func validateDevice(cfg *Config) error {
	d := cfg.Device
	switch strings.ToLower(d.Backend) {
	case BackendMemory:
	case BackendFile, BackendMmap:
		if d.Path == "" {
			return fmt.Errorf("%w: device.path required for backend %q", ErrInvalid, d.Backend)
		}
	default:
		return fmt.Errorf("%w: device.backend %q (want memory, file or mmap)", ErrInvalid, d.Backend)
	}

	if d.PageSize < 16 || d.PageSize&(d.PageSize-1) != 0 {
		return fmt.Errorf("%w: device.page_size %d must be a power of two >= 16", ErrInvalid, d.PageSize)
	}
	if d.PageCount == 0 {
		return fmt.Errorf("%w: device.page_count must be > 0", ErrInvalid)
	}
	total := uint64(d.PageSize) * uint64(d.PageCount)
	if total > 1<<31-1 {
		return fmt.Errorf("%w: device of %d bytes exceeds the 31-bit offset range", ErrInvalid, total)
	}

	if cfg.Stream.CacheSlots < 2 {
		return fmt.Errorf("%w: stream.cache_slots %d must be >= 2", ErrInvalid, cfg.Stream.CacheSlots)
	}
	if cfg.Database.Capacity == 0 {
		return fmt.Errorf("%w: database.capacity must be > 0", ErrInvalid)
	}
	if need := uint64(database.DirectorySize(cfg.Database.Capacity)); need > total {
		return fmt.Errorf("%w: directory needs %d bytes, device has %d", ErrInvalid, need, total)
	}
	return nil
}

// ------------------------------------------------------------
// MANAGER + LOGGING
// ------------------------------------------------------------

func validateRuntime(cfg *Config) error {
	m := cfg.Manager
	if m.TickMs <= 0 {
		return fmt.Errorf("%w: manager.tick_ms must be > 0", ErrInvalid)
	}
	if m.MaxSensors < 0 || m.FlushEveryUpdates < 0 || m.FlushIntervalMs < 0 {
		return fmt.Errorf("%w: manager values must not be negative", ErrInvalid)
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("%w: logging.level %q", ErrInvalid, cfg.Logging.Level)
	}
	if cfg.Logging.RingSize < 0 {
		return fmt.Errorf("%w: logging.ring_size must not be negative", ErrInvalid)
	}
	return nil
}

// ------------------------------------------------------------
// SENSORS
// ------------------------------------------------------------

func validateSensor(s SensorConfig) (database.ID, error) {
	id, err := database.ParseID(s.ID)
	if err != nil {
		return id, fmt.Errorf("id %q: must be 1..8 printable ASCII characters", s.ID)
	}
	if s.PollIntervalMs <= 0 {
		return id, fmt.Errorf("%s: poll_interval_ms must be > 0", s.ID)
	}

	n := s.NumValues
	if n == 0 {
		n = 1
	}
	if n < 0 {
		return id, fmt.Errorf("%s: num_values must be > 0", s.ID)
	}
	if s.DBSize != 0 {
		if s.DBSize < n*datafile.RecordSize {
			return id, fmt.Errorf("%s: db_size %d below one poll (%d bytes)", s.ID, s.DBSize, n*datafile.RecordSize)
		}
		if s.DBSize > math.MaxInt16 {
			return id, fmt.Errorf("%s: db_size %d exceeds %d", s.ID, s.DBSize, math.MaxInt16)
		}
	}
	for _, p := range s.Pins {
		if p.Name == "" {
			return id, errors.New(s.ID + ": pin name required")
		}
	}

	mb := s.Modbus
	if mb.Endpoint == "" {
		return id, fmt.Errorf("%s: modbus.endpoint required", s.ID)
	}
	if mb.FC != 3 && mb.FC != 4 {
		return id, fmt.Errorf("%s: modbus.fc %d (want 3 or 4)", s.ID, mb.FC)
	}
	if mb.TimeoutMs < 0 {
		return id, fmt.Errorf("%s: modbus.timeout_ms must not be negative", s.ID)
	}
	enc, err := modbus.ParseEncoding(mb.Encoding)
	if err != nil {
		return id, fmt.Errorf("%s: %v", s.ID, err)
	}
	switch mb.WordOrder {
	case "", WordOrderHighFirst, WordOrderLowFirst:
	default:
		return id, fmt.Errorf("%s: modbus.word_order %q", s.ID, mb.WordOrder)
	}
	if q := int(modbus.Source{Encoding: enc}.Quantity(n)); int(n) > maxRegisters || q > maxRegisters {
		return id, fmt.Errorf("%s: %d values need more than %d registers", s.ID, n, maxRegisters)
	}
	if int(mb.Address)+int(modbus.Source{Encoding: enc}.Quantity(n)) > 1<<16 {
		return id, fmt.Errorf("%s: register block runs past address 65535", s.ID)
	}
	return id, nil
}
