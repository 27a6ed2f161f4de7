// internal/sensor/config.go
package sensor

import (
	"fmt"
	"math"

	"github.com/tamzrod/datalogger/internal/database"
	"github.com/tamzrod/datalogger/internal/datafile"
	"github.com/tamzrod/datalogger/internal/errs"
)

// DefaultDBSize is one week of data polled every 10 s.
const DefaultDBSize = 483840

// MaxFileSize is the largest record region a directory entry can describe,
// rounded down to whole records.
const MaxFileSize = math.MaxInt16 / datafile.RecordSize * datafile.RecordSize

var ErrInvalidConfig = fmt.Errorf("%w: invalid sensor config", errs.ErrValidation)

// Pin is one hardware line used by a sensor driver. The core never touches it.
type Pin struct {
	Name   string
	Number uint8
}

// PinConfiguration lists the pins a driver needs.
type PinConfiguration struct {
	Pins []Pin
}

// Config describes a sensor. ID must stay the same across boots since it
// names the sensor's file.
type Config struct {
	ID             database.ID
	PollIntervalMs int32
	DBSize         int32
	NumValues      int32
	Pins           PinConfiguration
}

// NewConfig returns a config with one value per poll.
func NewConfig(id database.ID, dbSize int32) Config {
	return Config{ID: id, DBSize: dbSize, NumValues: 1}
}

func (c *Config) Validate() error {
	if c.ID.IsZero() {
		return fmt.Errorf("%w: empty identifier", ErrInvalidConfig)
	}
	if c.PollIntervalMs <= 0 {
		return fmt.Errorf("%w: %s poll interval %d ms", ErrInvalidConfig, c.ID, c.PollIntervalMs)
	}
	if c.NumValues < 1 {
		return fmt.Errorf("%w: %s produces %d values", ErrInvalidConfig, c.ID, c.NumValues)
	}
	if int64(c.NumValues)*datafile.RecordSize > MaxFileSize {
		return fmt.Errorf("%w: %s produces too many values per poll", ErrInvalidConfig, c.ID)
	}
	if c.DBSize < c.NumValues*datafile.RecordSize {
		return fmt.Errorf("%w: %s db size %d below one poll (%d bytes)",
			ErrInvalidConfig, c.ID, c.DBSize, c.NumValues*datafile.RecordSize)
	}
	return nil
}

// FileSize is the record region to allocate: DBSize rounded down to whole
// polls and capped at MaxFileSize.
func (c *Config) FileSize() int16 {
	size := int64(c.DBSize)
	if size > MaxFileSize {
		size = MaxFileSize
	}
	poll := int64(c.NumValues) * datafile.RecordSize
	if poll > 0 {
		size -= size % poll
	}
	return int16(size)
}
