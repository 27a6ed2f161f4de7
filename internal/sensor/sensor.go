// internal/sensor/sensor.go
package sensor

import (
	"github.com/tamzrod/datalogger/internal/datafile"
)

// Sensor is a pollable source of NumValues float32 samples. Concrete sensors
// embed Base and implement Poll. Poll must fill out, whose length is
// exactly Config().NumValues, and must not allocate.
type Sensor interface {
	Poll(out []float32) bool
	base() *Base
}

// Base carries the state the manager keeps per sensor.
type Base struct {
	cfg        Config
	file       *datafile.File
	lastPoll   int32
	values     []float32
	registered bool
	full       bool
}

// Init sets the config. It must be called before the sensor is added.
func (b *Base) Init(cfg Config) {
	b.cfg = cfg
}

// Config returns the sensor configuration.
func (b *Base) Config() Config { return b.cfg }

// File is the bound file, nil while unregistered.
func (b *Base) File() *datafile.File { return b.file }

// LastPoll is the manager tick the next due time is measured from: the last
// successful poll, a skipped poll on a full file, or registration.
func (b *Base) LastPoll() int32 { return b.lastPoll }

// Registered reports whether a manager currently polls the sensor.
func (b *Base) Registered() bool { return b.registered }

func (b *Base) base() *Base { return b }
