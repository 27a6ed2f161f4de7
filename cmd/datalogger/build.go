// cmd/datalogger/build.go
package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tamzrod/datalogger/internal/blockdev"
	"github.com/tamzrod/datalogger/internal/config"
	"github.com/tamzrod/datalogger/internal/database"
	"github.com/tamzrod/datalogger/internal/sensor"
	mbsensor "github.com/tamzrod/datalogger/internal/sensor/modbus"
)

// eraseByte is what a freshly erased NOR page reads back as.
const eraseByte = 0xFF

// buildDevice opens the configured backend. The closer syncs and releases
// file-backed devices and is a no-op for memory.
func buildDevice(c config.DeviceConfig) (blockdev.Device, func() error, error) {
	switch c.Backend {
	case config.BackendMemory:
		d, err := blockdev.NewMemory(c.PageSize, c.PageCount, eraseByte)
		if err != nil {
			return nil, nil, err
		}
		return d, func() error { return nil }, nil

	case config.BackendFile:
		d, err := blockdev.OpenFile(c.Path, c.PageSize, c.PageCount)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil

	case config.BackendMmap:
		d, err := blockdev.OpenMapped(c.Path, c.PageSize, c.PageCount)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown device backend %q", c.Backend)
}

// sensorConfig maps one normalized sensor section onto the runtime types.
func sensorConfig(s config.SensorConfig) (sensor.Config, mbsensor.Endpoint, mbsensor.Source, error) {
	id, err := database.ParseID(s.ID)
	if err != nil {
		return sensor.Config{}, mbsensor.Endpoint{}, mbsensor.Source{}, err
	}
	enc, err := mbsensor.ParseEncoding(s.Modbus.Encoding)
	if err != nil {
		return sensor.Config{}, mbsensor.Endpoint{}, mbsensor.Source{}, err
	}

	cfg := sensor.NewConfig(id, s.DBSize)
	cfg.PollIntervalMs = s.PollIntervalMs
	cfg.NumValues = s.NumValues
	for _, p := range s.Pins {
		cfg.Pins.Pins = append(cfg.Pins.Pins, sensor.Pin{Name: p.Name, Number: p.Number})
	}

	ep := mbsensor.Endpoint{
		Address: s.Modbus.Endpoint,
		UnitID:  s.Modbus.UnitID,
		Timeout: time.Duration(s.Modbus.TimeoutMs) * time.Millisecond,
	}
	src := mbsensor.Source{
		FC:           s.Modbus.FC,
		Address:      s.Modbus.Address,
		Encoding:     enc,
		LowWordFirst: s.Modbus.WordOrder == config.WordOrderLowFirst,
		Scale:        s.Modbus.Scale,
	}
	return cfg, ep, src, nil
}

// buildSensors dials every configured sensor and registers it.
// The returned closer drops all connections.
func buildSensors(sensors []config.SensorConfig, mgr *sensor.Manager, logger *slog.Logger) (func(), error) {
	var dialed []*mbsensor.Sensor
	closeAll := func() {
		for _, s := range dialed {
			if err := s.Close(); err != nil {
				logger.Warn("sensor close failed", "id", s.Config().ID.String(), "error", err)
			}
		}
	}

	for _, sc := range sensors {
		cfg, ep, src, err := sensorConfig(sc)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("sensor %s: %w", sc.ID, err)
		}
		s, err := mbsensor.Dial(cfg, ep, src, logger.With("component", "modbus"))
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("sensor %s: dial %s: %w", sc.ID, ep.Address, err)
		}
		dialed = append(dialed, s)
		if err := mgr.Add(s); err != nil {
			closeAll()
			return nil, fmt.Errorf("sensor %s: register: %w", sc.ID, err)
		}
	}
	return closeAll, nil
}
