// internal/config/normalize.go
package config

import (
	"strings"

	"github.com/tamzrod/datalogger/internal/sensor"
)

const defaultModbusTimeoutMs = 1000

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Device.Backend = strings.ToLower(cfg.Device.Backend)
	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)

	for i := range cfg.Sensors {
		s := &cfg.Sensors[i]

		if s.NumValues == 0 {
			s.NumValues = 1
		}
		if s.DBSize == 0 {
			s.DBSize = sensor.MaxFileSize
		}
		if s.Modbus.TimeoutMs == 0 {
			s.Modbus.TimeoutMs = defaultModbusTimeoutMs
		}
		if s.Modbus.Encoding == "" {
			s.Modbus.Encoding = "float32"
		}
		if s.Modbus.WordOrder == "" {
			s.Modbus.WordOrder = WordOrderHighFirst
		}
		if s.Modbus.Scale == 0 {
			s.Modbus.Scale = 1
		}
	}
}
