// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Device   DeviceConfig   `yaml:"device"`
	Stream   StreamConfig   `yaml:"stream"`
	Database DatabaseConfig `yaml:"database"`
	Manager  ManagerConfig  `yaml:"manager"`
	Logging  LoggingConfig  `yaml:"logging"`
	Sensors  []SensorConfig `yaml:"sensors"`
}

// ---- DEVICE ----

const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendMmap   = "mmap"
)

type DeviceConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"` // file and mmap backends
	PageSize  int    `yaml:"page_size"`
	PageCount uint32 `yaml:"page_count"`
}

// ---- STREAM / DATABASE ----

type StreamConfig struct {
	CacheSlots int `yaml:"cache_slots"`
}

type DatabaseConfig struct {
	Capacity uint16 `yaml:"capacity"` // directory entries, used when formatting
}

// ---- MANAGER ----

type ManagerConfig struct {
	TickMs            int   `yaml:"tick_ms"`
	MaxSensors        int   `yaml:"max_sensors"`
	FlushEveryUpdates int   `yaml:"flush_every_updates"`
	FlushIntervalMs   int32 `yaml:"flush_interval_ms"`
}

// ---- LOGGING ----

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Stdout   bool   `yaml:"stdout"`
	RingSize int    `yaml:"ring_size"` // 0 disables the in-memory ring
}

// ---- SENSOR ----

type SensorConfig struct {
	ID             string       `yaml:"id"`
	PollIntervalMs int32        `yaml:"poll_interval_ms"`
	DBSize         int32        `yaml:"db_size"`    // 0 => largest file size
	NumValues      int32        `yaml:"num_values"` // 0 => 1
	Pins           []PinConfig  `yaml:"pins"`
	Modbus         ModbusConfig `yaml:"modbus"`
}

type PinConfig struct {
	Name   string `yaml:"name"`
	Number uint8  `yaml:"number"`
}

type ModbusConfig struct {
	Endpoint  string  `yaml:"endpoint"`
	UnitID    uint8   `yaml:"unit_id"`
	TimeoutMs int     `yaml:"timeout_ms"`
	FC        uint8   `yaml:"fc"`
	Address   uint16  `yaml:"address"`
	Encoding  string  `yaml:"encoding"`   // float32 | int16 | uint16
	WordOrder string  `yaml:"word_order"` // high_first | low_first
	Scale     float32 `yaml:"scale"`
}

// Default returns the configuration used for keys the file leaves out.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			Backend:   BackendMemory,
			PageSize:  256,
			PageCount: 256,
		},
		Stream:   StreamConfig{CacheSlots: 4},
		Database: DatabaseConfig{Capacity: 16},
		Manager: ManagerConfig{
			TickMs:            100,
			MaxSensors:        16,
			FlushEveryUpdates: 0,
			FlushIntervalMs:   10000,
		},
		Logging: LoggingConfig{Level: "info", Stdout: true},
	}
}

// Load decodes YAML from r over the defaults. Unknown keys are rejected.
func Load(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	return cfg, nil
}

// LoadFile opens path and calls Load.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return Load(f)
}
