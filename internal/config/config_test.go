// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
device:
  backend: file
  path: /tmp/flash.img
  page_size: 512
  page_count: 128
stream:
  cache_slots: 8
manager:
  tick_ms: 50
  flush_every_updates: 20
logging:
  level: debug
  ring_size: 64
sensors:
  - id: TEMP1
    poll_interval_ms: 10000
    db_size: 4096
    pins:
      - name: sda
        number: 21
    modbus:
      endpoint: 10.0.0.5:502
      unit_id: 3
      fc: 4
      address: 100
      word_order: low_first
      scale: 0.5
`

func TestLoad_AppliesDefaultsUnderFile(t *testing.T) {
	cfg, err := Load(strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, BackendFile, cfg.Device.Backend)
	assert.Equal(t, 512, cfg.Device.PageSize)
	assert.Equal(t, 8, cfg.Stream.CacheSlots)
	assert.Equal(t, uint16(16), cfg.Database.Capacity, "default kept")
	assert.Equal(t, int32(10000), cfg.Manager.FlushIntervalMs, "default kept")
	assert.Equal(t, 20, cfg.Manager.FlushEveryUpdates)
	assert.True(t, cfg.Logging.Stdout, "default kept")

	require.Len(t, cfg.Sensors, 1)
	s := cfg.Sensors[0]
	assert.Equal(t, "TEMP1", s.ID)
	assert.Equal(t, []PinConfig{{Name: "sda", Number: 21}}, s.Pins)
	assert.Equal(t, uint8(3), s.Modbus.UnitID)
	assert.Equal(t, WordOrderLowFirst, s.Modbus.WordOrder)
	assert.Equal(t, float32(0.5), s.Modbus.Scale)

	require.NoError(t, Validate(cfg))
}

func TestLoad_Empty(t *testing.T) {
	cfg, err := Load(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	_, err := Load(strings.NewReader("device:\n  sectors: 4\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datalogger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/flash.img", cfg.Device.Path)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
