// internal/sensor/modbus/sensor.go
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/goburrow/modbus"

	"github.com/tamzrod/datalogger/internal/sensor"
)

// Client is the subset of modbus.Client a sensor reads with.
type Client interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error) // FC 3
	ReadInputRegisters(address, quantity uint16) ([]byte, error)   // FC 4
}

// Encoding is how one value is laid out in registers.
type Encoding uint8

const (
	Float32 Encoding = iota // two registers, IEEE 754
	Int16                   // one register, signed
	Uint16                  // one register
)

func (e Encoding) registers() int {
	if e == Float32 {
		return 2
	}
	return 1
}

// ParseEncoding accepts "float32", "int16" and "uint16".
func ParseEncoding(s string) (Encoding, error) {
	switch s {
	case "", "float32":
		return Float32, nil
	case "int16":
		return Int16, nil
	case "uint16":
		return Uint16, nil
	}
	return 0, fmt.Errorf("sensor modbus: unknown encoding %q", s)
}

// Source describes where a sensor's values live on the device.
// Values are read as one contiguous block.
type Source struct {
	FC       uint8
	Address  uint16
	Encoding Encoding
	// LowWordFirst swaps the two registers of a Float32.
	LowWordFirst bool
	// Scale multiplies every decoded value. Zero means 1.
	Scale float32
}

// Quantity is the number of registers read per poll.
func (s Source) Quantity(numValues int32) uint16 {
	return uint16(int(numValues) * s.Encoding.registers())
}

// Endpoint is a Modbus TCP server and unit.
type Endpoint struct {
	Address string
	UnitID  uint8
	Timeout time.Duration
}

// Sensor polls one register block and decodes it into float32 values.
type Sensor struct {
	sensor.Base

	mu      sync.Mutex
	src     Source
	client  Client
	handler *modbus.TCPClientHandler
	logger  *slog.Logger
}

// New wraps an existing client. cfg.NumValues values are decoded per poll.
func New(cfg sensor.Config, src Source, client Client, logger *slog.Logger) (*Sensor, error) {
	if client == nil {
		return nil, errors.New("sensor modbus: client required")
	}
	if src.FC != 3 && src.FC != 4 {
		return nil, fmt.Errorf("sensor modbus: unsupported function code %d", src.FC)
	}
	if cfg.NumValues < 1 {
		return nil, errors.New("sensor modbus: at least one value required")
	}
	if q := int(cfg.NumValues) * src.Encoding.registers(); q > 125 {
		return nil, fmt.Errorf("sensor modbus: %d registers exceed one request", q)
	}
	if logger == nil {
		logger = slog.Default().With("component", "modbus")
	}
	s := &Sensor{src: src, client: client, logger: logger.With("id", cfg.ID.String())}
	s.Init(cfg)
	return s, nil
}

// Dial connects to ep and returns a sensor reading through that connection.
func Dial(cfg sensor.Config, ep Endpoint, src Source, logger *slog.Logger) (*Sensor, error) {
	if ep.Address == "" {
		return nil, errors.New("sensor modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(ep.Address)
	h.Timeout = ep.Timeout
	h.SlaveId = ep.UnitID

	if err := h.Connect(); err != nil {
		return nil, err
	}

	s, err := New(cfg, src, modbus.NewClient(h), logger)
	if err != nil {
		h.Close()
		return nil, err
	}
	s.handler = h
	return s, nil
}

// Close releases the connection opened by Dial.
func (s *Sensor) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler == nil {
		return nil
	}
	err := s.handler.Close()
	s.handler = nil
	return err
}

// Poll reads the block and fills out. Any read or decode failure fails
// the whole poll.
func (s *Sensor) Poll(out []float32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	qty := s.src.Quantity(int32(len(out)))
	var (
		raw []byte
		err error
	)
	switch s.src.FC {
	case 3:
		raw, err = s.client.ReadHoldingRegisters(s.src.Address, qty)
	case 4:
		raw, err = s.client.ReadInputRegisters(s.src.Address, qty)
	}
	if err != nil {
		s.logger.Warn("read failed", "fc", s.src.FC, "address", s.src.Address, "error", err)
		return false
	}
	if len(raw) != int(qty)*2 {
		s.logger.Warn("short response", "want", int(qty)*2, "got", len(raw))
		return false
	}

	decode(out, raw, s.src)
	return true
}

func decode(out []float32, raw []byte, src Source) {
	scale := src.Scale
	if scale == 0 {
		scale = 1
	}
	step := src.Encoding.registers() * 2
	for i := range out {
		b := raw[i*step:]
		var v float32
		switch src.Encoding {
		case Float32:
			hi, lo := binary.BigEndian.Uint16(b), binary.BigEndian.Uint16(b[2:])
			if src.LowWordFirst {
				hi, lo = lo, hi
			}
			v = math.Float32frombits(uint32(hi)<<16 | uint32(lo))
		case Int16:
			v = float32(int16(binary.BigEndian.Uint16(b)))
		case Uint16:
			v = float32(binary.BigEndian.Uint16(b))
		}
		out[i] = v * scale
	}
}
