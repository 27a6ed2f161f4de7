// internal/convert/convert.go
package convert

import (
	"encoding/binary"
	"math"
)

// On-disk byte layout. All values are little-endian regardless of host.
// Callers must pass buffers of at least 4 (i32, f32) or 2 (i16) bytes.

func PutInt32(dst []byte, v int32) {
	binary.LittleEndian.PutUint32(dst, uint32(v))
}

func Int32(src []byte) int32 {
	return int32(binary.LittleEndian.Uint32(src))
}

func PutInt16(dst []byte, v int16) {
	binary.LittleEndian.PutUint16(dst, uint16(v))
}

func Int16(src []byte) int16 {
	return int16(binary.LittleEndian.Uint16(src))
}

func PutUint16(dst []byte, v uint16) {
	binary.LittleEndian.PutUint16(dst, v)
}

func Uint16(src []byte) uint16 {
	return binary.LittleEndian.Uint16(src)
}

// PutFloat32 stores the IEEE-754 bit pattern of v. NaN payloads survive.
func PutFloat32(dst []byte, v float32) {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
}

// Float32 reinterprets 4 bytes as an IEEE-754 single.
func Float32(src []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(src))
}
