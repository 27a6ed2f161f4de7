// internal/database/id.go
package database

import (
	"bytes"
	"fmt"
)

// IDLen is the fixed identifier width.
const IDLen = 8

// ID is an 8-byte ASCII identifier, NUL padded. Comparison is byte-exact.
type ID [IDLen]byte

// ParseID converts 1..8 printable ASCII characters into an ID.
func ParseID(s string) (ID, error) {
	var id ID
	if len(s) == 0 || len(s) > IDLen {
		return id, fmt.Errorf("%w: %q must be 1..%d bytes", ErrBadIdentifier, s, IDLen)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7E {
			return id, fmt.Errorf("%w: %q has non-printable byte at %d", ErrBadIdentifier, s, i)
		}
	}
	copy(id[:], s)
	return id, nil
}

// MustID is ParseID for constants.
func MustID(s string) ID {
	id, err := ParseID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String drops the NUL padding.
func (id ID) String() string {
	if i := bytes.IndexByte(id[:], 0); i >= 0 {
		return string(id[:i])
	}
	return string(id[:])
}

func (id ID) IsZero() bool {
	return id == ID{}
}
