// internal/database/id_test.go
package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseID(t *testing.T) {
	id, err := ParseID("TEMP01")
	require.NoError(t, err)
	assert.Equal(t, ID{'T', 'E', 'M', 'P', '0', '1', 0, 0}, id)
	assert.Equal(t, "TEMP01", id.String())

	full, err := ParseID("DummySE1")
	require.NoError(t, err)
	assert.Equal(t, "DummySE1", full.String())

	for _, bad := range []string{"", "NINECHARS", "A\x00B", "é"} {
		_, err := ParseID(bad)
		assert.ErrorIs(t, err, ErrBadIdentifier, bad)
	}
	assert.Panics(t, func() { MustID("") })
}
