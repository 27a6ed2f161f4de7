// internal/errs/errs_test.go
package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	full := fmt.Errorf("%w: file full", ErrCapacity)
	wrapped := fmt.Errorf("sensor TEMP01: %w", full)

	assert.Nil(t, Kind(nil))
	assert.Equal(t, ErrCapacity, Kind(wrapped))
	assert.Equal(t, ErrIO, Kind(fmt.Errorf("%w: page 3", ErrIO)))
	assert.Equal(t, ErrValidation, Kind(fmt.Errorf("%w: bad magic", ErrValidation)))
	assert.Nil(t, Kind(errors.New("other")))
}
