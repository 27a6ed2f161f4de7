// internal/clock/clock_test.go
package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual_NeverGoesBack(t *testing.T) {
	c := NewManual(10)
	assert.Equal(t, int32(10), c.Millis())

	assert.Equal(t, int32(15), c.Advance(5))
	assert.Equal(t, int32(15), c.Advance(-3))

	c.Set(12)
	assert.Equal(t, int32(15), c.Millis())

	c.Set(40)
	assert.Equal(t, int32(40), c.Millis())
}

func TestMonotonic_NonDecreasing(t *testing.T) {
	c := NewMonotonic()
	a := c.Millis()
	time.Sleep(2 * time.Millisecond)
	b := c.Millis()
	assert.GreaterOrEqual(t, b, a)
	assert.GreaterOrEqual(t, a, int32(0))
}

var (
	_ Clock = (*Monotonic)(nil)
	_ Clock = (*Manual)(nil)
)
