package audiomixer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWheelNotches(t *testing.T) {
	encode := func(delta int16) uint32 {
		return uint32(uint16(delta)) << 16
	}

	assert.Equal(t, 1, wheelNotches(encode(120)))
	assert.Equal(t, -2, wheelNotches(encode(-240)))
	assert.Equal(t, 1, wheelNotches(encode(30)))
	assert.Equal(t, -1, wheelNotches(encode(-30)))
	assert.Equal(t, 0, wheelNotches(0))
}
