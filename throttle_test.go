package datagrid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	th := newThrottle(100 * time.Millisecond)
	th.now = func() time.Time { return now }

	assert.True(t, th.allow())
	assert.False(t, th.flush(), "nothing held back yet")

	assert.False(t, th.allow())
	assert.False(t, th.allow())
	assert.True(t, th.flush(), "held back calls collapse into one")
	assert.False(t, th.flush())

	now = now.Add(50 * time.Millisecond)
	assert.False(t, th.allow())

	now = now.Add(50 * time.Millisecond)
	assert.True(t, th.allow())
	assert.False(t, th.flush(), "a call that got through clears the pending one")
}

func TestThrottleDisabled(t *testing.T) {
	th := newThrottle(0)
	for range 100 {
		assert.True(t, th.allow())
	}
	assert.False(t, th.flush())
}
