package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velora-edu/examspace-backend/internal/clock"
)

func TestTimerCountsDownAndExpiresOnce(t *testing.T) {
	fake := clock.NewFake()
	fired := 0
	timer := NewSectionTimer(fake, func() { fired++ })

	require.NoError(t, timer.Start(60))
	assert.Equal(t, TimerRunning, timer.State())
	assert.Equal(t, 60, timer.Remaining())

	fake.Advance(10 * time.Second)
	assert.Equal(t, 50, timer.Remaining())
	assert.Equal(t, 0, fired)

	fake.Advance(50 * time.Second)
	assert.Equal(t, TimerExpired, timer.State())
	assert.Equal(t, 0, timer.Remaining())
	assert.Equal(t, 1, fired)

	// Extra time never re-fires or goes negative.
	fake.Advance(30 * time.Second)
	assert.Equal(t, 1, fired)
	assert.Equal(t, 0, timer.Remaining())
}

func TestTimerRemainingMonotonic(t *testing.T) {
	fake := clock.NewFake()
	timer := NewSectionTimer(fake, func() {})
	require.NoError(t, timer.Start(5))

	prev := timer.Remaining()
	for i := 0; i < 8; i++ {
		fake.Advance(time.Second)
		cur := timer.Remaining()
		assert.LessOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, 0)
		prev = cur
	}
}

func TestTimerCancel(t *testing.T) {
	fake := clock.NewFake()
	fired := 0
	timer := NewSectionTimer(fake, func() { fired++ })
	require.NoError(t, timer.Start(60))

	fake.Advance(10 * time.Second)
	require.NoError(t, timer.Cancel())
	assert.Equal(t, TimerCancelled, timer.State())

	// Ticks after cancellation are inert.
	fake.Advance(2 * time.Minute)
	assert.Equal(t, 0, fired)
	assert.Equal(t, 50, timer.Remaining())

	// Terminal states cannot be cancelled again or restarted.
	assert.Error(t, timer.Cancel())
	assert.Error(t, timer.Start(30))
}

func TestTimerStartValidation(t *testing.T) {
	fake := clock.NewFake()
	timer := NewSectionTimer(fake, func() {})
	assert.Error(t, timer.Start(0))
	assert.Error(t, timer.Start(-5))

	require.NoError(t, timer.Start(10))
	assert.Error(t, timer.Start(10)) // already running
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "10:00", FormatClock(600))
	assert.Equal(t, "00:09", FormatClock(9))
	assert.Equal(t, "01:05", FormatClock(65))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "00:00", FormatClock(-3))
}
