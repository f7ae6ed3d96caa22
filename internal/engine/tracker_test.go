package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/velora-edu/examspace-backend/internal/clock"
)

func TestTrackerAccumulates(t *testing.T) {
	fake := clock.NewFake()
	tr := NewDistractionTracker(fake.Now)

	tr.Hidden()
	fake.Advance(4 * time.Second)
	tr.Visible()

	tr.Hidden()
	fake.Advance(6 * time.Second)
	tr.Visible()

	snap := tr.Snapshot()
	assert.Equal(t, 2, snap.Count)
	assert.InDelta(t, 10.0, snap.TotalAwaySeconds, 0.001)
	assert.Nil(t, snap.AwayStartedAt)
}

func TestTrackerIgnoresUnbalancedEvents(t *testing.T) {
	fake := clock.NewFake()
	tr := NewDistractionTracker(fake.Now)

	// Visible with no recorded departure: no-op.
	tr.Visible()
	assert.Equal(t, 0, tr.Snapshot().Count)

	// Duplicate hidden keeps the original departure stamp.
	tr.Hidden()
	fake.Advance(3 * time.Second)
	tr.Hidden()
	fake.Advance(3 * time.Second)
	tr.Visible()

	snap := tr.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.InDelta(t, 6.0, snap.TotalAwaySeconds, 0.001)
}

func TestTrackerOpenIntervalNotFolded(t *testing.T) {
	fake := clock.NewFake()
	tr := NewDistractionTracker(fake.Now)

	tr.Hidden()
	fake.Advance(30 * time.Second)

	snap := tr.Snapshot()
	assert.Equal(t, 1, snap.Count)
	assert.Equal(t, 0.0, snap.TotalAwaySeconds)
	assert.NotNil(t, snap.AwayStartedAt)
}
