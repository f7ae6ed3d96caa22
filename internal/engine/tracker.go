package engine

import (
	"sync"
	"time"

	"github.com/velora-edu/examspace-backend/internal/model"
)

// DistractionTracker accumulates tab/window visibility transitions for a
// session. Pure accumulation: nothing is sent until the session finalizes.
type DistractionTracker struct {
	mu  sync.Mutex
	now func() time.Time
	log model.DistractionLog
}

// NewDistractionTracker creates a tracker reading time from now.
func NewDistractionTracker(now func() time.Time) *DistractionTracker {
	return &DistractionTracker{now: now}
}

// Hidden records the page going hidden: bump the count, stamp the departure.
// A duplicate hidden event while already away keeps the original stamp.
func (t *DistractionTracker) Hidden() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log.AwayStartedAt != nil {
		return
	}
	t.log.Count++
	at := t.now()
	t.log.AwayStartedAt = &at
}

// Visible records the page returning: fold the away interval into the total.
// A visible event with no recorded departure is ignored.
func (t *DistractionTracker) Visible() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.log.AwayStartedAt == nil {
		return
	}
	t.log.TotalAwaySeconds += t.now().Sub(*t.log.AwayStartedAt).Seconds()
	t.log.AwayStartedAt = nil
}

// Snapshot returns a copy of the accumulated log. If the page is still away,
// the open interval is not folded in; it closes on the next Visible.
func (t *DistractionTracker) Snapshot() model.DistractionLog {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.log
}
