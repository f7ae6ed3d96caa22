package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/velora-edu/examspace-backend/internal/clock"
)

// TimerState is the SectionTimer state machine.
type TimerState int

const (
	TimerIdle TimerState = iota
	TimerRunning
	TimerExpired   // terminal: allotted time elapsed
	TimerCancelled // terminal: manual submit or teardown
)

func (s TimerState) String() string {
	switch s {
	case TimerIdle:
		return "IDLE"
	case TimerRunning:
		return "RUNNING"
	case TimerExpired:
		return "EXPIRED"
	case TimerCancelled:
		return "CANCELLED"
	}
	return "UNKNOWN"
}

// SectionTimer counts down one section's allotment on 1-second ticks. A timer
// instance runs exactly one section; the next section gets a fresh instance.
// The tick is the only source of elapsed time, so a suspended tab loses ticks
// rather than jumping the clock.
type SectionTimer struct {
	mu        sync.Mutex
	scheduler clock.Scheduler
	state     TimerState
	duration  int // seconds
	elapsed   int // seconds
	handle    clock.Handle
	onExpire  func()
}

// NewSectionTimer creates an idle timer that will invoke onExpire exactly
// once when the allotment elapses. onExpire runs on the scheduler goroutine.
func NewSectionTimer(scheduler clock.Scheduler, onExpire func()) *SectionTimer {
	return &SectionTimer{scheduler: scheduler, state: TimerIdle, onExpire: onExpire}
}

// Start transitions IDLE→RUNNING and begins ticking. Starting a non-idle
// timer is a programming error and is rejected.
func (t *SectionTimer) Start(durationSeconds int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TimerIdle {
		return fmt.Errorf("timer start in state %s", t.state)
	}
	if durationSeconds <= 0 {
		return fmt.Errorf("timer duration must be positive, got %d", durationSeconds)
	}

	t.duration = durationSeconds
	t.elapsed = 0
	t.state = TimerRunning
	t.handle = t.scheduler.Schedule(time.Second, t.tick)
	return nil
}

func (t *SectionTimer) tick() {
	t.mu.Lock()
	if t.state != TimerRunning {
		// A tick scheduled before Stop landed. Ignore it.
		t.mu.Unlock()
		return
	}

	t.elapsed++
	if t.elapsed < t.duration {
		t.mu.Unlock()
		return
	}

	// Cancel the schedule before firing so the expiry effect runs exactly
	// once even if another tick is already pending.
	t.state = TimerExpired
	handle := t.handle
	fire := t.onExpire
	t.mu.Unlock()

	if handle != nil {
		handle.Stop()
	}
	if fire != nil {
		fire()
	}
}

// Cancel stops a RUNNING timer (manual submit or teardown). Cancelling a
// timer in any other state is rejected: terminal states are never reused.
func (t *SectionTimer) Cancel() error {
	t.mu.Lock()
	if t.state != TimerRunning {
		state := t.state
		t.mu.Unlock()
		return fmt.Errorf("timer cancel in state %s", state)
	}
	t.state = TimerCancelled
	handle := t.handle
	t.mu.Unlock()

	if handle != nil {
		handle.Stop()
	}
	return nil
}

// State returns the current machine state.
func (t *SectionTimer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Remaining returns the seconds left, clamped at zero. Derived, never stored.
func (t *SectionTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	r := t.duration - t.elapsed
	if r < 0 {
		r = 0
	}
	return r
}

// RemainingClock formats the remaining time as MM:SS.
func (t *SectionTimer) RemainingClock() string {
	return FormatClock(t.Remaining())
}

// FormatClock renders a second count as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
