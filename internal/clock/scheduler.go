// Package clock provides the scheduling abstraction the exam engine runs on.
// The engine never touches time.Ticker directly; a fake scheduler drives it
// tick-by-tick in tests.
package clock

import (
	"sync"
	"time"
)

// Handle cancels a scheduled repeating callback. Stop is idempotent.
type Handle interface {
	Stop()
}

// Scheduler schedules a repeating callback and exposes the current time.
type Scheduler interface {
	// Schedule invokes fn every interval until the returned handle is
	// stopped. fn runs on the scheduler's goroutine; it must not block.
	Schedule(interval time.Duration, fn func()) Handle
	Now() time.Time
}

// Ticker is the production Scheduler backed by time.Ticker.
type Ticker struct{}

// NewTicker returns the real scheduler.
func NewTicker() *Ticker { return &Ticker{} }

func (*Ticker) Now() time.Time { return time.Now() }

func (*Ticker) Schedule(interval time.Duration, fn func()) Handle {
	t := time.NewTicker(interval)
	done := make(chan struct{})
	h := &tickerHandle{ticker: t, done: done}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-t.C:
				fn()
			}
		}
	}()

	return h
}

type tickerHandle struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (h *tickerHandle) Stop() {
	h.once.Do(func() {
		h.ticker.Stop()
		close(h.done)
	})
}
