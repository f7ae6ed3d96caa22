package clock

import (
	"sync"
	"time"
)

// Fake is a stepping Scheduler for tests. Advance moves simulated time
// forward and fires due callbacks synchronously on the calling goroutine, so
// interleavings are deterministic.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	entries []*fakeEntry
}

type fakeEntry struct {
	fake     *Fake
	interval time.Duration
	next     time.Time
	fn       func()
	stopped  bool
}

// NewFake returns a fake scheduler starting at a fixed instant.
func NewFake() *Fake {
	return &Fake{now: time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Schedule(interval time.Duration, fn func()) Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := &fakeEntry{fake: f, interval: interval, next: f.now.Add(interval), fn: fn}
	f.entries = append(f.entries, e)
	return e
}

func (e *fakeEntry) Stop() {
	e.fake.mu.Lock()
	defer e.fake.mu.Unlock()
	e.stopped = true
}

// Advance moves simulated time forward by d, firing every due callback in
// order. A callback may stop its own handle mid-advance; remaining fires for
// that handle are then skipped, which mirrors a ticker being stopped from
// inside its own tick.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		var due *fakeEntry
		for _, e := range f.entries {
			if e.stopped || e.next.After(target) {
				continue
			}
			if due == nil || e.next.Before(due.next) {
				due = e
			}
		}
		if due == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = due.next
		due.next = due.next.Add(due.interval)
		fn := due.fn
		f.mu.Unlock()

		fn()
	}
}
