package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestGuardSubmitOnce(t *testing.T) {
	g := NewSubmissionGuard()
	subject := uuid.New()
	calls := 0

	out := g.Submit(context.Background(), subject, true, func(context.Context) error {
		calls++
		return nil
	})
	assert.Equal(t, SubmitAdvanced, out)
	assert.Equal(t, 1, calls)
	assert.True(t, g.Submitted(subject))

	// Second trigger on the same section: no network call.
	out = g.Submit(context.Background(), subject, true, func(context.Context) error {
		calls++
		return nil
	})
	assert.Equal(t, SubmitAlreadyDone, out)
	assert.Equal(t, 1, calls)
}

func TestGuardDropsConcurrentAttempt(t *testing.T) {
	g := NewSubmissionGuard()
	subject := uuid.New()

	entered := make(chan struct{})
	release := make(chan struct{})
	calls := 0
	var mu sync.Mutex

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		out := g.Submit(context.Background(), subject, true, func(context.Context) error {
			mu.Lock()
			calls++
			mu.Unlock()
			close(entered)
			<-release
			return nil
		})
		assert.Equal(t, SubmitAdvanced, out)
	}()

	<-entered
	// Second trigger lands while the first call is in flight: dropped, not
	// queued, regardless of section.
	out := g.Submit(context.Background(), subject, true, func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	assert.Equal(t, SubmitDropped, out)

	out = g.Submit(context.Background(), uuid.New(), true, func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	assert.Equal(t, SubmitDropped, out)

	close(release)
	wg.Wait()

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
	assert.True(t, g.Submitted(subject))
}

func TestGuardFailureLeavesSectionRetriable(t *testing.T) {
	g := NewSubmissionGuard()
	subject := uuid.New()

	out := g.Submit(context.Background(), subject, true, func(context.Context) error {
		return errors.New("network down")
	})
	assert.Equal(t, SubmitFailed, out)
	assert.False(t, g.Submitted(subject))
	assert.False(t, g.InFlight())

	// Retry succeeds.
	out = g.Submit(context.Background(), subject, true, func(context.Context) error {
		return nil
	})
	assert.Equal(t, SubmitAdvanced, out)
	assert.True(t, g.Submitted(subject))
}

func TestGuardSkipsNetworkForEmptySection(t *testing.T) {
	g := NewSubmissionGuard()
	subject := uuid.New()
	calls := 0

	out := g.Submit(context.Background(), subject, false, func(context.Context) error {
		calls++
		return nil
	})
	assert.Equal(t, SubmitAdvanced, out)
	assert.Equal(t, 0, calls)
	assert.True(t, g.Submitted(subject))
}

func TestGuardIndependentSections(t *testing.T) {
	g := NewSubmissionGuard()
	s1, s2 := uuid.New(), uuid.New()

	assert.Equal(t, SubmitAdvanced, g.Submit(context.Background(), s1, true, func(context.Context) error { return nil }))
	assert.False(t, g.Submitted(s2))
	assert.Equal(t, SubmitAdvanced, g.Submit(context.Background(), s2, true, func(context.Context) error { return nil }))
	assert.True(t, g.Submitted(s2))
}
