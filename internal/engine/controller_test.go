package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/velora-edu/examspace-backend/internal/clock"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// fakeBackend is an in-memory Backend recording every call.
type fakeBackend struct {
	mu sync.Mutex

	sections  []model.Section
	questions map[uuid.UUID][]model.Question
	prior     map[uuid.UUID]map[string]string

	submissions    []model.SectionSubmission
	submitErr      error
	submitErrTimes int // fail this many calls, then succeed

	// When set, SubmitSection signals submitEntered and parks on submitGate,
	// holding the caller inside the network call.
	submitEntered chan struct{}
	submitGate    chan struct{}

	distractions   []model.DistractionReport
	distractionErr error

	result         *model.TestResult
	resultErrTimes int
	resultCalls    int

	linked *model.LinkedTest
}

func (b *fakeBackend) FetchSections(ctx context.Context, testID uuid.UUID) ([]model.Section, error) {
	return b.sections, nil
}

func (b *fakeBackend) FetchQuestions(ctx context.Context, testID, subjectID uuid.UUID, userID int) ([]model.Question, map[string]string, error) {
	return b.questions[subjectID], b.prior[subjectID], nil
}

func (b *fakeBackend) SubmitSection(ctx context.Context, sub model.SectionSubmission) error {
	if b.submitEntered != nil {
		b.submitEntered <- struct{}{}
		<-b.submitGate
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submitErrTimes > 0 {
		b.submitErrTimes--
		return errors.New("submit failed")
	}
	if b.submitErr != nil {
		return b.submitErr
	}
	b.submissions = append(b.submissions, sub)
	return nil
}

func (b *fakeBackend) SendDistraction(ctx context.Context, report model.DistractionReport) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.distractionErr != nil {
		return b.distractionErr
	}
	b.distractions = append(b.distractions, report)
	return nil
}

func (b *fakeBackend) FetchResults(ctx context.Context, testID uuid.UUID, userID int) (*model.TestResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resultCalls++
	if b.resultErrTimes > 0 {
		b.resultErrTimes--
		return nil, errors.New("results unavailable")
	}
	return b.result, nil
}

func (b *fakeBackend) FetchLinkedTest(ctx context.Context, testID uuid.UUID) (*model.LinkedTest, error) {
	return b.linked, nil
}

func (b *fakeBackend) submissionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.submissions)
}

// fakeCapture records lifecycle calls.
type fakeCapture struct {
	mu      sync.Mutex
	starts  []uuid.UUID
	stops   int
	running bool
}

func (f *fakeCapture) StartSection(ctx context.Context, subjectID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, subjectID)
	f.running = true
}

func (f *fakeCapture) StopSection(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	f.running = false
}

func (f *fakeCapture) Running() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func multiChoiceQuestion(number string) model.Question {
	c := "choice"
	return model.Question{
		QuestionNumber: number,
		Type:           model.QuestionTypeMultiChoice,
		Choices:        [4]*string{&c, &c, &c, &c},
	}
}

func twoSectionFixture() (*fakeBackend, []uuid.UUID) {
	s1, s2 := uuid.New(), uuid.New()
	return &fakeBackend{
		sections: []model.Section{
			{SubjectID: s1, Description: "Mathematics", DurationMinutes: 5, Position: 0},
			{SubjectID: s2, Description: "Physics", DurationMinutes: 10, Position: 1},
		},
		questions: map[uuid.UUID][]model.Question{
			s1: {multiChoiceQuestion("1")},
			s2: {multiChoiceQuestion("1")},
		},
	}, []uuid.UUID{s1, s2}
}

func newTestController(b Backend, fake *clock.Fake, capture Capture) *Controller {
	cfg := Config{
		TestID:     uuid.New(),
		UserTestID: uuid.New(),
		UserID:     7,
		Role:       model.RoleCandidate,
	}
	return NewController(cfg, b, fake, capture, zerolog.Nop())
}

func TestProgressionOrder(t *testing.T) {
	backend, subjects := twoSectionFixture()
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	state := c.State()
	assert.Equal(t, 0, state.CurrentSectionIndex)
	assert.Equal(t, subjects[0], state.Current.Section.SubjectID)
	assert.Equal(t, "05:00", state.Current.RemainingClock)

	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "A"})
	require.NoError(t, err)

	out, err := c.Submit(subjects[0])
	require.NoError(t, err)
	assert.Equal(t, SubmitAdvanced, out)

	state = c.State()
	assert.Equal(t, 1, state.CurrentSectionIndex)
	assert.Equal(t, subjects[1], state.Current.Section.SubjectID)
	assert.Equal(t, "10:00", state.Current.RemainingClock)
	assert.False(t, state.Finalized)
}

func TestExpiryAndManualSubmitSameTick(t *testing.T) {
	backend, _ := twoSectionFixture()
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "B"})
	require.NoError(t, err)

	// Timer expires, then the click for section 1 lands in the same tick
	// window.
	fake.Advance(5 * time.Minute)
	out, err := c.Submit(backend.sections[0].SubjectID)
	require.NoError(t, err)
	assert.Equal(t, SubmitAlreadyDone, out)

	// Exactly one network call reached the backend for section 1, and the
	// session already advanced to section 2.
	assert.Equal(t, 1, backend.submissionCount())
	assert.Equal(t, 1, c.State().CurrentSectionIndex)
}

func TestExpiryWithNothingAttemptedSkipsNetwork(t *testing.T) {
	backend, subjects := twoSectionFixture()
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	// 1-minute scenario scaled to the fixture: let the full allotment lapse
	// with no answers.
	fake.Advance(5 * time.Minute)

	assert.Equal(t, 0, backend.submissionCount())
	state := c.State()
	assert.Equal(t, 1, state.CurrentSectionIndex)
	assert.Equal(t, subjects[1], state.Current.Section.SubjectID)
}

func TestManualSubmitEncodesCanonicalPayload(t *testing.T) {
	backend, subjects := twoSectionFixture()
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	fake.Advance(10 * time.Second)
	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "B"})
	require.NoError(t, err)
	_, err = c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "A"})
	require.NoError(t, err)

	out, err := c.Submit(subjects[0])
	require.NoError(t, err)
	assert.Equal(t, SubmitAdvanced, out)

	require.Equal(t, 1, backend.submissionCount())
	sub := backend.submissions[0]
	assert.Equal(t, subjects[0], sub.SubjectID)
	require.Len(t, sub.Answers, 1)
	assert.Equal(t, "A,B", sub.Answers[0].RawValue)
	assert.Equal(t, 290, sub.TimerValue)
}

func TestFailedSubmitStaysOnSectionThenRetries(t *testing.T) {
	backend, _ := twoSectionFixture()
	backend.submitErrTimes = 1
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "C"})
	require.NoError(t, err)

	// Expiry path fails: section stays current at zero time, error surfaced.
	fake.Advance(5 * time.Minute)
	state := c.State()
	assert.Equal(t, 0, state.CurrentSectionIndex)
	assert.Equal(t, 0, state.Current.RemainingSeconds)
	assert.NotEmpty(t, c.LastError())

	// The engine keeps re-attempting; the next retry tick succeeds.
	fake.Advance(retryInterval)
	assert.Equal(t, 1, backend.submissionCount())
	assert.Equal(t, 1, c.State().CurrentSectionIndex)
	assert.Empty(t, c.LastError())
}

func TestManualSubmitFailureKeepsTimerRunning(t *testing.T) {
	backend, _ := twoSectionFixture()
	backend.submitErrTimes = 1
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	fake.Advance(30 * time.Second)
	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "A"})
	require.NoError(t, err)

	out, err := c.Submit(backend.sections[0].SubjectID)
	assert.Equal(t, SubmitFailed, out)
	assert.Error(t, err)

	// Remaining time intact; a later manual retry succeeds.
	state := c.State()
	assert.Equal(t, 270, state.Current.RemainingSeconds)

	out, err = c.Submit(backend.sections[0].SubjectID)
	require.NoError(t, err)
	assert.Equal(t, SubmitAdvanced, out)
}

func TestFinalizationFlushesDistractionAndFetchesResults(t *testing.T) {
	backend, _ := twoSectionFixture()
	backend.result = &model.TestResult{TotalScore: 42}
	backend.resultErrTimes = 1 // first fetch fails, retried once
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	c.Visibility(true)
	fake.Advance(8 * time.Second)
	c.Visibility(false)

	// Run both sections to expiry with nothing attempted.
	fake.Advance(5 * time.Minute)
	fake.Advance(10 * time.Minute)

	assert.True(t, c.Finalized())
	require.Len(t, backend.distractions, 1)
	assert.Equal(t, 1, backend.distractions[0].Count)
	assert.InDelta(t, 8.0, backend.distractions[0].TotalAwaySeconds, 0.001)

	assert.Equal(t, 2, backend.resultCalls)
	require.NotNil(t, c.Result())
	assert.Equal(t, 42.0, c.Result().TotalScore)
	assert.Equal(t, "/results", c.State().Destination)
}

func TestFinalizationLinkedTestDestination(t *testing.T) {
	backend, _ := twoSectionFixture()
	next := uuid.New()
	backend.linked = &model.LinkedTest{NextTestID: next}
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	fake.Advance(5 * time.Minute)
	fake.Advance(10 * time.Minute)

	assert.Equal(t, "/exam/"+next.String(), c.State().Destination)
}

func TestDistractionFlushFailureUsesFallback(t *testing.T) {
	backend, _ := twoSectionFixture()
	backend.distractionErr = errors.New("flush failed")
	backend.result = &model.TestResult{TotalScore: 10}
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	fake.Advance(5 * time.Minute)
	fake.Advance(10 * time.Minute)

	// Normal result fetch is skipped; the fallback destination still lands.
	assert.Equal(t, 0, backend.resultCalls)
	assert.Nil(t, c.Result())
	assert.Equal(t, "/results", c.State().Destination)
}

func TestCaptureLifecycle(t *testing.T) {
	backend, subjects := twoSectionFixture()
	fake := clock.NewFake()
	capture := &fakeCapture{}
	c := newTestController(backend, fake, capture)
	require.NoError(t, c.Start())

	assert.Equal(t, []uuid.UUID{subjects[0]}, capture.starts)

	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "A"})
	require.NoError(t, err)
	_, err = c.Submit(subjects[0])
	require.NoError(t, err)

	// Stopped for section 1, restarted for section 2.
	assert.Equal(t, 1, capture.stops)
	assert.Equal(t, []uuid.UUID{subjects[0], subjects[1]}, capture.starts)

	fake.Advance(10 * time.Minute)
	assert.Equal(t, 2, capture.stops)
	assert.False(t, capture.Running())
}

func TestTeardownStopsEverything(t *testing.T) {
	backend, _ := twoSectionFixture()
	fake := clock.NewFake()
	capture := &fakeCapture{}
	c := newTestController(backend, fake, capture)
	require.NoError(t, c.Start())

	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "A"})
	require.NoError(t, err)

	c.Teardown()
	assert.False(t, capture.Running())

	// Post-teardown triggers mutate nothing.
	fake.Advance(time.Hour)
	assert.Equal(t, 0, backend.submissionCount())

	_, err = c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "B"})
	assert.Error(t, err)
	_, err = c.Submit(backend.sections[0].SubjectID)
	assert.Error(t, err)

	// Teardown is idempotent.
	c.Teardown()
}

func TestStartWithNoSections(t *testing.T) {
	backend := &fakeBackend{}
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	assert.ErrorIs(t, c.Start(), ErrNoSections)
}

func TestStartResumesPastSealedSections(t *testing.T) {
	backend, subjects := twoSectionFixture()
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start(subjects[0]))

	state := c.State()
	assert.Equal(t, 1, state.CurrentSectionIndex)
	assert.Equal(t, subjects[1], state.Current.Section.SubjectID)
	assert.Equal(t, "10:00", state.Current.RemainingClock)

	// The sealed section cannot be submitted again.
	out, err := c.Submit(subjects[0])
	require.NoError(t, err)
	assert.Equal(t, SubmitAlreadyDone, out)
	assert.Equal(t, 0, backend.submissionCount())
}

func TestStartWithEverySectionSealedFinalizes(t *testing.T) {
	backend, subjects := twoSectionFixture()
	backend.result = &model.TestResult{TotalScore: 12}
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start(subjects[0], subjects[1]))

	state := c.State()
	assert.True(t, state.Finalized)
	assert.Equal(t, "/results", state.Destination)
	assert.Equal(t, 0, backend.submissionCount())
	require.NotNil(t, c.Result())
	assert.Equal(t, float64(12), c.Result().TotalScore)
}

func TestStaleExpiryDuringManualSubmitIsDropped(t *testing.T) {
	backend, subjects := twoSectionFixture()
	backend.submitEntered = make(chan struct{})
	backend.submitGate = make(chan struct{})
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "A"})
	require.NoError(t, err)

	// Manual submit of section 1 parks inside the network call, holding the
	// controller lock for the whole round-trip.
	done := make(chan SubmitOutcome, 1)
	go func() {
		out, _ := c.Submit(subjects[0])
		done <- out
	}()
	<-backend.submitEntered

	// Section 1's full allotment lapses mid-flight. The expiry callback
	// fires on the scheduler goroutine and parks on the controller lock.
	expiryDone := make(chan struct{})
	go func() {
		fake.Advance(5 * time.Minute)
		close(expiryDone)
	}()

	close(backend.submitGate)
	assert.Equal(t, SubmitAdvanced, <-done)
	<-expiryDone

	// The parked expiry was armed for section 1 and must not touch section
	// 2: one submission, session on section 2 with its full allotment.
	assert.Equal(t, 1, backend.submissionCount())
	state := c.State()
	assert.False(t, state.Finalized)
	assert.Equal(t, 1, state.CurrentSectionIndex)
	assert.Equal(t, subjects[1], state.Current.Section.SubjectID)
	assert.Equal(t, "10:00", state.Current.RemainingClock)
}

func TestStaleRetryAfterAdvanceIsDropped(t *testing.T) {
	backend, subjects := twoSectionFixture()
	backend.submitErrTimes = 1
	fake := clock.NewFake()
	c := newTestController(backend, fake, nil)
	require.NoError(t, c.Start())

	_, err := c.ApplyEdit(model.AnswerEditRequest{QuestionNumber: "1", Kind: model.EditToggle, Letter: "A"})
	require.NoError(t, err)

	// Expiry-path submit fails, arming the retry schedule for section 1.
	fake.Advance(5 * time.Minute)
	assert.Equal(t, 0, backend.submissionCount())
	assert.Equal(t, 0, c.State().CurrentSectionIndex)

	// A manual retry parks inside the network call while the scheduled
	// retry tick fires and parks on the controller lock behind it.
	backend.submitEntered = make(chan struct{})
	backend.submitGate = make(chan struct{})
	done := make(chan SubmitOutcome, 1)
	go func() {
		out, _ := c.Submit(subjects[0])
		done <- out
	}()
	<-backend.submitEntered

	retryDone := make(chan struct{})
	go func() {
		fake.Advance(retryInterval)
		close(retryDone)
	}()

	close(backend.submitGate)
	assert.Equal(t, SubmitAdvanced, <-done)
	<-retryDone

	// The stale retry was armed for section 1 and is dropped after the
	// manual submit advances the progression.
	assert.Equal(t, 1, backend.submissionCount())
	state := c.State()
	assert.False(t, state.Finalized)
	assert.Equal(t, 1, state.CurrentSectionIndex)
	assert.Equal(t, subjects[1], state.Current.Section.SubjectID)
	assert.Equal(t, "10:00", state.Current.RemainingClock)
}

func TestResolveDestinationRoleDefaults(t *testing.T) {
	next := uuid.New()
	linked := &model.LinkedTest{NextTestID: next}

	assert.Equal(t, "/exam/"+next.String(), resolveDestination(linked, model.RoleCandidate))
	assert.Equal(t, "/results", resolveDestination(nil, model.RoleCandidate))
	assert.Equal(t, "/admin/results", resolveDestination(nil, model.RoleAdmin))
}
