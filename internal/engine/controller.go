// Package engine implements the timed exam session state machines: section
// timer, submission guard, progression, distraction tracking, and the
// controller that composes them. The engine is framework-free; time comes
// from a clock.Scheduler and all collaborator services sit behind Backend.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/clock"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// Backend is the set of collaborator services the engine talks to. Every
// call may suspend; between issuing a call and its resolution other events
// (ticks, clicks) can run against the controller.
type Backend interface {
	FetchSections(ctx context.Context, testID uuid.UUID) ([]model.Section, error)
	FetchQuestions(ctx context.Context, testID, subjectID uuid.UUID, userID int) ([]model.Question, map[string]string, error)
	SubmitSection(ctx context.Context, sub model.SectionSubmission) error
	SendDistraction(ctx context.Context, report model.DistractionReport) error
	FetchResults(ctx context.Context, testID uuid.UUID, userID int) (*model.TestResult, error)
	FetchLinkedTest(ctx context.Context, testID uuid.UUID) (*model.LinkedTest, error)
}

// Capture is the per-section capture lifecycle the controller drives.
// Implementations must treat every failure as non-fatal.
type Capture interface {
	StartSection(ctx context.Context, subjectID uuid.UUID)
	StopSection(ctx context.Context)
	Running() bool
}

// Sentinel errors for controller entry points.
var (
	// ErrNoSections is returned when a test has no sections to run.
	ErrNoSections = errors.New("test has no sections")
	// ErrTornDown is returned by entry points after Teardown.
	ErrTornDown = errors.New("session is torn down")
	// ErrNoActiveSection is returned while no section is loaded, either
	// because a load failed or the session has finalized.
	ErrNoActiveSection = errors.New("no active section")
)

// submission retry cadence after a failed expiry-path submit. With time at
// zero the engine keeps re-attempting rather than stranding the candidate.
const retryInterval = 5 * time.Second

// Trigger identifies which path asked for a submission.
type Trigger string

const (
	TriggerExpiry Trigger = "expiry"
	TriggerManual Trigger = "manual"
	TriggerRetry  Trigger = "retry"
)

// Config carries the identity of one candidate session.
type Config struct {
	TestID     uuid.UUID
	UserTestID uuid.UUID
	UserID     int
	Role       model.Role
}

// Controller is the composition root of one live exam session. All entry
// points serialize on one mutex: the scheduling model is cooperative, and
// the mutex is what makes callback interleavings atomic.
type Controller struct {
	mu sync.Mutex

	cfg       Config
	backend   Backend
	scheduler clock.Scheduler
	capture   Capture // nil when capture is disabled
	tracker   *DistractionTracker
	guard     *SubmissionGuard
	prog      *Progression
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	alive  bool

	timer       *SectionTimer
	store       *AnswerStore
	retryHandle clock.Handle

	result      *model.TestResult
	destination string
	lastError   string
}

// NewController creates a controller for one candidate session. Call Start
// to load sections and begin the first timer.
func NewController(cfg Config, backend Backend, scheduler clock.Scheduler, capture Capture, log zerolog.Logger) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		cfg:       cfg,
		backend:   backend,
		scheduler: scheduler,
		capture:   capture,
		tracker:   NewDistractionTracker(scheduler.Now),
		guard:     NewSubmissionGuard(),
		log: log.With().
			Str("component", "session_controller").
			Str("user_test_id", cfg.UserTestID.String()).
			Logger(),
		ctx:    ctx,
		cancel: cancel,
		alive:  true,
	}
	return c
}

// Start loads the section list and the first section's questions, then
// starts the first timer. Missing sections are a configuration error: fatal
// for the session, no retry. Subjects listed in alreadySealed (from a prior
// process of the same attempt) are pre-marked submitted and skipped; a
// resume with every section sealed goes straight to finalization.
func (c *Controller) Start(alreadySealed ...uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sections, err := c.backend.FetchSections(c.ctx, c.cfg.TestID)
	if err != nil {
		return fmt.Errorf("fetch sections: %w", err)
	}
	if len(sections) == 0 {
		return ErrNoSections
	}

	sealed := make(map[uuid.UUID]bool, len(alreadySealed))
	for _, id := range alreadySealed {
		c.guard.MarkSubmitted(id)
		sealed[id] = true
	}

	start := 0
	for start < len(sections) && sealed[sections[start].SubjectID] {
		start++
	}

	c.prog = NewProgression(sections, c.loadSectionLocked, c.finalizeLocked)
	if start >= len(sections) {
		c.prog.Seek(len(sections) - 1)
		c.prog.Advance()
		return nil
	}
	c.prog.Seek(start)
	c.loadSectionLocked(start)
	if c.store == nil {
		return fmt.Errorf("load first section: %s", c.lastError)
	}
	return nil
}

// loadSectionLocked fetches questions for section index, seeds the answer
// store, starts capture, and arms a fresh timer. Caller holds c.mu.
func (c *Controller) loadSectionLocked(index int) {
	section := c.prog.Sections()[index]

	questions, prior, err := c.backend.FetchQuestions(c.ctx, c.cfg.TestID, section.SubjectID, c.cfg.UserID)
	if err != nil {
		c.store = nil
		c.timer = nil
		c.lastError = "failed to load section questions"
		c.log.Error().Err(err).Str("subject_id", section.SubjectID.String()).Msg("Question load failed")
		return
	}

	c.store = NewAnswerStore(questions, prior)
	c.lastError = ""

	if c.capture != nil {
		c.capture.StartSection(c.ctx, section.SubjectID)
	}

	// The callback carries the section it was armed for: a tick dispatched
	// before the timer was cancelled can park on c.mu across a manual
	// submit, and must not be applied to whatever section is current by the
	// time it runs.
	subjectID := section.SubjectID
	c.timer = NewSectionTimer(c.scheduler, func() { c.onExpire(subjectID) })
	if err := c.timer.Start(section.DurationSeconds()); err != nil {
		c.log.Error().Err(err).Msg("Timer start failed")
	}

	c.log.Info().
		Str("subject_id", section.SubjectID.String()).
		Int("questions", len(questions)).
		Int("duration_s", section.DurationSeconds()).
		Msg("Section loaded")
}

// ReloadSection retries a failed section load. No-op when the current
// section is already loaded.
func (c *Controller) ReloadSection() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive || c.prog == nil || c.prog.Finalized() || c.store != nil {
		return nil
	}
	c.loadSectionLocked(c.prog.Index())
	if c.store == nil {
		return errors.New(c.lastError)
	}
	return nil
}

// onExpire runs on the scheduler goroutine when the timer armed for
// subjectID fires. Nothing may panic out of a tick callback: a dead interval
// would silently freeze the exam clock.
func (c *Controller) onExpire(subjectID uuid.UUID) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Interface("panic", r).Msg("Recovered panic in expiry callback")
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive || c.prog == nil || c.prog.Finalized() {
		return
	}
	// Stale expiry: the section was submitted (and the progression moved on)
	// while this callback waited on the mutex.
	if section, ok := c.prog.Current(); !ok || section.SubjectID != subjectID {
		c.log.Debug().Str("subject_id", subjectID.String()).Msg("Dropped stale expiry")
		return
	}
	c.submitLocked(TriggerExpiry)
}

// Submit handles the manual "submit section" action for subjectID — the
// section the candidate was looking at when they clicked. A click that lands
// after the expiry path already submitted that section is a duplicate, not a
// submission of whatever section is current now.
func (c *Controller) Submit(subjectID uuid.UUID) (SubmitOutcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.alive {
		return SubmitFailed, ErrTornDown
	}
	if c.prog == nil || c.prog.Finalized() {
		return SubmitAlreadyDone, nil
	}
	if c.guard.Submitted(subjectID) {
		return SubmitAlreadyDone, nil
	}
	if section, ok := c.prog.Current(); !ok || section.SubjectID != subjectID {
		return SubmitAlreadyDone, nil
	}
	if c.store == nil {
		return SubmitFailed, ErrNoActiveSection
	}

	outcome := c.submitLocked(TriggerManual)
	if outcome == SubmitFailed {
		return outcome, errors.New(c.lastError)
	}
	return outcome, nil
}

// submitLocked drives one submission attempt for the current section.
// Caller holds c.mu; the guard's in-flight flag is set inside Submit before
// the network call starts.
func (c *Controller) submitLocked(trigger Trigger) SubmitOutcome {
	section, ok := c.prog.Current()
	if !ok {
		return SubmitAlreadyDone
	}

	// Capture stop is ordered before the submission call so the upload and
	// the answer network call are independent side effects.
	if c.capture != nil && c.capture.Running() {
		c.capture.StopSection(c.ctx)
	}

	payload := model.SectionSubmission{
		TestID:     c.cfg.TestID,
		SubjectID:  section.SubjectID,
		UserTestID: c.cfg.UserTestID,
		UserID:     c.cfg.UserID,
		TimerValue: c.timer.Remaining(),
		Answers:    c.store.Submission(),
	}
	hasAnswers := c.store.AttemptedCount() > 0

	outcome := c.guard.Submit(c.ctx, section.SubjectID, hasAnswers, func(ctx context.Context) error {
		return c.backend.SubmitSection(ctx, payload)
	})

	c.log.Info().
		Str("trigger", string(trigger)).
		Str("subject_id", section.SubjectID.String()).
		Str("outcome", outcome.String()).
		Int("answers", len(payload.Answers)).
		Msg("Section submit")

	switch outcome {
	case SubmitAdvanced:
		c.stopRetryLocked()
		if c.timer.State() == TimerRunning {
			_ = c.timer.Cancel()
		}
		c.lastError = ""
		c.store = nil
		c.prog.Advance()

	case SubmitFailed:
		// Recoverable: in-flight is already cleared, the section stays
		// unsubmitted and the candidate stays on it — with remaining time
		// intact on the manual path, or at zero on the expiry path, where we
		// keep re-attempting instead of blocking input.
		c.lastError = "section submission failed, please retry"
		if trigger != TriggerManual {
			c.armRetryLocked()
		}
	}

	return outcome
}

func (c *Controller) armRetryLocked() {
	if c.retryHandle != nil {
		return
	}
	section, ok := c.prog.Current()
	if !ok {
		return
	}
	// Bound to the section the retry was armed for, same as the expiry
	// callback: a tick already dispatched when the handle is stopped can
	// still run after a manual submit advances the progression.
	subjectID := section.SubjectID
	c.retryHandle = c.scheduler.Schedule(retryInterval, func() {
		defer func() {
			if r := recover(); r != nil {
				c.log.Error().Interface("panic", r).Msg("Recovered panic in retry callback")
			}
		}()
		c.mu.Lock()
		defer c.mu.Unlock()
		if !c.alive || c.prog == nil || c.prog.Finalized() {
			c.stopRetryLocked()
			return
		}
		// Do not stop the handle here: a fresh retry may already be armed
		// for the section that is current now.
		if current, ok := c.prog.Current(); !ok || current.SubjectID != subjectID {
			c.log.Debug().Str("subject_id", subjectID.String()).Msg("Dropped stale retry")
			return
		}
		c.submitLocked(TriggerRetry)
	})
}

func (c *Controller) stopRetryLocked() {
	if c.retryHandle != nil {
		c.retryHandle.Stop()
		c.retryHandle = nil
	}
}

// finalizeLocked runs the terminal steps after the last section submits:
// stop capture, flush the distraction log, fetch results, resolve the
// post-exam destination. Caller holds c.mu; Progression guarantees this runs
// at most once.
func (c *Controller) finalizeLocked() {
	if c.capture != nil && c.capture.Running() {
		c.capture.StopSection(c.ctx)
	}

	snap := c.tracker.Snapshot()
	report := model.DistractionReport{
		TestID:           c.cfg.TestID,
		UserID:           c.cfg.UserID,
		UserTestID:       c.cfg.UserTestID,
		Count:            snap.Count,
		TotalAwaySeconds: snap.TotalAwaySeconds,
		RecordedAt:       c.scheduler.Now(),
	}

	flushed := true
	if err := c.backend.SendDistraction(c.ctx, report); err != nil {
		flushed = false
		c.log.Warn().Err(err).Msg("Distraction flush failed, using fallback destination")
	}

	var linked *model.LinkedTest
	if flushed {
		// Result computation is triggered by the distraction flush; fetch
		// with a single retry before giving up.
		result, err := c.backend.FetchResults(c.ctx, c.cfg.TestID, c.cfg.UserID)
		if err != nil {
			result, err = c.backend.FetchResults(c.ctx, c.cfg.TestID, c.cfg.UserID)
		}
		if err != nil {
			c.log.Warn().Err(err).Msg("Result fetch failed twice, falling back to linked test lookup")
		} else {
			c.result = result
		}
	}

	linked, err := c.backend.FetchLinkedTest(c.ctx, c.cfg.TestID)
	if err != nil {
		c.log.Warn().Err(err).Msg("Linked test lookup failed")
		linked = nil
	}

	c.destination = resolveDestination(linked, c.cfg.Role)
	c.log.Info().Str("destination", c.destination).Msg("Session finalized")
}

// resolveDestination picks the post-exam redirect: a linked follow-on test
// wins; otherwise a role-appropriate default.
func resolveDestination(linked *model.LinkedTest, role model.Role) string {
	if linked != nil {
		return "/exam/" + linked.NextTestID.String()
	}
	if role == model.RoleAdmin {
		return "/admin/results"
	}
	return "/results"
}

// ApplyEdit routes an answer edit into the current section's store.
func (c *Controller) ApplyEdit(edit model.AnswerEditRequest) (model.AnswerState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive {
		return model.AnswerState{}, ErrTornDown
	}
	if c.store == nil {
		return model.AnswerState{}, ErrNoActiveSection
	}
	return c.store.Apply(edit)
}

// Visibility records a page visibility transition.
func (c *Controller) Visibility(hidden bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.alive || c.prog == nil || c.prog.Finalized() {
		return
	}
	if hidden {
		c.tracker.Hidden()
	} else {
		c.tracker.Visible()
	}
}

// State snapshots the session for the exam page.
func (c *Controller) State() model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	state := model.SessionState{
		TestID:      c.cfg.TestID,
		UserTestID:  c.cfg.UserTestID,
		Finalized:   c.prog != nil && c.prog.Finalized(),
		Destination: c.destination,
	}
	if c.prog == nil {
		return state
	}
	state.Sections = c.prog.Sections()
	state.CurrentSectionIndex = c.prog.Index()

	section, ok := c.prog.Current()
	if !ok || c.store == nil {
		return state
	}

	questions := make([]model.QuestionForCandidate, 0, len(c.store.Questions()))
	for _, q := range c.store.Questions() {
		questions = append(questions, q.ForCandidate())
	}
	state.Current = &model.SectionState{
		Section:          section,
		Questions:        questions,
		Answers:          c.store.States(),
		RemainingSeconds: c.timer.Remaining(),
		RemainingClock:   c.timer.RemainingClock(),
		Submitted:        c.guard.Submitted(section.SubjectID),
	}
	return state
}

// Result returns the computed result once finalization has fetched it.
func (c *Controller) Result() *model.TestResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Finalized reports whether the session has completed all sections.
func (c *Controller) Finalized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prog != nil && c.prog.Finalized()
}

// LastError returns the current user-visible error, empty when none.
func (c *Controller) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}

// Teardown discards the session: stops the timer and any retry schedule,
// stops capture, and aborts in-flight backend calls. After Teardown no
// callback mutates state; every entry point checks the liveness flag.
func (c *Controller) Teardown() {
	c.mu.Lock()
	if !c.alive {
		c.mu.Unlock()
		return
	}
	c.alive = false
	c.stopRetryLocked()
	if c.timer != nil && c.timer.State() == TimerRunning {
		_ = c.timer.Cancel()
	}
	capture := c.capture
	ctx := c.ctx
	c.mu.Unlock()

	if capture != nil && capture.Running() {
		capture.StopSection(ctx)
	}
	c.cancel()
	c.log.Info().Msg("Session torn down")
}
