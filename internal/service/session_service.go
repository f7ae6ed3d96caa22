package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/capture"
	"github.com/velora-edu/examspace-backend/internal/clock"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/engine"
	"github.com/velora-edu/examspace-backend/internal/model"
	"github.com/velora-edu/examspace-backend/internal/repository"
)

// Sentinel errors for session operations.
var (
	ErrTestNotFound     = errors.New("test not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionForbidden = errors.New("session belongs to another candidate")
	ErrAttemptCompleted = errors.New("attempt already completed")
)

// resultPoll is how long FetchResults waits between attempts while the
// scoring worker catches up.
const (
	resultPollInterval = 500 * time.Millisecond
	resultPollMax      = 6
)

// sessionEntry pairs a live controller with its owner and capture buffer.
type sessionEntry struct {
	ctrl   *engine.Controller
	userID int
	buffer *capture.ChunkBuffer // nil when capture is disabled
}

// SessionService runs live exam sessions. It is both the registry of
// controllers (one per attempt) and the engine's Backend: section and
// question loads, sealed submissions, distraction flushes and result lookups
// all resolve here against PostgreSQL and Redis.
type SessionService struct {
	cfg        *config.Config
	rdb        *redis.Client
	scheduler  clock.Scheduler
	captureSvc *CaptureService

	testRepo       *repository.TestRepository
	sectionRepo    *repository.SectionRepository
	questionRepo   *repository.QuestionRepository
	answerRepo     *repository.AnswerRepository
	userTestRepo   *repository.UserTestRepository
	submissionRepo *repository.SubmissionRepository
	resultRepo     *repository.ResultRepository

	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry

	log zerolog.Logger
}

// NewSessionService creates the session service.
func NewSessionService(
	cfg *config.Config,
	rdb *redis.Client,
	scheduler clock.Scheduler,
	captureSvc *CaptureService,
	testRepo *repository.TestRepository,
	sectionRepo *repository.SectionRepository,
	questionRepo *repository.QuestionRepository,
	answerRepo *repository.AnswerRepository,
	userTestRepo *repository.UserTestRepository,
	submissionRepo *repository.SubmissionRepository,
	resultRepo *repository.ResultRepository,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		cfg:            cfg,
		rdb:            rdb,
		scheduler:      scheduler,
		captureSvc:     captureSvc,
		testRepo:       testRepo,
		sectionRepo:    sectionRepo,
		questionRepo:   questionRepo,
		answerRepo:     answerRepo,
		userTestRepo:   userTestRepo,
		submissionRepo: submissionRepo,
		resultRepo:     resultRepo,
		sessions:       make(map[uuid.UUID]*sessionEntry),
		log:            log.With().Str("component", "session_service").Logger(),
	}
}

// ----------------------------------------------------------------
// Registry: session lifecycle
// ----------------------------------------------------------------

// StartSession mounts (or resumes) the attempt for userID on testID and
// returns the initial state snapshot. Re-entry while a controller is live
// returns the live state; re-entry after a process restart rebuilds the
// controller from sealed submissions and saved answers.
func (s *SessionService) StartSession(ctx context.Context, userID int, role model.Role, testID uuid.UUID) (model.SessionState, error) {
	test, err := s.testRepo.GetByID(ctx, testID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.SessionState{}, ErrTestNotFound
	}
	if err != nil {
		return model.SessionState{}, err
	}

	ut, err := s.userTestRepo.CreateOrResume(ctx, testID, userID)
	if err != nil {
		return model.SessionState{}, err
	}
	if ut.Status == model.UserTestStatusCompleted {
		return model.SessionState{}, ErrAttemptCompleted
	}

	s.mu.Lock()
	if entry, ok := s.sessions[ut.ID]; ok {
		s.mu.Unlock()
		if entry.userID != userID {
			return model.SessionState{}, ErrSessionForbidden
		}
		return entry.ctrl.State(), nil
	}
	s.mu.Unlock()

	sealed, err := s.submissionRepo.ListSubmittedSubjects(ctx, ut.ID)
	if err != nil {
		return model.SessionState{}, err
	}

	entry := &sessionEntry{userID: userID}
	var capt engine.Capture
	if s.cfg.CaptureEnabled && test.CaptureEnabled && s.captureSvc != nil {
		entry.buffer = capture.NewChunkBuffer(s.cfg.MaxCaptureBytes)
		capt = capture.NewAdapter(testID, ut.ID, entry.buffer, s.captureSvc, s.log)
	}

	ctrl := engine.NewController(engine.Config{
		TestID:     testID,
		UserTestID: ut.ID,
		UserID:     userID,
		Role:       role,
	}, s, s.scheduler, capt, s.log)
	entry.ctrl = ctrl

	s.mu.Lock()
	if existing, ok := s.sessions[ut.ID]; ok {
		// Lost the race with a concurrent start of the same attempt.
		s.mu.Unlock()
		ctrl.Teardown()
		return existing.ctrl.State(), nil
	}
	s.sessions[ut.ID] = entry
	s.mu.Unlock()

	if err := ctrl.Start(sealed...); err != nil {
		s.removeSession(ut.ID)
		ctrl.Teardown()
		return model.SessionState{}, err
	}

	s.rdb.Set(ctx, config.CacheKey.ActiveSessionKey(userID), ut.ID.String(), 24*time.Hour)
	s.rdb.SetNX(ctx, config.CacheKey.SessionStartKey(ut.ID.String()), ut.StartedAt.Format(time.RFC3339), 24*time.Hour)

	s.log.Info().
		Str("test_id", testID.String()).
		Str("user_test_id", ut.ID.String()).
		Int("user_id", userID).
		Int("sealed", len(sealed)).
		Msg("Session mounted")
	return ctrl.State(), nil
}

// getEntry retrieves a live session and enforces ownership.
func (s *SessionService) getEntry(userTestID uuid.UUID, userID int) (*sessionEntry, error) {
	s.mu.Lock()
	entry, ok := s.sessions[userTestID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if entry.userID != userID {
		return nil, ErrSessionForbidden
	}
	return entry, nil
}

func (s *SessionService) removeSession(userTestID uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, userTestID)
	s.mu.Unlock()
}

// GetState snapshots a live session for the exam page.
func (s *SessionService) GetState(userTestID uuid.UUID, userID int) (model.SessionState, error) {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return model.SessionState{}, err
	}
	return entry.ctrl.State(), nil
}

// ReloadSection retries a failed section load on a live session.
func (s *SessionService) ReloadSection(userTestID uuid.UUID, userID int) error {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return err
	}
	return entry.ctrl.ReloadSection()
}

// autosavePayload is the queue message consumed by the snapshot worker.
type autosavePayload struct {
	UserTestID      string `json:"user_test_id"`
	SubjectID       string `json:"subject_id"`
	QuestionNumber  string `json:"question_number"`
	RawValue        string `json:"raw_value"`
	MarkedForReview bool   `json:"marked_for_review"`
}

// ApplyAnswerEdit routes an answer edit into the session and enqueues the
// resulting state for background persistence.
func (s *SessionService) ApplyAnswerEdit(ctx context.Context, userTestID uuid.UUID, userID int, edit model.AnswerEditRequest) (model.AnswerState, error) {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return model.AnswerState{}, err
	}

	state, err := entry.ctrl.ApplyEdit(edit)
	if err != nil {
		return model.AnswerState{}, err
	}

	snap := entry.ctrl.State()
	if snap.Current != nil {
		subjectID := snap.Current.Section.SubjectID.String()
		payload, merr := json.Marshal(autosavePayload{
			UserTestID:      userTestID.String(),
			SubjectID:       subjectID,
			QuestionNumber:  state.QuestionNumber,
			RawValue:        state.RawValue,
			MarkedForReview: state.MarkedForReview,
		})
		if merr == nil {
			s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, payload)
		}
		// Live answer hash for the monitor view; best effort.
		s.rdb.HSet(ctx, config.CacheKey.SessionAnswersKey(userTestID.String(), subjectID),
			state.QuestionNumber, state.RawValue)
	}
	return state, nil
}

// SubmitCurrentSection submits subjectID for a live session.
func (s *SessionService) SubmitCurrentSection(userTestID uuid.UUID, userID int, subjectID uuid.UUID) (engine.SubmitOutcome, error) {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return engine.SubmitFailed, err
	}
	return entry.ctrl.Submit(subjectID)
}

// ReportVisibility records a page visibility transition.
func (s *SessionService) ReportVisibility(userTestID uuid.UUID, userID int, hidden bool) error {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return err
	}
	entry.ctrl.Visibility(hidden)
	return nil
}

// AppendCaptureChunk feeds one uploaded recording chunk into the session's
// capture buffer.
func (s *SessionService) AppendCaptureChunk(userTestID uuid.UUID, userID int, chunk []byte) error {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return err
	}
	if entry.buffer == nil {
		return capture.ErrNotRecording
	}
	return entry.buffer.Append(chunk)
}

// Result returns the computed result once a session has finalized.
func (s *SessionService) Result(userTestID uuid.UUID, userID int) (*model.TestResult, error) {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return nil, err
	}
	return entry.ctrl.Result(), nil
}

// CloseSession tears a session down and forgets it. Called on logout and
// after the exam page has left a finalized session.
func (s *SessionService) CloseSession(ctx context.Context, userTestID uuid.UUID, userID int) error {
	entry, err := s.getEntry(userTestID, userID)
	if err != nil {
		return err
	}
	entry.ctrl.Teardown()
	s.removeSession(userTestID)
	s.rdb.Del(ctx, config.CacheKey.ActiveSessionKey(userID))
	return nil
}

// Shutdown tears down every live session. Called on process exit.
func (s *SessionService) Shutdown() {
	s.mu.Lock()
	entries := make([]*sessionEntry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.sessions = make(map[uuid.UUID]*sessionEntry)
	s.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Teardown()
	}
}

// ----------------------------------------------------------------
// engine.Backend
// ----------------------------------------------------------------

// FetchSections loads a test's ordered section list.
func (s *SessionService) FetchSections(ctx context.Context, testID uuid.UUID) ([]model.Section, error) {
	return s.sectionRepo.ListByTest(ctx, testID)
}

// FetchQuestions loads one section's questions plus the candidate's saved
// answers, so a resumed session restores what was already entered.
func (s *SessionService) FetchQuestions(ctx context.Context, testID, subjectID uuid.UUID, userID int) ([]model.Question, map[string]string, error) {
	questions, err := s.questionRepo.ListBySection(ctx, testID, subjectID)
	if err != nil {
		return nil, nil, err
	}

	ut, err := s.userTestRepo.GetByTestAndUser(ctx, testID, userID)
	if err != nil {
		return nil, nil, err
	}
	saved, err := s.answerRepo.ListBySection(ctx, ut.ID, subjectID)
	if err != nil {
		return nil, nil, err
	}

	prior := make(map[string]string, len(saved))
	for number, a := range saved {
		prior[number] = a.RawValue
	}
	return questions, prior, nil
}

// SubmitSection seals one section's answers and marks the section submitted
// in the session cache.
func (s *SessionService) SubmitSection(ctx context.Context, sub model.SectionSubmission) error {
	if err := s.submissionRepo.Record(ctx, &sub); err != nil {
		return err
	}
	s.rdb.Set(ctx, config.CacheKey.SectionSubmittedKey(sub.UserTestID.String(), sub.SubjectID.String()),
		1, 24*time.Hour)
	return nil
}

// scoringPayload is the queue message consumed by the scoring worker.
type scoringPayload struct {
	UserTestID string `json:"user_test_id"`
}

// SendDistraction flushes the session's distraction log and kicks off score
// computation. Both ride the worker queues; an enqueue failure surfaces as a
// flush failure so the engine takes its fallback path.
func (s *SessionService) SendDistraction(ctx context.Context, report model.DistractionReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return err
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistDistractionsQueue, payload).Err(); err != nil {
		return err
	}

	score, err := json.Marshal(scoringPayload{UserTestID: report.UserTestID.String()})
	if err != nil {
		return err
	}
	return s.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, score).Err()
}

// FetchResults retrieves the computed result, polling briefly while the
// scoring worker finishes the attempt.
func (s *SessionService) FetchResults(ctx context.Context, testID uuid.UUID, userID int) (*model.TestResult, error) {
	ut, err := s.userTestRepo.GetByTestAndUser(ctx, testID, userID)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		result, err := s.resultRepo.GetResult(ctx, ut.ID)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, repository.ErrResultNotReady) || attempt >= resultPollMax {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(resultPollInterval):
		}
	}
}

// FetchLinkedTest retrieves the follow-on test for testID, if any.
func (s *SessionService) FetchLinkedTest(ctx context.Context, testID uuid.UUID) (*model.LinkedTest, error) {
	return s.testRepo.GetLinkedTest(ctx, testID)
}
