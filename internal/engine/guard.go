package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// SubmitOutcome is the result of a SubmissionGuard.Submit call.
type SubmitOutcome int

const (
	// SubmitAdvanced: the section is now submitted; progression may advance.
	SubmitAdvanced SubmitOutcome = iota
	// SubmitAlreadyDone: this section was submitted earlier; no call was made.
	SubmitAlreadyDone
	// SubmitDropped: another submission is in flight; this attempt was
	// dropped, not queued.
	SubmitDropped
	// SubmitFailed: the network call failed; the section stays unsubmitted
	// and the same trigger may retry.
	SubmitFailed
)

func (o SubmitOutcome) String() string {
	switch o {
	case SubmitAdvanced:
		return "ADVANCED"
	case SubmitAlreadyDone:
		return "ALREADY_SUBMITTED"
	case SubmitDropped:
		return "DROPPED"
	case SubmitFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// SubmissionGuard serializes the two independent submit triggers (timer
// expiry and manual click) so the backend receives at most one successful
// submission per section. The submitted set and the in-flight flag are the
// only state shared between the two call paths; both live behind one mutex,
// and the in-flight flag is set before any network work starts.
type SubmissionGuard struct {
	mu        sync.Mutex
	submitted map[uuid.UUID]bool
	inFlight  bool
}

// NewSubmissionGuard creates an empty guard. Guards live for the whole
// session and are cleared only when the session is torn down.
func NewSubmissionGuard() *SubmissionGuard {
	return &SubmissionGuard{submitted: make(map[uuid.UUID]bool)}
}

// Submit drives one submission attempt for subjectID. send performs the
// network call; it is skipped entirely when hasAnswers is false (nothing to
// submit), in which case the section is still marked submitted.
func (g *SubmissionGuard) Submit(ctx context.Context, subjectID uuid.UUID, hasAnswers bool, send func(context.Context) error) SubmitOutcome {
	g.mu.Lock()
	if g.submitted[subjectID] {
		g.mu.Unlock()
		return SubmitAlreadyDone
	}
	if g.inFlight {
		g.mu.Unlock()
		return SubmitDropped
	}
	g.inFlight = true
	g.mu.Unlock()

	if !hasAnswers {
		g.finish(subjectID, true)
		return SubmitAdvanced
	}

	if err := send(ctx); err != nil {
		g.finish(subjectID, false)
		return SubmitFailed
	}

	g.finish(subjectID, true)
	return SubmitAdvanced
}

func (g *SubmissionGuard) finish(subjectID uuid.UUID, success bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.inFlight = false
	if success {
		g.submitted[subjectID] = true
	}
}

// MarkSubmitted pre-seals subjectID without a network call. Used when
// resuming a session whose earlier sections were sealed by a prior process.
func (g *SubmissionGuard) MarkSubmitted(subjectID uuid.UUID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.submitted[subjectID] = true
}

// Submitted reports whether subjectID has been successfully submitted.
func (g *SubmissionGuard) Submitted(subjectID uuid.UUID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.submitted[subjectID]
}

// InFlight reports whether any submission is currently being sent.
func (g *SubmissionGuard) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.inFlight
}
