package model

import (
	"time"

	"github.com/google/uuid"
)

// UserTestStatus enumerates the persisted states of a candidate's attempt.
type UserTestStatus string

const (
	UserTestStatusInProgress UserTestStatus = "IN_PROGRESS"
	UserTestStatusCompleted  UserTestStatus = "COMPLETED"
)

// UserTest is the persisted attempt record linking a candidate to a test.
type UserTest struct {
	ID         uuid.UUID      `json:"id"`
	TestID     uuid.UUID      `json:"test_id"`
	UserID     int            `json:"user_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Status     UserTestStatus `json:"status"`
	FinalScore *float64       `json:"final_score,omitempty"`
}

// StartSessionRequest is the payload for mounting a new exam session.
type StartSessionRequest struct {
	TestID string `json:"test_id" binding:"required,uuid"`
}

// VisibilityRequest reports a page visibility transition from the exam page.
type VisibilityRequest struct {
	State string `json:"state" binding:"required,oneof=hidden visible"`
}

// SectionState is the per-section slice of a session state snapshot.
type SectionState struct {
	Section          Section                `json:"section"`
	Questions        []QuestionForCandidate `json:"questions"`
	Answers          []AnswerState          `json:"answers"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	RemainingClock   string                 `json:"remaining_clock"`
	Submitted        bool                   `json:"submitted"`
}

// SessionState is the snapshot returned to the exam page on load/reload.
type SessionState struct {
	TestID              uuid.UUID   `json:"test_id"`
	UserTestID          uuid.UUID   `json:"user_test_id"`
	Sections            []Section   `json:"sections"`
	CurrentSectionIndex int         `json:"current_section_index"`
	Current             *SectionState `json:"current,omitempty"`
	Finalized           bool        `json:"finalized"`
	Destination         string      `json:"destination,omitempty"`
}
