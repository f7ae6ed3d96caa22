package model

import (
	"time"

	"github.com/google/uuid"
)

// SectionScore is one subject's computed outcome within a test result.
type SectionScore struct {
	SubjectID   uuid.UUID `json:"subject_id"`
	Description string    `json:"description"`
	Attempted   int       `json:"attempted"`
	Correct     int       `json:"correct"`
	Score       float64   `json:"score"`
}

// TestResult is the computed result of a finished attempt.
type TestResult struct {
	TestID     uuid.UUID      `json:"test_id"`
	UserID     int            `json:"user_id"`
	UserTestID uuid.UUID      `json:"user_test_id"`
	TotalScore float64        `json:"total_score"`
	Sections   []SectionScore `json:"sections"`
	ComputedAt time.Time      `json:"computed_at"`
}

// LinkedTest points a finished attempt at a follow-on test, when one exists.
type LinkedTest struct {
	TestID     uuid.UUID `json:"test_id"`
	NextTestID uuid.UUID `json:"next_test_id"`
	Title      string    `json:"title"`
}

// SectionSubmission is the wire payload for submitting one section's answers.
type SectionSubmission struct {
	TestID     uuid.UUID         `json:"test_id"`
	SubjectID  uuid.UUID         `json:"subject_id"`
	UserTestID uuid.UUID         `json:"user_test_id"`
	UserID     int               `json:"user_id"`
	TimerValue int               `json:"timer_value"` // remaining seconds at submit
	Answers    []SubmittedAnswer `json:"answers"`
}

// SubmittedAnswer echoes question metadata back with the canonical value, so
// scoring does not have to re-join the question bank per answer.
type SubmittedAnswer struct {
	QuestionNumber string       `json:"question_number"`
	RawValue       string       `json:"raw_value"`
	Type           QuestionType `json:"type"`
	NegativeMarks  float64      `json:"negative_marks"`
	TopicID        *uuid.UUID   `json:"topic_id,omitempty"`
}
