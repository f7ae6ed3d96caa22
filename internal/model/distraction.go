package model

import (
	"time"

	"github.com/google/uuid"
)

// DistractionLog accumulates tab/window visibility transitions for a whole
// session. It is flushed to the backend once, at finalization.
type DistractionLog struct {
	Count            int        `json:"count"`
	TotalAwaySeconds float64    `json:"total_away_seconds"`
	AwayStartedAt    *time.Time `json:"away_started_at,omitempty"`
}

// DistractionReport is the flush payload persisted at finalization.
type DistractionReport struct {
	TestID           uuid.UUID `json:"test_id"`
	UserID           int       `json:"user_id"`
	UserTestID       uuid.UUID `json:"user_test_id"`
	Count            int       `json:"distraction_count"`
	TotalAwaySeconds float64   `json:"distraction_seconds"`
	RecordedAt       time.Time `json:"recorded_at"`
}
