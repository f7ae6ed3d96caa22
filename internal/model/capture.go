package model

import (
	"time"

	"github.com/google/uuid"
)

// CaptureUpload is the persisted metadata of one stored proctoring blob.
type CaptureUpload struct {
	ID         uuid.UUID `json:"id"`
	TestID     uuid.UUID `json:"test_id"`
	SubjectID  uuid.UUID `json:"subject_id"`
	UserTestID uuid.UUID `json:"user_test_id"`
	Path       string    `json:"path"`
	SizeBytes  int64     `json:"size_bytes"`
	RecordedAt time.Time `json:"recorded_at"`
}
