package model

import (
	"time"

	"github.com/google/uuid"
)

// Test is an exam definition: an ordered set of timed sections.
type Test struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	CaptureEnabled bool      `json:"capture_enabled"`
	CreatedAt      time.Time `json:"created_at"`
}
