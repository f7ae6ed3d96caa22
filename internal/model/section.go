package model

import "github.com/google/uuid"

// Section is one timed subject block of an exam. Sections are immutable once
// loaded for a session; their list order defines the mandatory progression
// order (no re-ordering, no skipping).
type Section struct {
	SubjectID       uuid.UUID `json:"subject_id"`
	Description     string    `json:"description"`
	DurationMinutes int       `json:"duration_minutes"`
	Position        int       `json:"position"`
}

// DurationSeconds returns the section's time allotment in whole seconds.
func (s Section) DurationSeconds() int {
	return s.DurationMinutes * 60
}
