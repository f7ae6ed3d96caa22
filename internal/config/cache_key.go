package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// CandidateSessionKey returns the cache key for a candidate's login session
func (r *CacheKeyStruct) CandidateSessionKey(userID int) string {
	return fmt.Sprintf("login:%d", userID)
}

// SessionStartKey returns the cache key for an exam session start timestamp
func (r *CacheKeyStruct) SessionStartKey(userTestID string) string {
	return fmt.Sprintf("session:%s:started_at", userTestID)
}

// SessionAnswersKey returns the cache key for a session's live answer hash
func (r *CacheKeyStruct) SessionAnswersKey(userTestID, subjectID string) string {
	return fmt.Sprintf("session:%s:subject:%s:answers", userTestID, subjectID)
}

// ActiveSessionKey returns the cache key for a candidate's active attempt
func (r *CacheKeyStruct) ActiveSessionKey(userID int) string {
	return fmt.Sprintf("candidate:%d:active_session", userID)
}

// SectionSubmittedKey returns the cache key for a section's submitted marker
func (r *CacheKeyStruct) SectionSubmittedKey(userTestID, subjectID string) string {
	return fmt.Sprintf("session:%s:subject:%s:submitted", userTestID, subjectID)
}

var CacheKey = NewCacheKeyStruct()
