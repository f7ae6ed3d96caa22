package model

import "github.com/google/uuid"

// QuestionType is the closed set of supported question kinds. Each type
// carries only the fields relevant to its canonical answer encoding.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeMultiChoice  QuestionType = "MULTI_CHOICE"
	QuestionTypeText         QuestionType = "TEXT"
	QuestionTypeLongText     QuestionType = "LONG_TEXT"
	QuestionTypeOrder        QuestionType = "ORDER"
)

// Valid reports whether t is one of the five supported types.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice,
		QuestionTypeText, QuestionTypeLongText, QuestionTypeOrder:
		return true
	}
	return false
}

// HasChoices reports whether the type uses the A–D choice alphabet.
func (t QuestionType) HasChoices() bool {
	switch t {
	case QuestionTypeSingleChoice, QuestionTypeMultiChoice, QuestionTypeOrder:
		return true
	}
	return false
}

// Question is a single item within a section. Choices beyond the ones a
// choice/order question defines are nil; free-text questions carry none.
type Question struct {
	ID             uuid.UUID    `json:"id"`
	QuestionNumber string       `json:"question_number"`
	Type           QuestionType `json:"type"`
	Body           string       `json:"body"`
	Choices        [4]*string   `json:"choices"`
	NegativeMarks  float64      `json:"negative_marks"`
	TopicID        *uuid.UUID   `json:"topic_id,omitempty"`

	// Resource metadata consumed only by the rendering layer.
	ResourceType string `json:"resource_type,omitempty"`
	Paragraph    string `json:"paragraph,omitempty"`
	HelpFileRef  string `json:"help_file_ref,omitempty"`
}

// Letters returns the choice letters present on this question, in alphabet
// order. Free-text questions return nil.
func (q Question) Letters() []string {
	if !q.Type.HasChoices() {
		return nil
	}
	letters := make([]string, 0, len(q.Choices))
	for i, c := range q.Choices {
		if c != nil {
			letters = append(letters, string(rune('A'+i)))
		}
	}
	return letters
}

// QuestionForCandidate is the question payload sent to the exam page: no
// correct answer, no scoring internals.
type QuestionForCandidate struct {
	QuestionNumber string       `json:"question_number"`
	Type           QuestionType `json:"type"`
	Body           string       `json:"body"`
	Choices        [4]*string   `json:"choices"`
	ResourceType   string       `json:"resource_type,omitempty"`
	Paragraph      string       `json:"paragraph,omitempty"`
	HelpFileRef    string       `json:"help_file_ref,omitempty"`
}

// ForCandidate strips scoring fields from a question.
func (q Question) ForCandidate() QuestionForCandidate {
	return QuestionForCandidate{
		QuestionNumber: q.QuestionNumber,
		Type:           q.Type,
		Body:           q.Body,
		Choices:        q.Choices,
		ResourceType:   q.ResourceType,
		Paragraph:      q.Paragraph,
		HelpFileRef:    q.HelpFileRef,
	}
}
