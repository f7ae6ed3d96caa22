package engine

import (
	"fmt"

	"github.com/velora-edu/examspace-backend/internal/codec"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// AnswerStore holds the mutable answer state for the current section, keyed
// by question number. It is created when a section's questions are fetched
// and discarded after the section submits. Mutation happens only through
// Apply, on the controller's goroutine.
type AnswerStore struct {
	questions []model.Question
	byNumber  map[string]*model.AnswerState
}

// NewAnswerStore seeds one AnswerState per question with the
// type-appropriate default, restoring prior values for resumed sessions.
func NewAnswerStore(questions []model.Question, prior map[string]string) *AnswerStore {
	s := &AnswerStore{
		questions: questions,
		byNumber:  make(map[string]*model.AnswerState, len(questions)),
	}
	for _, q := range questions {
		raw := codec.DefaultValue(q)
		if p, ok := prior[q.QuestionNumber]; ok {
			raw = codec.RestoreValue(q, p)
		}
		s.byNumber[q.QuestionNumber] = &model.AnswerState{
			QuestionNumber: q.QuestionNumber,
			RawValue:       raw,
		}
	}
	return s
}

// Apply performs one answer edit and returns the updated state.
func (s *AnswerStore) Apply(edit model.AnswerEditRequest) (model.AnswerState, error) {
	state, ok := s.byNumber[edit.QuestionNumber]
	if !ok {
		return model.AnswerState{}, fmt.Errorf("unknown question %q", edit.QuestionNumber)
	}

	if edit.Kind == model.EditReview {
		state.MarkedForReview = !state.MarkedForReview
		return *state, nil
	}

	q, _ := s.question(edit.QuestionNumber)
	raw, err := codec.Apply(q, state.RawValue, edit)
	if err != nil {
		return model.AnswerState{}, err
	}
	state.RawValue = raw
	return *state, nil
}

func (s *AnswerStore) question(number string) (model.Question, bool) {
	for _, q := range s.questions {
		if q.QuestionNumber == number {
			return q, true
		}
	}
	return model.Question{}, false
}

// Questions returns the section's questions in fetch order.
func (s *AnswerStore) Questions() []model.Question {
	return s.questions
}

// States returns answer states in question order.
func (s *AnswerStore) States() []model.AnswerState {
	out := make([]model.AnswerState, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, *s.byNumber[q.QuestionNumber])
	}
	return out
}

// AttemptedCount returns how many questions carry a non-empty value. Note
// that ORDER questions default to the identity permutation and therefore
// count as attempted from the moment the section loads.
func (s *AnswerStore) AttemptedCount() int {
	n := 0
	for _, q := range s.questions {
		if s.byNumber[q.QuestionNumber].Attempted() {
			n++
		}
	}
	return n
}

// Submission collects the attempted answers with their question metadata
// echoed back for scoring.
func (s *AnswerStore) Submission() []model.SubmittedAnswer {
	out := make([]model.SubmittedAnswer, 0, len(s.questions))
	for _, q := range s.questions {
		state := s.byNumber[q.QuestionNumber]
		if !state.Attempted() {
			continue
		}
		out = append(out, model.SubmittedAnswer{
			QuestionNumber: q.QuestionNumber,
			RawValue:       state.RawValue,
			Type:           q.Type,
			NegativeMarks:  q.NegativeMarks,
			TopicID:        q.TopicID,
		})
	}
	return out
}
