package codec

import (
	"errors"
	"fmt"

	"github.com/velora-edu/examspace-backend/internal/model"
)

// Edit application errors.
var (
	ErrEditMismatch  = errors.New("edit kind not valid for question type")
	ErrInvalidLetter = errors.New("letter not present on this question")
)

// Apply converts a UI-level edit into the next canonical RawValue for the
// question. It is pure: the current value is read, never mutated in place.
func Apply(q model.Question, current string, edit model.AnswerEditRequest) (string, error) {
	switch edit.Kind {
	case model.EditClear:
		// Clearing an ORDER question resets to the identity permutation, not
		// to empty, so the board always shows a full arrangement.
		if q.Type == model.QuestionTypeOrder {
			return IdentityOrder(q.Letters()), nil
		}
		return "", nil

	case model.EditSelect:
		if q.Type != model.QuestionTypeSingleChoice {
			return "", fmt.Errorf("%w: %s on %s", ErrEditMismatch, edit.Kind, q.Type)
		}
		letter := EncodeSingle(edit.Letter)
		if letter == "" || !letterPresent(q, letter) {
			return "", fmt.Errorf("%w: %q", ErrInvalidLetter, edit.Letter)
		}
		return letter, nil

	case model.EditToggle:
		if q.Type != model.QuestionTypeMultiChoice {
			return "", fmt.Errorf("%w: %s on %s", ErrEditMismatch, edit.Kind, q.Type)
		}
		letter := EncodeSingle(edit.Letter)
		if letter == "" || !letterPresent(q, letter) {
			return "", fmt.Errorf("%w: %q", ErrInvalidLetter, edit.Letter)
		}
		selected := Display(current, q.Letters())
		if contains(selected, letter) {
			selected = remove(selected, letter)
		} else {
			selected = append(selected, letter)
		}
		return EncodeMulti(selected), nil

	case model.EditText:
		if q.Type != model.QuestionTypeText && q.Type != model.QuestionTypeLongText {
			return "", fmt.Errorf("%w: %s on %s", ErrEditMismatch, edit.Kind, q.Type)
		}
		return EncodeText(edit.Text), nil

	case model.EditReorder:
		if q.Type != model.QuestionTypeOrder {
			return "", fmt.Errorf("%w: %s on %s", ErrEditMismatch, edit.Kind, q.Type)
		}
		// Reorder operates on the displayed arrangement (stale letters
		// hidden); the result becomes the new stored value, which is the one
		// point where stale letters are finally dropped.
		arrangement := Display(ReconcileOrder(current, q.Letters()), q.Letters())
		return IdentityOrder(Reorder(arrangement, edit.SrcIndex, edit.DstIndex)), nil
	}

	return "", fmt.Errorf("%w: unknown edit %q", ErrEditMismatch, edit.Kind)
}

func letterPresent(q model.Question, letter string) bool {
	for _, l := range q.Letters() {
		if l == letter {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
