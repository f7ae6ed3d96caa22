package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/velora-edu/examspace-backend/internal/model"
)

func strPtr(s string) *string { return &s }

func choiceQuestion(t model.QuestionType, n int) model.Question {
	q := model.Question{QuestionNumber: "1", Type: t}
	for i := 0; i < n; i++ {
		q.Choices[i] = strPtr("choice")
	}
	return q
}

func TestEncodeMulti(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  string
	}{
		{"dedup and sort", []string{"c", "A"}, "A,C"},
		{"trim and case", []string{"C", "a", " A "}, "A,C"},
		{"all four", []string{"D", "C", "B", "A"}, "A,B,C,D"},
		{"duplicates", []string{"B", "b", " B"}, "B"},
		{"invalid dropped", []string{"E", "1", ""}, ""},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeMulti(tt.input))
		})
	}
}

func TestMultiRoundTrip(t *testing.T) {
	// decode(encode(subset)) == sortedDedup(subset) for all valid subsets.
	subsets := [][]string{
		{}, {"A"}, {"B"}, {"C"}, {"D"},
		{"A", "B"}, {"B", "D"}, {"A", "C", "D"}, {"A", "B", "C", "D"},
		{"d", " a", "D"},
	}
	for _, s := range subsets {
		assert.Equal(t, SortedDedup(s), append([]string{}, DecodeMulti(EncodeMulti(s))...))
	}
}

func TestEncodeSingle(t *testing.T) {
	assert.Equal(t, "A", EncodeSingle(" a "))
	assert.Equal(t, "D", EncodeSingle("D"))
	assert.Equal(t, "", EncodeSingle("E"))
	assert.Equal(t, "", EncodeSingle(""))
}

func TestEncodeTextVerbatim(t *testing.T) {
	// Free text is trimmed but never uppercased.
	assert.Equal(t, "MixedCase answer", EncodeText("  MixedCase answer \n"))
}

func TestIdentityOrderDefault(t *testing.T) {
	q := choiceQuestion(model.QuestionTypeOrder, 3)
	assert.Equal(t, "A,B,C", DefaultValue(q))

	q4 := choiceQuestion(model.QuestionTypeOrder, 4)
	assert.Equal(t, "A,B,C,D", DefaultValue(q4))
}

func TestReorder(t *testing.T) {
	assert.Equal(t, []string{"B", "C", "A"}, Reorder([]string{"A", "B", "C"}, 0, 2))
	assert.Equal(t, []string{"C", "A", "B"}, Reorder([]string{"A", "B", "C"}, 2, 0))
	assert.Equal(t, []string{"A", "C", "B", "D"}, Reorder([]string{"A", "B", "C", "D"}, 2, 1))
	// Out-of-range moves are no-ops.
	assert.Equal(t, []string{"A", "B"}, Reorder([]string{"A", "B"}, 5, 0))
	assert.Equal(t, []string{"A", "B"}, Reorder([]string{"A", "B"}, 0, 7))
}

func TestReorderDoesNotMutateInput(t *testing.T) {
	in := []string{"A", "B", "C"}
	_ = Reorder(in, 0, 2)
	assert.Equal(t, []string{"A", "B", "C"}, in)
}

func TestReconcileOrderAppendsMissing(t *testing.T) {
	// A letter present in choices but absent from the stored order is
	// appended at the end.
	assert.Equal(t, "C,A,B,D", ReconcileOrder("C,A", []string{"A", "B", "C", "D"}))
	assert.Equal(t, "A,B,C", ReconcileOrder("", []string{"A", "B", "C"}))
}

func TestDisplayDropsStaleLettersWithoutRewriting(t *testing.T) {
	stored := "A,D,B"
	// D was removed from the choice set: hidden on display...
	assert.Equal(t, []string{"A", "B"}, Display(stored, []string{"A", "B", "C"}))
	// ...but the stored value itself is untouched.
	assert.Equal(t, "A,D,B", stored)
}

func TestApplySelect(t *testing.T) {
	q := choiceQuestion(model.QuestionTypeSingleChoice, 4)

	got, err := Apply(q, "", model.AnswerEditRequest{Kind: model.EditSelect, Letter: "b"})
	assert.NoError(t, err)
	assert.Equal(t, "B", got)

	_, err = Apply(q, "", model.AnswerEditRequest{Kind: model.EditSelect, Letter: "E"})
	assert.ErrorIs(t, err, ErrInvalidLetter)
}

func TestApplySelectRejectsAbsentChoice(t *testing.T) {
	q := choiceQuestion(model.QuestionTypeSingleChoice, 2) // only A, B defined
	_, err := Apply(q, "", model.AnswerEditRequest{Kind: model.EditSelect, Letter: "C"})
	assert.ErrorIs(t, err, ErrInvalidLetter)
}

func TestApplyToggle(t *testing.T) {
	q := choiceQuestion(model.QuestionTypeMultiChoice, 4)

	v, err := Apply(q, "", model.AnswerEditRequest{Kind: model.EditToggle, Letter: "C"})
	assert.NoError(t, err)
	assert.Equal(t, "C", v)

	v, err = Apply(q, v, model.AnswerEditRequest{Kind: model.EditToggle, Letter: "A"})
	assert.NoError(t, err)
	assert.Equal(t, "A,C", v)

	// Toggling off.
	v, err = Apply(q, v, model.AnswerEditRequest{Kind: model.EditToggle, Letter: "C"})
	assert.NoError(t, err)
	assert.Equal(t, "A", v)
}

func TestApplyReorder(t *testing.T) {
	q := choiceQuestion(model.QuestionTypeOrder, 3)

	v, err := Apply(q, "A,B,C", model.AnswerEditRequest{Kind: model.EditReorder, SrcIndex: 0, DstIndex: 2})
	assert.NoError(t, err)
	assert.Equal(t, "B,C,A", v)
}

func TestApplyClear(t *testing.T) {
	text := model.Question{QuestionNumber: "1", Type: model.QuestionTypeText}
	v, err := Apply(text, "something", model.AnswerEditRequest{Kind: model.EditClear})
	assert.NoError(t, err)
	assert.Equal(t, "", v)

	order := choiceQuestion(model.QuestionTypeOrder, 3)
	v, err = Apply(order, "C,B,A", model.AnswerEditRequest{Kind: model.EditClear})
	assert.NoError(t, err)
	assert.Equal(t, "A,B,C", v)
}

func TestApplyKindMismatch(t *testing.T) {
	q := choiceQuestion(model.QuestionTypeSingleChoice, 4)
	_, err := Apply(q, "", model.AnswerEditRequest{Kind: model.EditReorder})
	assert.ErrorIs(t, err, ErrEditMismatch)
}

func TestRestoreValue(t *testing.T) {
	order := choiceQuestion(model.QuestionTypeOrder, 3)
	assert.Equal(t, "A,B,C", RestoreValue(order, ""))
	assert.Equal(t, "C,A,B", RestoreValue(order, "C,A,B"))
	// Letters missing from a partial prior order are appended at the end.
	assert.Equal(t, "C,A,B", RestoreValue(order, "C,A"))

	text := model.Question{Type: model.QuestionTypeLongText}
	assert.Equal(t, "kept as-is", RestoreValue(text, "kept as-is"))
}
