package model

// AnswerState is the mutable per-question answer record. RawValue holds the
// canonical string encoding for the question's type; an empty RawValue means
// the question has not been attempted.
type AnswerState struct {
	QuestionNumber  string `json:"question_number"`
	RawValue        string `json:"raw_value"`
	MarkedForReview bool   `json:"marked_for_review"`
}

// Attempted reports whether a non-empty canonical value is stored.
func (a AnswerState) Attempted() bool {
	return a.RawValue != ""
}

// AnswerEditKind enumerates the edits a candidate can make to an answer.
type AnswerEditKind string

const (
	EditSelect  AnswerEditKind = "select"  // SINGLE_CHOICE: pick one letter
	EditToggle  AnswerEditKind = "toggle"  // MULTI_CHOICE: toggle a letter
	EditText    AnswerEditKind = "text"    // TEXT/LONG_TEXT: replace free text
	EditReorder AnswerEditKind = "reorder" // ORDER: move src index to dst index
	EditClear   AnswerEditKind = "clear"   // any type: clear response
	EditReview  AnswerEditKind = "review"  // any type: toggle marked-for-review
)

// AnswerEditRequest is the payload for a single answer mutation.
type AnswerEditRequest struct {
	QuestionNumber string         `json:"question_number" binding:"required,max=16"`
	Kind           AnswerEditKind `json:"kind" binding:"required,oneof=select toggle text reorder clear review"`
	Letter         string         `json:"letter" binding:"omitempty,choiceletter"`
	Text           string         `json:"text" binding:"omitempty,max=10000"`
	SrcIndex       int            `json:"src_index" binding:"min=0"`
	DstIndex       int            `json:"dst_index" binding:"min=0"`
}
