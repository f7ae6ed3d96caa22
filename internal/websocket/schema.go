package websocket

import "github.com/velora-edu/examspace-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionEdit       Action = "edit"
	ActionSubmit     Action = "submit"
	ActionVisibility Action = "visibility"
	ActionState      Action = "state"
	ActionPing       Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// EditRequest is sent by the client to apply one answer edit.
type EditRequest struct {
	Action Action                  `json:"action"`
	Edit   model.AnswerEditRequest `json:"edit"`
}

// SubmitRequest is sent by the client to submit the named section.
type SubmitRequest struct {
	Action    Action `json:"action"`
	SubjectID string `json:"subject_id"`
}

// VisibilityRequest is sent by the client on a page visibility transition.
type VisibilityRequest struct {
	Action Action `json:"action"`
	State  string `json:"state"` // "hidden" or "visible"
}

// StateRequest asks for a full session snapshot.
type StateRequest struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventEditAck   Event = "edit_ack"
	EventSubmitted Event = "submitted"
	EventState     Event = "state"
	EventFinalized Event = "finalized"
	EventPong      Event = "pong"
)

// EditAckResponse confirms one applied edit with its canonical state.
type EditAckResponse struct {
	Event  Event             `json:"event"`
	Answer model.AnswerState `json:"answer"`
}

// SubmittedResponse reports the outcome of a submit action. When the
// submission advanced past the last section, Finalized is true and
// Destination carries the post-exam redirect.
type SubmittedResponse struct {
	Event       Event  `json:"event"`
	Outcome     string `json:"outcome"`
	Finalized   bool   `json:"finalized"`
	Destination string `json:"destination,omitempty"`
}

// StateResponse carries a full session snapshot.
type StateResponse struct {
	Event Event              `json:"event"`
	State model.SessionState `json:"state"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
