package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/engine"
	"github.com/velora-edu/examspace-backend/internal/middleware"
	"github.com/velora-edu/examspace-backend/internal/service"
	ws "github.com/velora-edu/examspace-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler handles the WebSocket session stream.
type WSHandler struct {
	sessionService *service.SessionService
	log            zerolog.Logger
	upgrader       websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(sessionService *service.SessionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		sessionService: sessionService,
		log:            log.With().Str("component", "ws_handler").Logger(),
		upgrader:       buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/session/:userTestId/stream
// Upgrades to WebSocket for low-latency answer edits, visibility reports and
// section submits against a live session.
func (h *WSHandler) SessionStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	userTestID, err := uuid.Parse(c.Param("userTestId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}

	// Validate the session exists and belongs to the caller before
	// upgrading.
	if _, err := h.sessionService.GetState(userTestID, claims.UserID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no active session"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Int("user_id", claims.UserID).
		Str("user_test_id", userTestID.String()).
		Logger()

	wsLog.Info().Msg("Candidate connected")

	for {
		// Peek at the action, then decode the concrete payload.
		data, err := ws.ReadRaw(conn)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			break
		}

		var envelope ws.RequestEnvelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			ws.WriteError(conn, "malformed message")
			continue
		}

		switch envelope.Action {
		case ws.ActionEdit:
			h.handleEdit(c.Request.Context(), conn, userTestID, claims.UserID, data)
		case ws.ActionSubmit:
			h.handleSubmit(conn, wsLog, userTestID, claims.UserID, data)
		case ws.ActionVisibility:
			h.handleVisibility(conn, userTestID, claims.UserID, data)
		case ws.ActionState:
			h.writeState(conn, userTestID, claims.UserID)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			ws.WriteError(conn, "unknown action")
		}
	}
}

func (h *WSHandler) handleEdit(ctx context.Context, conn *websocket.Conn, userTestID uuid.UUID, userID int, data []byte) {
	var req ws.EditRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.WriteError(conn, "malformed edit")
		return
	}

	answer, err := h.sessionService.ApplyAnswerEdit(ctx, userTestID, userID, req.Edit)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}
	ws.WriteTyped(conn, ws.EditAckResponse{Event: ws.EventEditAck, Answer: answer})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, wsLog zerolog.Logger, userTestID uuid.UUID, userID int, data []byte) {
	var req ws.SubmitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.WriteError(conn, "malformed submit")
		return
	}
	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		ws.WriteError(conn, "invalid subject ID")
		return
	}

	outcome, err := h.sessionService.SubmitCurrentSection(userTestID, userID, subjectID)
	if outcome == engine.SubmitFailed {
		wsLog.Warn().Err(err).Str("subject_id", req.SubjectID).Msg("Submit failed")
		ws.WriteError(conn, "section submission failed")
		return
	}

	state, serr := h.sessionService.GetState(userTestID, userID)
	if serr != nil {
		ws.WriteError(conn, "session gone")
		return
	}

	resp := ws.SubmittedResponse{
		Event:     ws.EventSubmitted,
		Outcome:   outcome.String(),
		Finalized: state.Finalized,
	}
	if state.Finalized {
		resp.Event = ws.EventFinalized
		resp.Destination = state.Destination
	}
	ws.WriteTyped(conn, resp)
}

func (h *WSHandler) handleVisibility(conn *websocket.Conn, userTestID uuid.UUID, userID int, data []byte) {
	var req ws.VisibilityRequest
	if err := json.Unmarshal(data, &req); err != nil {
		ws.WriteError(conn, "malformed visibility report")
		return
	}
	if err := h.sessionService.ReportVisibility(userTestID, userID, req.State == "hidden"); err != nil {
		ws.WriteError(conn, "session gone")
	}
}

func (h *WSHandler) writeState(conn *websocket.Conn, userTestID uuid.UUID, userID int) {
	state, err := h.sessionService.GetState(userTestID, userID)
	if err != nil {
		ws.WriteError(conn, "session gone")
		return
	}
	ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, State: state})
}
