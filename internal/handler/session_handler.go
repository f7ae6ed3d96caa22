package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/velora-edu/examspace-backend/internal/codec"
	"github.com/velora-edu/examspace-backend/internal/engine"
	"github.com/velora-edu/examspace-backend/internal/middleware"
	"github.com/velora-edu/examspace-backend/internal/model"
	"github.com/velora-edu/examspace-backend/internal/response"
	"github.com/velora-edu/examspace-backend/internal/service"
	"github.com/velora-edu/examspace-backend/internal/validator"
)

// SessionHandler handles live exam session endpoints.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/session/start
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	testID, err := uuid.Parse(req.TestID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	// Session routes sit behind the candidate JWT middleware; admin preview
	// sessions would come in through a separate surface.
	state, err := h.sessionService.StartSession(c.Request.Context(), claims.UserID, model.RoleCandidate, testID)
	switch {
	case errors.Is(err, service.ErrTestNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrTestNotFound)
		return
	case errors.Is(err, service.ErrAttemptCompleted):
		response.Fail(c, http.StatusConflict, response.ErrSessionFinalized)
		return
	case errors.Is(err, engine.ErrNoSections):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoSections)
		return
	case err != nil:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// sessionID parses the :userTestId path parameter.
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("userTestId"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}

// failSession maps registry lookup errors.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrSessionNotFound)
	case errors.Is(err, service.ErrSessionForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// GetState godoc
// GET /api/v1/session/:userTestId
func (h *SessionHandler) GetState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	state, err := h.sessionService.GetState(id, claims.UserID)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": state})
}

// ReloadSection godoc
// POST /api/v1/session/:userTestId/reload
func (h *SessionHandler) ReloadSection(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.sessionService.ReloadSection(id, claims.UserID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrSessionForbidden) {
			failSession(c, err)
			return
		}
		response.Fail(c, http.StatusBadGateway, response.ErrSectionNotLoaded)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// ApplyAnswerEdit godoc
// POST /api/v1/session/:userTestId/answers
func (h *SessionHandler) ApplyAnswerEdit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var edit model.AnswerEditRequest
	if fields := validator.Bind(c, &edit); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	state, err := h.sessionService.ApplyAnswerEdit(c.Request.Context(), id, claims.UserID, edit)
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionForbidden):
		failSession(c, err)
		return
	case errors.Is(err, engine.ErrNoActiveSection):
		response.Fail(c, http.StatusConflict, response.ErrSectionNotLoaded)
		return
	case errors.Is(err, codec.ErrEditMismatch), errors.Is(err, codec.ErrInvalidLetter):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswerEdit)
		return
	case err != nil:
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAnswerEdit)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"answer": state})
}

// submitRequest is the manual submit payload: the section the candidate was
// looking at when they clicked.
type submitRequest struct {
	SubjectID string `json:"subject_id" binding:"required,uuid"`
}

// SubmitSection godoc
// POST /api/v1/session/:userTestId/submit
func (h *SessionHandler) SubmitSection(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req submitRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	subjectID, err := uuid.Parse(req.SubjectID)
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	outcome, err := h.sessionService.SubmitCurrentSection(id, claims.UserID, subjectID)
	if errors.Is(err, service.ErrSessionNotFound) || errors.Is(err, service.ErrSessionForbidden) {
		failSession(c, err)
		return
	}
	if outcome == engine.SubmitFailed {
		response.Fail(c, http.StatusBadGateway, response.ErrSubmitFailed)
		return
	}

	state, serr := h.sessionService.GetState(id, claims.UserID)
	if serr != nil {
		failSession(c, serr)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"outcome": outcome.String(),
		"session": state,
	})
}

// ReportVisibility godoc
// POST /api/v1/session/:userTestId/visibility
func (h *SessionHandler) ReportVisibility(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req model.VisibilityRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.sessionService.ReportVisibility(id, claims.UserID, req.State == "hidden"); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}

// GetResult godoc
// GET /api/v1/session/:userTestId/result
func (h *SessionHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	result, err := h.sessionService.Result(id, claims.UserID)
	if err != nil {
		failSession(c, err)
		return
	}
	if result == nil {
		response.Fail(c, http.StatusNotFound, response.ErrResultsUnavailable)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"result": result})
}

// CloseSession godoc
// DELETE /api/v1/session/:userTestId
func (h *SessionHandler) CloseSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	if err := h.sessionService.CloseSession(c.Request.Context(), id, claims.UserID); err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
