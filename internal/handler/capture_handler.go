package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/velora-edu/examspace-backend/internal/capture"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/middleware"
	"github.com/velora-edu/examspace-backend/internal/response"
	"github.com/velora-edu/examspace-backend/internal/service"
)

// CaptureHandler receives recording chunks streamed up by the exam page.
type CaptureHandler struct {
	cfg            *config.Config
	sessionService *service.SessionService
}

// NewCaptureHandler creates a new CaptureHandler.
func NewCaptureHandler(cfg *config.Config, sessionService *service.SessionService) *CaptureHandler {
	return &CaptureHandler{cfg: cfg, sessionService: sessionService}
}

// UploadChunk godoc
// POST /api/v1/session/:userTestId/capture
// The request body is one raw recording chunk.
func (h *CaptureHandler) UploadChunk(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	id, ok := sessionID(c)
	if !ok {
		return
	}

	body := http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxCaptureBytes)
	chunk, err := io.ReadAll(body)
	if err != nil {
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	}
	if len(chunk) == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrFileRequired)
		return
	}

	err = h.sessionService.AppendCaptureChunk(id, claims.UserID, chunk)
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrSessionForbidden):
		failSession(c, err)
		return
	case errors.Is(err, capture.ErrNotRecording):
		response.Fail(c, http.StatusConflict, response.ErrCaptureNotActive)
		return
	case errors.Is(err, capture.ErrCaptureTooLarge):
		response.Fail(c, http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
		return
	case err != nil:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{})
}
