package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/velora-edu/examspace-backend/internal/middleware"
	"github.com/velora-edu/examspace-backend/internal/model"
	"github.com/velora-edu/examspace-backend/internal/response"
	"github.com/velora-edu/examspace-backend/internal/service"
	"github.com/velora-edu/examspace-backend/internal/validator"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService    *service.AuthService
	accountService *service.AccountService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, accountService *service.AccountService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
	}
}

// CandidateLogin godoc
// POST /api/v1/auth/candidate/login
func (h *AuthHandler) CandidateLogin(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	candidate, token, err := h.accountService.CandidateLogin(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"candidate": gin.H{
			"id":       candidate.ID,
			"username": candidate.Username,
			"name":     candidate.Name,
		},
	})
}

// AdminLogin godoc
// POST /api/v1/auth/admin/login
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	admin, token, err := h.accountService.AdminLogin(c.Request.Context(), req.Username, req.Password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
		return
	}
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"admin": gin.H{
			"id":       admin.ID,
			"username": admin.Username,
			"name":     admin.Name,
		},
	})
}

// GetCandidateProfile godoc
// GET /api/v1/auth/candidate/me
func (h *AuthHandler) GetCandidateProfile(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	candidate, err := h.accountService.GetCandidate(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"candidate": gin.H{
			"id":       candidate.ID,
			"username": candidate.Username,
			"name":     candidate.Name,
		},
	})
}

// CandidateLogout godoc
// POST /api/v1/auth/candidate/logout
func (h *AuthHandler) CandidateLogout(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.authService.ResetCandidateSession(c.Request.Context(), claims.UserID); err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}
