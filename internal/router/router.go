package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/handler"
	"github.com/velora-edu/examspace-backend/internal/middleware"
	"github.com/velora-edu/examspace-backend/internal/response"
	"github.com/velora-edu/examspace-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth    *handler.AuthHandler
	Session *handler.SessionHandler
	Capture *handler.CaptureHandler
	WS      *handler.WSHandler
	Monitor *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve stored capture blobs to admins reviewing an attempt. Blobs are
	// immutable once written, so cache aggressively (1 year).
	capturesGroup := router.Group("/captures")
	capturesGroup.Use(middleware.RequireAdminJWT(authService), middleware.CacheControl(31536000))
	{
		capturesGroup.Static("/", cfg.CaptureDir)
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/candidate/login", handlers.Auth.CandidateLogin)
		auth.POST("/admin/login", handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.POST("/candidate/logout", middleware.RequireCandidateJWT(authService), handlers.Auth.CandidateLogout)
		auth.GET("/candidate/me", middleware.RequireCandidateJWT(authService), handlers.Auth.GetCandidateProfile)
	}

	// ─── 2. Session Group (JWT + Single Device) ────────────────────────
	sessionAPI := router.Group("/api/v1/session")
	sessionAPI.Use(
		middleware.RequireCandidateJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		sessionAPI.POST("/start", handlers.Session.StartSession)
		sessionAPI.GET("/:userTestId", handlers.Session.GetState)
		sessionAPI.POST("/:userTestId/reload", handlers.Session.ReloadSection)
		sessionAPI.POST("/:userTestId/answers", handlers.Session.ApplyAnswerEdit)
		sessionAPI.POST("/:userTestId/submit", handlers.Session.SubmitSection)
		sessionAPI.POST("/:userTestId/visibility", handlers.Session.ReportVisibility)
		sessionAPI.GET("/:userTestId/result", handlers.Session.GetResult)
		sessionAPI.DELETE("/:userTestId", handlers.Session.CloseSession)
		sessionAPI.POST("/:userTestId/capture", handlers.Capture.UploadChunk)
	}

	// ─── 3. WebSocket Group (Candidate WS Auth) ────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireCandidateWSAuth(authService))
	{
		ws.GET("/session/:userTestId/stream", handlers.WS.SessionStream)
	}

	// ─── 4. Admin Group (JWT) ──────────────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		adminAPI.GET("/monitor/queues", handlers.Monitor.QueueDepths)
	}

	return router
}
