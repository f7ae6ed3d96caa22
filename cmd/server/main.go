package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/clock"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/database"
	"github.com/velora-edu/examspace-backend/internal/handler"
	"github.com/velora-edu/examspace-backend/internal/logger"
	"github.com/velora-edu/examspace-backend/internal/repository"
	"github.com/velora-edu/examspace-backend/internal/router"
	"github.com/velora-edu/examspace-backend/internal/service"
	"github.com/velora-edu/examspace-backend/internal/validator"
	"github.com/velora-edu/examspace-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExamSpace Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	testRepo := repository.NewTestRepository(pool)
	sectionRepo := repository.NewSectionRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	userTestRepo := repository.NewUserTestRepository(pool)
	submissionRepo := repository.NewSubmissionRepository(pool)
	resultRepo := repository.NewResultRepository(pool)
	distractionRepo := repository.NewDistractionRepository(pool)
	captureRepo := repository.NewCaptureRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	accountService := service.NewAccountService(authService, candidateRepo, adminRepo)
	captureService := service.NewCaptureService(cfg, rdb, log)
	sessionService := service.NewSessionService(
		cfg, rdb, clock.NewTicker(), captureService,
		testRepo, sectionRepo, questionRepo, answerRepo,
		userTestRepo, submissionRepo, resultRepo,
		log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:    handler.NewAuthHandler(authService, accountService),
		Session: handler.NewSessionHandler(sessionService),
		Capture: handler.NewCaptureHandler(cfg, sessionService),
		WS:      handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins),
		Monitor: handler.NewMonitorHandler(rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	snapshotWorker := worker.NewAnswerSnapshotWorker(answerRepo, rdb, log)
	distractionWorker := worker.NewDistractionWorker(distractionRepo, rdb, log)
	scoringWorker := worker.NewScoringWorker(resultRepo, userTestRepo, submissionRepo, rdb, log)
	captureWorker := worker.NewCaptureWorker(captureRepo, rdb, log)

	go snapshotWorker.Start(workerCtx)
	go distractionWorker.Start(workerCtx)
	go scoringWorker.Start(workerCtx)
	go captureWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Tear down live sessions so their timers stop cleanly.
	sessionService.Shutdown()

	// 3. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
