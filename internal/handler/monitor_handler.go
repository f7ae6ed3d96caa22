package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/response"
)

// MonitorHandler exposes worker queue depths and runtime stats to admins.
type MonitorHandler struct {
	rdb       *redis.Client
	startTime time.Time
	log       zerolog.Logger
}

// NewMonitorHandler creates a new MonitorHandler.
func NewMonitorHandler(rdb *redis.Client, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		rdb:       rdb,
		startTime: time.Now(),
		log:       log.With().Str("component", "monitor_handler").Logger(),
	}
}

// QueueDepths godoc
// GET /api/v1/admin/monitor/queues
func (h *MonitorHandler) QueueDepths(c *gin.Context) {
	ctx := c.Request.Context()

	pipe := h.rdb.Pipeline()
	answersCmd := pipe.LLen(ctx, config.WorkerKey.PersistAnswersQueue)
	distractionsCmd := pipe.LLen(ctx, config.WorkerKey.PersistDistractionsQueue)
	scoresCmd := pipe.LLen(ctx, config.WorkerKey.PersistScoresQueue)
	capturesCmd := pipe.LLen(ctx, config.WorkerKey.CaptureUploadQueue)
	if _, err := pipe.Exec(ctx); err != nil {
		h.log.Error().Err(err).Msg("Queue depth pipeline failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"queues": gin.H{
			"answers":      answersCmd.Val(),
			"distractions": distractionsCmd.Val(),
			"scores":       scoresCmd.Val(),
			"captures":     capturesCmd.Val(),
		},
		"runtime": gin.H{
			"goroutines": runtime.NumGoroutine(),
			"go_version": runtime.Version(),
			"uptime_s":   int(time.Since(h.startTime).Seconds()),
		},
	})
}
