package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/model"
	"github.com/velora-edu/examspace-backend/internal/repository"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// DistractionWorker consumes persist_distractions_queue and batch-inserts
// distraction reports to PostgreSQL.
type DistractionWorker struct {
	distractions *repository.DistractionRepository
	rdb          *redis.Client
	log          zerolog.Logger
}

// NewDistractionWorker creates a new DistractionWorker.
func NewDistractionWorker(distractions *repository.DistractionRepository, rdb *redis.Client, log zerolog.Logger) *DistractionWorker {
	return &DistractionWorker{
		distractions: distractions,
		rdb:          rdb,
		log:          log.With().Str("component", "distraction_worker").Logger(),
	}
}

func (w *DistractionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("DistractionWorker started")

	buffer := make([]*model.DistractionReport, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Check flush conditions (time or size)
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flushSafe(ctx, buffer)
				buffer = buffer[:0] // Clear buffer, keep capacity
				lastFlushTime = time.Now()
			}
		}

		// 2. Check context (graceful shutdown)
		select {
		case <-ctx.Done():
			if len(buffer) > 0 {
				w.flushSafe(context.Background(), buffer)
			}
			w.log.Info().Msg("DistractionWorker stopped")
			return
		default:
		}

		// 3. Fetch from Redis. BLPop blocks for 1 second and returns
		// immediately if data exists.
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistDistractionsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var report model.DistractionReport
		if err := json.Unmarshal([]byte(result[1]), &report); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}

		buffer = append(buffer, &report)
	}
}

// flushSafe attempts bulk insert, then falls back to row-by-row.
func (w *DistractionWorker) flushSafe(ctx context.Context, batch []*model.DistractionReport) {
	if err := w.distractions.InsertBatch(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")
		w.fallbackInsert(ctx, batch)
	}
}

// fallbackInsert persists reports one at a time, requeueing the failures.
func (w *DistractionWorker) fallbackInsert(ctx context.Context, batch []*model.DistractionReport) {
	for _, report := range batch {
		if err := w.distractions.Insert(ctx, report); err != nil {
			w.log.Error().Err(err).
				Str("user_test_id", report.UserTestID.String()).
				Msg("Row insert failed, requeueing")
			if payload, merr := json.Marshal(report); merr == nil {
				w.rdb.RPush(ctx, config.WorkerKey.PersistDistractionsQueue, payload)
			}
		}
	}
}
