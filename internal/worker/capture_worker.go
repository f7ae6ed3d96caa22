package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/model"
	"github.com/velora-edu/examspace-backend/internal/repository"
	"github.com/velora-edu/examspace-backend/internal/service"
)

// CaptureWorker consumes capture_upload_queue and records stored blob
// metadata to PostgreSQL.
type CaptureWorker struct {
	captures *repository.CaptureRepository
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewCaptureWorker creates a new CaptureWorker.
func NewCaptureWorker(captures *repository.CaptureRepository, rdb *redis.Client, log zerolog.Logger) *CaptureWorker {
	return &CaptureWorker{
		captures: captures,
		rdb:      rdb,
		log:      log.With().Str("component", "capture_worker").Logger(),
	}
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *CaptureWorker) Start(ctx context.Context) {
	w.log.Info().Msg("CaptureWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("CaptureWorker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *CaptureWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.CaptureUploadQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload service.CaptureUploadPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
		return
	}

	if err := w.persist(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("user_test_id", payload.UserTestID).
			Msg("Persist error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.CaptureUploadQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *CaptureWorker) persist(ctx context.Context, p *service.CaptureUploadPayload) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	testID, err := uuid.Parse(p.TestID)
	if err != nil {
		return err
	}
	subjectID, err := uuid.Parse(p.SubjectID)
	if err != nil {
		return err
	}
	userTestID, err := uuid.Parse(p.UserTestID)
	if err != nil {
		return err
	}
	return w.captures.Insert(ctx, &model.CaptureUpload{
		ID:         id,
		TestID:     testID,
		SubjectID:  subjectID,
		UserTestID: userTestID,
		Path:       p.Path,
		SizeBytes:  p.SizeBytes,
		RecordedAt: p.RecordedAt,
	})
}
