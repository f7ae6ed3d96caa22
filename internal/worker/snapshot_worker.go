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
)

// AnswerSnapshotWorker consumes persist_answers_queue and UPSERTs answer
// snapshots to PostgreSQL.
type AnswerSnapshotWorker struct {
	answers *repository.AnswerRepository
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewAnswerSnapshotWorker creates a new AnswerSnapshotWorker.
func NewAnswerSnapshotWorker(answers *repository.AnswerRepository, rdb *redis.Client, log zerolog.Logger) *AnswerSnapshotWorker {
	return &AnswerSnapshotWorker{
		answers: answers,
		rdb:     rdb,
		log:     log.With().Str("component", "snapshot_worker").Logger(),
	}
}

type snapshotPayload struct {
	UserTestID      string `json:"user_test_id"`
	SubjectID       string `json:"subject_id"`
	QuestionNumber  string `json:"question_number"`
	RawValue        string `json:"raw_value"`
	MarkedForReview bool   `json:"marked_for_review"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *AnswerSnapshotWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			// Drain remaining items before exit.
			w.drain(context.Background())
			w.log.Info().Msg("Worker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *AnswerSnapshotWorker) processNext(ctx context.Context) {
	// BLPop blocks until an item is available or timeout (1 second).
	result, err := w.rdb.BLPop(ctx, time.Second, config.WorkerKey.PersistAnswersQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload snapshotPayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Msg("Unmarshal error")
		return
	}

	if err := w.persist(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("user_test_id", payload.UserTestID).
			Str("question_number", payload.QuestionNumber).
			Msg("Persist error, retrying in 5s")
		// Push back to queue for retry.
		w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *AnswerSnapshotWorker) persist(ctx context.Context, p *snapshotPayload) error {
	userTestID, err := uuid.Parse(p.UserTestID)
	if err != nil {
		return err
	}
	subjectID, err := uuid.Parse(p.SubjectID)
	if err != nil {
		return err
	}
	return w.answers.Upsert(ctx, userTestID, subjectID, &model.AnswerState{
		QuestionNumber:  p.QuestionNumber,
		RawValue:        p.RawValue,
		MarkedForReview: p.MarkedForReview,
	})
}

// drain processes all remaining items in the queue before shutdown.
func (w *AnswerSnapshotWorker) drain(ctx context.Context) {
	drained := 0
	for {
		result, err := w.rdb.LPop(ctx, config.WorkerKey.PersistAnswersQueue).Result()
		if err != nil {
			break
		}

		var payload snapshotPayload
		if err := json.Unmarshal([]byte(result), &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}

		if err := w.persist(ctx, &payload); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, result)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
