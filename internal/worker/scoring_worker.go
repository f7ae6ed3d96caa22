package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/velora-edu/examspace-backend/internal/config"
	"github.com/velora-edu/examspace-backend/internal/repository"
)

// ScoringWorker consumes persist_scores_queue: it computes section scores
// for a finished attempt, seals its total, and clears the attempt's live
// session cache.
type ScoringWorker struct {
	results     *repository.ResultRepository
	userTests   *repository.UserTestRepository
	submissions *repository.SubmissionRepository
	rdb         *redis.Client
	log         zerolog.Logger
}

// NewScoringWorker creates a new ScoringWorker.
func NewScoringWorker(
	results *repository.ResultRepository,
	userTests *repository.UserTestRepository,
	submissions *repository.SubmissionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *ScoringWorker {
	return &ScoringWorker{
		results:     results,
		userTests:   userTests,
		submissions: submissions,
		rdb:         rdb,
		log:         log.With().Str("component", "scoring_worker").Logger(),
	}
}

type scorePayload struct {
	UserTestID string `json:"user_test_id"`
}

// Start begins the infinite worker loop. Call in a goroutine.
func (w *ScoringWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ScoringWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ScoringWorker stopped")
			return
		default:
			w.processNext(ctx)
		}
	}
}

func (w *ScoringWorker) processNext(ctx context.Context) {
	result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistScoresQueue).Result()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			w.log.Error().Err(err).Msg("BLPop error")
		}
		return
	}

	if len(result) < 2 {
		return
	}

	var payload scorePayload
	if err := json.Unmarshal([]byte(result[1]), &payload); err != nil {
		w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
		return
	}

	if err := w.score(ctx, &payload); err != nil {
		w.log.Error().Err(err).
			Str("user_test_id", payload.UserTestID).
			Msg("Scoring error, retrying in 5s")
		w.rdb.RPush(ctx, config.WorkerKey.PersistScoresQueue, result[1])
		time.Sleep(5 * time.Second)
	}
}

func (w *ScoringWorker) score(ctx context.Context, p *scorePayload) error {
	userTestID, err := uuid.Parse(p.UserTestID)
	if err != nil {
		return err
	}

	total, err := w.results.ComputeSectionScores(ctx, userTestID)
	if err != nil {
		return err
	}
	if err := w.userTests.MarkCompleted(ctx, userTestID, total); err != nil {
		return err
	}

	w.clearSessionCache(ctx, userTestID)

	w.log.Info().
		Str("user_test_id", p.UserTestID).
		Float64("total", total).
		Msg("Attempt scored")
	return nil
}

// clearSessionCache drops the attempt's live answer hashes and submitted
// markers. Best effort: the keys also carry a TTL.
func (w *ScoringWorker) clearSessionCache(ctx context.Context, userTestID uuid.UUID) {
	subjects, err := w.submissions.ListSubmittedSubjects(ctx, userTestID)
	if err != nil {
		w.log.Warn().Err(err).Msg("Cache cleanup skipped")
		return
	}
	keys := []string{config.CacheKey.SessionStartKey(userTestID.String())}
	for _, subjectID := range subjects {
		keys = append(keys,
			config.CacheKey.SessionAnswersKey(userTestID.String(), subjectID.String()),
			config.CacheKey.SectionSubmittedKey(userTestID.String(), subjectID.String()))
	}
	w.rdb.Del(ctx, keys...)
}
