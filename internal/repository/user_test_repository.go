package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// UserTestRepository handles attempt record data access.
type UserTestRepository struct {
	pool *pgxpool.Pool
}

// NewUserTestRepository creates a new UserTestRepository.
func NewUserTestRepository(pool *pgxpool.Pool) *UserTestRepository {
	return &UserTestRepository{pool: pool}
}

// CreateOrResume returns the attempt record for (testID, userID), creating
// it when the candidate starts for the first time. Re-entry returns the
// existing row untouched, so a reload never spawns a second attempt.
func (r *UserTestRepository) CreateOrResume(ctx context.Context, testID uuid.UUID, userID int) (*model.UserTest, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_tests (id, test_id, user_id, started_at, status)
		 VALUES ($1, $2, $3, NOW(), $4)
		 ON CONFLICT (test_id, user_id) DO NOTHING`,
		uuid.New(), testID, userID, model.UserTestStatusInProgress)
	if err != nil {
		return nil, err
	}
	return r.GetByTestAndUser(ctx, testID, userID)
}

// GetByTestAndUser retrieves the attempt record for one candidate on one test.
func (r *UserTestRepository) GetByTestAndUser(ctx context.Context, testID uuid.UUID, userID int) (*model.UserTest, error) {
	ut := &model.UserTest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_id, started_at, finished_at, status, final_score
		 FROM user_tests WHERE test_id = $1 AND user_id = $2`, testID, userID,
	).Scan(&ut.ID, &ut.TestID, &ut.UserID, &ut.StartedAt, &ut.FinishedAt, &ut.Status, &ut.FinalScore)
	if err != nil {
		return nil, err
	}
	return ut, nil
}

// GetByID retrieves an attempt record by its UUID.
func (r *UserTestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.UserTest, error) {
	ut := &model.UserTest{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, test_id, user_id, started_at, finished_at, status, final_score
		 FROM user_tests WHERE id = $1`, id,
	).Scan(&ut.ID, &ut.TestID, &ut.UserID, &ut.StartedAt, &ut.FinishedAt, &ut.Status, &ut.FinalScore)
	if err != nil {
		return nil, err
	}
	return ut, nil
}

// MarkCompleted finalizes an attempt with its total score. Idempotent: a
// second call on a completed attempt changes nothing.
func (r *UserTestRepository) MarkCompleted(ctx context.Context, id uuid.UUID, finalScore float64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE user_tests
		 SET status = $2, final_score = $3, finished_at = NOW()
		 WHERE id = $1 AND status <> $2`,
		id, model.UserTestStatusCompleted, finalScore)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Already completed; not an error.
		return nil
	}
	return nil
}

// MarkCompletedBatch finalizes many attempts in one UNNEST round trip.
func (r *UserTestRepository) MarkCompletedBatch(ctx context.Context, ids []uuid.UUID, scores []float64) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) != len(scores) {
		return errors.New("ids and scores length mismatch")
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE user_tests ut
		 SET status = $3, final_score = t.score, finished_at = NOW()
		 FROM UNNEST($1::uuid[], $2::float8[]) AS t(id, score)
		 WHERE ut.id = t.id AND ut.status <> $3`,
		ids, scores, model.UserTestStatusCompleted)
	return err
}
