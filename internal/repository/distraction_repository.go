package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// DistractionRepository handles distraction log data access.
type DistractionRepository struct {
	pool *pgxpool.Pool
}

// NewDistractionRepository creates a new DistractionRepository.
func NewDistractionRepository(pool *pgxpool.Pool) *DistractionRepository {
	return &DistractionRepository{pool: pool}
}

// Insert persists a single distraction report.
func (r *DistractionRepository) Insert(ctx context.Context, rep *model.DistractionReport) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO distraction_logs
		   (test_id, user_id, user_test_id, distraction_count, distraction_seconds, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rep.TestID, rep.UserID, rep.UserTestID, rep.Count, rep.TotalAwaySeconds, rep.RecordedAt)
	return err
}

// InsertBatch bulk-inserts distraction reports via COPY.
func (r *DistractionRepository) InsertBatch(ctx context.Context, reports []*model.DistractionReport) error {
	if len(reports) == 0 {
		return nil
	}
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"distraction_logs"},
		[]string{"test_id", "user_id", "user_test_id", "distraction_count", "distraction_seconds", "recorded_at"},
		pgx.CopyFromSlice(len(reports), func(i int) ([]interface{}, error) {
			rep := reports[i]
			return []interface{}{
				rep.TestID, rep.UserID, rep.UserTestID,
				rep.Count, rep.TotalAwaySeconds, rep.RecordedAt,
			}, nil
		}),
	)
	return err
}
