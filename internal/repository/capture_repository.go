package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// CaptureRepository handles stored proctoring blob metadata.
type CaptureRepository struct {
	pool *pgxpool.Pool
}

// NewCaptureRepository creates a new CaptureRepository.
func NewCaptureRepository(pool *pgxpool.Pool) *CaptureRepository {
	return &CaptureRepository{pool: pool}
}

// Insert records one stored capture blob.
func (r *CaptureRepository) Insert(ctx context.Context, cu *model.CaptureUpload) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO capture_uploads
		   (id, test_id, subject_id, user_test_id, path, size_bytes, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cu.ID, cu.TestID, cu.SubjectID, cu.UserTestID, cu.Path, cu.SizeBytes, cu.RecordedAt)
	return err
}

// ListByAttempt retrieves an attempt's capture uploads in recording order.
func (r *CaptureRepository) ListByAttempt(ctx context.Context, userTestID uuid.UUID) ([]model.CaptureUpload, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, test_id, subject_id, user_test_id, path, size_bytes, recorded_at
		 FROM capture_uploads
		 WHERE user_test_id = $1
		 ORDER BY recorded_at ASC`, userTestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var uploads []model.CaptureUpload
	for rows.Next() {
		var cu model.CaptureUpload
		if err := rows.Scan(&cu.ID, &cu.TestID, &cu.SubjectID, &cu.UserTestID,
			&cu.Path, &cu.SizeBytes, &cu.RecordedAt); err != nil {
			return nil, err
		}
		uploads = append(uploads, cu)
	}
	return uploads, rows.Err()
}
