package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// TestRepository handles test definition data access.
type TestRepository struct {
	pool *pgxpool.Pool
}

// NewTestRepository creates a new TestRepository.
func NewTestRepository(pool *pgxpool.Pool) *TestRepository {
	return &TestRepository{pool: pool}
}

// GetByID retrieves a test by its UUID.
func (r *TestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Test, error) {
	t := &model.Test{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, capture_enabled, created_at FROM tests WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.CaptureEnabled, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// GetLinkedTest retrieves the follow-on test for a finished test, if any.
// Returns (nil, nil) when the test links nowhere.
func (r *TestRepository) GetLinkedTest(ctx context.Context, testID uuid.UUID) (*model.LinkedTest, error) {
	lt := &model.LinkedTest{}
	err := r.pool.QueryRow(ctx,
		`SELECT lt.test_id, lt.next_test_id, t.title
		 FROM linked_tests lt
		 JOIN tests t ON t.id = lt.next_test_id
		 WHERE lt.test_id = $1`, testID,
	).Scan(&lt.TestID, &lt.NextTestID, &lt.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return lt, nil
}

// Create inserts a test definition. Used by seeding.
func (r *TestRepository) Create(ctx context.Context, t *model.Test) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO tests (id, title, capture_enabled, created_at)
		 VALUES ($1, $2, $3, NOW())`,
		t.ID, t.Title, t.CaptureEnabled)
	return err
}

// Link points a test at a follow-on test. Used by seeding.
func (r *TestRepository) Link(ctx context.Context, testID, nextTestID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO linked_tests (test_id, next_test_id)
		 VALUES ($1, $2)
		 ON CONFLICT (test_id) DO UPDATE SET next_test_id = EXCLUDED.next_test_id`,
		testID, nextTestID)
	return err
}
