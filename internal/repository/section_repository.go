package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// SectionRepository handles section (subject) data access.
type SectionRepository struct {
	pool *pgxpool.Pool
}

// NewSectionRepository creates a new SectionRepository.
func NewSectionRepository(pool *pgxpool.Pool) *SectionRepository {
	return &SectionRepository{pool: pool}
}

// ListByTest retrieves a test's sections in progression order.
func (r *SectionRepository) ListByTest(ctx context.Context, testID uuid.UUID) ([]model.Section, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT subject_id, description, duration_minutes, position
		 FROM sections WHERE test_id = $1
		 ORDER BY position ASC`, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sections []model.Section
	for rows.Next() {
		var s model.Section
		if err := rows.Scan(&s.SubjectID, &s.Description, &s.DurationMinutes, &s.Position); err != nil {
			return nil, err
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// Create inserts a section. Used by seeding.
func (r *SectionRepository) Create(ctx context.Context, testID uuid.UUID, s *model.Section) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sections (test_id, subject_id, description, duration_minutes, position)
		 VALUES ($1, $2, $3, $4, $5)`,
		testID, s.SubjectID, s.Description, s.DurationMinutes, s.Position)
	return err
}
