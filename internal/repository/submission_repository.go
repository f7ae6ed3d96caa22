package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// SubmissionRepository handles sealed section submission data access.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Record seals one section's answers transactionally. The submission row is
// inserted with DO NOTHING, so replaying the same section is a no-op and the
// first sealed set of answers wins.
func (r *SubmissionRepository) Record(ctx context.Context, sub *model.SectionSubmission) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO section_submissions (user_test_id, subject_id, timer_value, submitted_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (user_test_id, subject_id) DO NOTHING`,
		sub.UserTestID, sub.SubjectID, sub.TimerValue)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Section already sealed by an earlier delivery.
		return tx.Commit(ctx)
	}

	if len(sub.Answers) > 0 {
		numbers := make([]string, len(sub.Answers))
		values := make([]string, len(sub.Answers))
		for i, a := range sub.Answers {
			numbers[i] = a.QuestionNumber
			values[i] = a.RawValue
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO user_answers (user_test_id, subject_id, question_number, raw_value)
			 SELECT $1, $2, q, v
			 FROM UNNEST($3::text[], $4::text[]) AS t(q, v)
			 ON CONFLICT (user_test_id, subject_id, question_number) DO UPDATE
			 SET raw_value = EXCLUDED.raw_value, updated_at = NOW()`,
			sub.UserTestID, sub.SubjectID, numbers, values)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// IsSubmitted reports whether a section is already sealed for an attempt.
func (r *SubmissionRepository) IsSubmitted(ctx context.Context, userTestID, subjectID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM section_submissions
		   WHERE user_test_id = $1 AND subject_id = $2)`,
		userTestID, subjectID).Scan(&exists)
	return exists, err
}

// ListSubmittedSubjects returns the subject IDs already sealed for an
// attempt, in submission order. Used to fast-forward a resumed session.
func (r *SubmissionRepository) ListSubmittedSubjects(ctx context.Context, userTestID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT subject_id FROM section_submissions
		 WHERE user_test_id = $1
		 ORDER BY submitted_at ASC`, userTestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subjects []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		subjects = append(subjects, id)
	}
	return subjects, rows.Err()
}
