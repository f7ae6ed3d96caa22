package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// AnswerRepository handles autosaved answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// Upsert creates or updates one answer snapshot without locking.
func (r *AnswerRepository) Upsert(ctx context.Context, userTestID, subjectID uuid.UUID, a *model.AnswerState) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_answers (user_test_id, subject_id, question_number, raw_value, marked_for_review)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_test_id, subject_id, question_number) DO UPDATE
		 SET raw_value = EXCLUDED.raw_value,
		     marked_for_review = EXCLUDED.marked_for_review,
		     updated_at = NOW()`,
		userTestID, subjectID, a.QuestionNumber, a.RawValue, a.MarkedForReview)
	return err
}

// UpsertMany bulk-upserts a section's answers in one round trip via UNNEST.
func (r *AnswerRepository) UpsertMany(ctx context.Context, userTestID, subjectID uuid.UUID, answers []model.AnswerState) error {
	if len(answers) == 0 {
		return nil
	}

	numbers := make([]string, len(answers))
	values := make([]string, len(answers))
	reviews := make([]bool, len(answers))
	for i, a := range answers {
		numbers[i] = a.QuestionNumber
		values[i] = a.RawValue
		reviews[i] = a.MarkedForReview
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_answers (user_test_id, subject_id, question_number, raw_value, marked_for_review)
		 SELECT $1, $2, q, v, m
		 FROM UNNEST($3::text[], $4::text[], $5::boolean[]) AS t(q, v, m)
		 ON CONFLICT (user_test_id, subject_id, question_number) DO UPDATE
		 SET raw_value = EXCLUDED.raw_value,
		     marked_for_review = EXCLUDED.marked_for_review,
		     updated_at = NOW()`,
		userTestID, subjectID, numbers, values, reviews)
	return err
}

// ListBySection retrieves the saved answers for one section of an attempt,
// keyed by question number. Used to restore a resumed session.
func (r *AnswerRepository) ListBySection(ctx context.Context, userTestID, subjectID uuid.UUID) (map[string]model.AnswerState, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question_number, raw_value, marked_for_review
		 FROM user_answers
		 WHERE user_test_id = $1 AND subject_id = $2`, userTestID, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	saved := make(map[string]model.AnswerState)
	for rows.Next() {
		var a model.AnswerState
		if err := rows.Scan(&a.QuestionNumber, &a.RawValue, &a.MarkedForReview); err != nil {
			return nil, err
		}
		saved[a.QuestionNumber] = a
	}
	return saved, rows.Err()
}
