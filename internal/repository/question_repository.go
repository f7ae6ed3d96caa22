package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListBySection retrieves a section's questions in presentation order.
func (r *QuestionRepository) ListBySection(ctx context.Context, testID, subjectID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_number, type, body,
		        choice_a, choice_b, choice_c, choice_d,
		        negative_marks, topic_id, resource_type, paragraph, help_file_ref
		 FROM questions
		 WHERE test_id = $1 AND subject_id = $2
		 ORDER BY position ASC`, testID, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.QuestionNumber, &q.Type, &q.Body,
			&q.Choices[0], &q.Choices[1], &q.Choices[2], &q.Choices[3],
			&q.NegativeMarks, &q.TopicID, &q.ResourceType, &q.Paragraph, &q.HelpFileRef); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Create inserts a question. Used by seeding.
func (r *QuestionRepository) Create(ctx context.Context, testID, subjectID uuid.UUID, position int, q *model.Question, correctValue string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO questions
		   (id, test_id, subject_id, question_number, type, body,
		    choice_a, choice_b, choice_c, choice_d,
		    negative_marks, topic_id, resource_type, paragraph, help_file_ref,
		    correct_value, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		q.ID, testID, subjectID, q.QuestionNumber, q.Type, q.Body,
		q.Choices[0], q.Choices[1], q.Choices[2], q.Choices[3],
		q.NegativeMarks, q.TopicID, q.ResourceType, q.Paragraph, q.HelpFileRef,
		correctValue, position)
	return err
}
