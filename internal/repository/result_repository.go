package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// ErrResultNotReady is returned while an attempt's scores have not been
// computed yet. The caller is expected to retry.
var ErrResultNotReady = errors.New("result not computed yet")

// ResultRepository handles score computation and result data access.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// ComputeSectionScores scores every sealed section of an attempt in one
// statement and returns the total. Canonical answer encodings make string
// equality against the stored correct value sufficient for choice and order
// questions; free-text questions count toward attempted only.
func (r *ResultRepository) ComputeSectionScores(ctx context.Context, userTestID uuid.UUID) (float64, error) {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO section_scores (user_test_id, subject_id, attempted, correct, score)
		 SELECT ua.user_test_id, ua.subject_id,
		        COUNT(*),
		        COUNT(*) FILTER (WHERE q.type IN ('SINGLE_CHOICE','MULTI_CHOICE','ORDER')
		                           AND ua.raw_value = q.correct_value),
		        COALESCE(SUM(CASE
		          WHEN q.type NOT IN ('SINGLE_CHOICE','MULTI_CHOICE','ORDER') THEN 0
		          WHEN ua.raw_value = q.correct_value THEN 1
		          ELSE -q.negative_marks
		        END), 0)
		 FROM user_answers ua
		 JOIN user_tests ut ON ut.id = ua.user_test_id
		 JOIN questions q ON q.test_id = ut.test_id
		                 AND q.subject_id = ua.subject_id
		                 AND q.question_number = ua.question_number
		 WHERE ua.user_test_id = $1 AND ua.raw_value <> ''
		 GROUP BY ua.user_test_id, ua.subject_id
		 ON CONFLICT (user_test_id, subject_id) DO UPDATE
		 SET attempted = EXCLUDED.attempted,
		     correct = EXCLUDED.correct,
		     score = EXCLUDED.score`,
		userTestID)
	if err != nil {
		return 0, err
	}

	var total float64
	err = r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(score), 0) FROM section_scores WHERE user_test_id = $1`,
		userTestID).Scan(&total)
	return total, err
}

// GetResult retrieves the computed result of a completed attempt. Returns
// ErrResultNotReady while the attempt is still IN_PROGRESS.
func (r *ResultRepository) GetResult(ctx context.Context, userTestID uuid.UUID) (*model.TestResult, error) {
	res := &model.TestResult{UserTestID: userTestID}

	var status model.UserTestStatus
	var finalScore *float64
	err := r.pool.QueryRow(ctx,
		`SELECT test_id, user_id, status, final_score, COALESCE(finished_at, NOW())
		 FROM user_tests WHERE id = $1`, userTestID,
	).Scan(&res.TestID, &res.UserID, &status, &finalScore, &res.ComputedAt)
	if err != nil {
		return nil, err
	}
	if status != model.UserTestStatusCompleted || finalScore == nil {
		return nil, ErrResultNotReady
	}
	res.TotalScore = *finalScore

	rows, err := r.pool.Query(ctx,
		`SELECT ss.subject_id, s.description, ss.attempted, ss.correct, ss.score
		 FROM section_scores ss
		 JOIN sections s ON s.test_id = $2 AND s.subject_id = ss.subject_id
		 WHERE ss.user_test_id = $1
		 ORDER BY s.position ASC`, userTestID, res.TestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var sc model.SectionScore
		if err := rows.Scan(&sc.SubjectID, &sc.Description, &sc.Attempted, &sc.Correct, &sc.Score); err != nil {
			return nil, err
		}
		res.Sections = append(res.Sections, sc)
	}
	return res, rows.Err()
}
