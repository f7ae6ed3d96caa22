package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

var ErrDuplicateUsername = errors.New("username already taken")

// CandidateRepository handles candidate account data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

// GetByID retrieves a candidate by ID.
func (r *CandidateRepository) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM candidates WHERE id = $1`, id,
	).Scan(&c.ID, &c.Username, &c.Name, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByUsername retrieves a candidate by their unique username.
func (r *CandidateRepository) GetByUsername(ctx context.Context, username string) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM candidates WHERE username = $1`, username,
	).Scan(&c.ID, &c.Username, &c.Name, &c.PasswordHash, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a candidate account.
func (r *CandidateRepository) Create(ctx context.Context, c *model.Candidate) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO candidates (username, name, password_hash, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, created_at`,
		c.Username, c.Name, c.PasswordHash,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateUsername
		}
		return err
	}
	return nil
}
