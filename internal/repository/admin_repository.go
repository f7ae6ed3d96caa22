package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/velora-edu/examspace-backend/internal/model"
)

// AdminRepository handles admin account data access.
type AdminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository creates a new AdminRepository.
func NewAdminRepository(pool *pgxpool.Pool) *AdminRepository {
	return &AdminRepository{pool: pool}
}

// GetByUsername retrieves an admin by their unique username.
func (r *AdminRepository) GetByUsername(ctx context.Context, username string) (*model.Admin, error) {
	a := &model.Admin{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, username, name, password_hash, created_at
		 FROM admins WHERE username = $1`, username,
	).Scan(&a.ID, &a.Username, &a.Name, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create inserts an admin account. Used by seeding.
func (r *AdminRepository) Create(ctx context.Context, a *model.Admin) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO admins (username, name, password_hash, created_at)
		 VALUES ($1, $2, $3, NOW())
		 RETURNING id, created_at`,
		a.Username, a.Name, a.PasswordHash,
	).Scan(&a.ID, &a.CreatedAt)
}
