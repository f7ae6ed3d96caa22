package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/velora-edu/examspace-backend/internal/model"
	"github.com/velora-edu/examspace-backend/internal/repository"
)

// AccountService handles candidate and admin account operations.
type AccountService struct {
	auth       *AuthService
	candidates *repository.CandidateRepository
	admins     *repository.AdminRepository
}

// NewAccountService creates a new AccountService.
func NewAccountService(auth *AuthService, candidates *repository.CandidateRepository, admins *repository.AdminRepository) *AccountService {
	return &AccountService{auth: auth, candidates: candidates, admins: admins}
}

// CandidateLogin verifies credentials and issues a single-device token.
func (s *AccountService) CandidateLogin(ctx context.Context, username, password string) (*model.Candidate, string, error) {
	candidate, err := s.candidates.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if err := s.auth.CheckPassword(candidate.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.auth.GenerateCandidateToken(ctx, candidate.ID)
	if err != nil {
		return nil, "", err
	}
	return candidate, token, nil
}

// AdminLogin verifies credentials and issues an admin token.
func (s *AccountService) AdminLogin(ctx context.Context, username, password string) (*model.Admin, string, error) {
	admin, err := s.admins.GetByUsername(ctx, username)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", err
	}
	if err := s.auth.CheckPassword(admin.PasswordHash, password); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.auth.GenerateAdminToken(admin.ID)
	if err != nil {
		return nil, "", err
	}
	return admin, token, nil
}

// GetCandidate retrieves a candidate profile by ID.
func (s *AccountService) GetCandidate(ctx context.Context, id int) (*model.Candidate, error) {
	return s.candidates.GetByID(ctx, id)
}
