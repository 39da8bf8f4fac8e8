package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/enerdash/enerdash/internal/shared"
)

// Service wraps token authentication and access-scope resolution.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates an email/token credential pair and resolves the
// caller's accessible site keys.
func (s *Service) Authenticate(ctx context.Context, email, token string) (*shared.Caller, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return nil, shared.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidToken
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.TokenHash), []byte(token)); err != nil {
		return nil, shared.ErrInvalidToken
	}

	production, err := s.repo.AccessibleSiteKeys(ctx, user.ID, "production")
	if err != nil {
		return nil, err
	}
	consumption, err := s.repo.AccessibleSiteKeys(ctx, user.ID, "consumption")
	if err != nil {
		return nil, err
	}
	return &shared.Caller{
		UserID:          user.ID,
		Email:           user.Email,
		ProductionKeys:  production,
		ConsumptionKeys: consumption,
	}, nil
}
