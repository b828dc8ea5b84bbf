package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/cloud-wave-best-zizon/stock-tracker/internal/domain"
	"github.com/cloud-wave-best-zizon/stock-tracker/internal/repository"
)

// AuthService mirrors identity-provider users into local storage. It
// issues no tokens.
type AuthService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

func NewAuthService(users repository.UserRepository, logger *zap.Logger) *AuthService {
	return &AuthService{users: users, logger: logger}
}

func (s *AuthService) Upsert(ctx context.Context, in domain.UpsertUserInput) (*domain.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	user, err := s.users.Upsert(ctx, in.User())
	if err != nil {
		s.logger.Error("Failed to upsert user", zap.String("email", in.Email), zap.Error(err))
		return nil, err
	}

	s.logger.Info("User upserted", zap.String("user_id", user.ID))
	return user, nil
}
