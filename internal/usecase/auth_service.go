package usecase

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/auth"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/observer"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
)

// AuthService performs credential checks and token issuance.
type AuthService struct {
	userRepo storage.UserRepo
	tokens   *auth.TokenIssuer
}

// NewAuthService creates a new auth service.
func NewAuthService(userRepo storage.UserRepo, tokens *auth.TokenIssuer) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

// Login checks the credentials and returns a bearer token. A wrong password
// and an unknown email both come back as ErrUnauthenticated; the caller
// cannot tell which one failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			observer.IncAuthFailure("unknown_email")
			return "", fmt.Errorf("%w: incorrect email or password", apperrors.ErrUnauthenticated)
		}
		return "", err
	}

	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		observer.IncAuthFailure("wrong_password")
		return "", fmt.Errorf("%w: incorrect email or password", apperrors.ErrUnauthenticated)
	}

	token, err := s.tokens.Issue(user.Email)
	if err != nil {
		return "", err
	}

	logger.FromContext(ctx).Info("User logged in", zap.String("email", user.Email))
	return token, nil
}

// ResolveToken verifies a bearer token and loads the user it belongs to. The
// user row is re-read on every call so a changed receiver mapping applies to
// the next request, not the next login.
func (s *AuthService) ResolveToken(ctx context.Context, token string) (*model.User, error) {
	email, err := s.tokens.Verify(token)
	if err != nil {
		observer.IncAuthFailure("invalid_token")
		return nil, err
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			observer.IncAuthFailure("unknown_subject")
			return nil, fmt.Errorf("%w: unknown token subject", apperrors.ErrUnauthenticated)
		}
		return nil, err
	}
	return user, nil
}
