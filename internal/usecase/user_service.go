package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/auth"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/internal/validator"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
)

// UserService provisions dashboard users and their receiver-number mappings.
type UserService struct {
	userRepo storage.UserRepo
}

// NewUserService creates a new user service.
func NewUserService(userRepo storage.UserRepo) *UserService {
	return &UserService{userRepo: userRepo}
}

// Upsert creates or rewrites the user identified by input.Email. The password
// is hashed here; the repository stores one row per email. ReceiverNumber and
// ReceiverName are independent partial fields: nil leaves the stored value
// alone, the empty string clears the mapping (the stored value becomes null,
// the user unrestricted).
func (s *UserService) Upsert(ctx context.Context, input model.UserUpsert) (*model.User, error) {
	if err := validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := model.User{
		Name:           input.Name,
		Email:          input.Email,
		PasswordHash:   hash,
		ReceiverNumber: input.ReceiverNumber,
		ReceiverName:   input.ReceiverName,
	}

	stored, err := s.userRepo.Upsert(ctx, user)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("User provisioned",
		zap.String("email", stored.Email),
		zap.Bool("restricted", stored.ReceiverNumber != nil),
	)
	return stored, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.userRepo.FindByID(ctx, id)
}
