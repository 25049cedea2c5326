package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/observer"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// --- User Repository Methods ---

// Upsert saves or updates a user record keyed by email. The row is locked
// before the decision so concurrent provisioning of the same email cannot
// produce duplicates. On update the original CreatedAt is preserved and the
// receiver columns are partial: a nil pointer leaves the stored mapping
// alone, a pointer to the empty string clears it to NULL. On insert the full
// record is written. Returns the stored row.
func (r *PostgresRepo) Upsert(ctx context.Context, user model.User) (*model.User, error) {
	var stored model.User

	operation := func() error {
		logger.FromContext(ctx).Info("Begin DB Ops", zap.String("email", user.Email))

		tx := r.db.WithContext(ctx).Begin()
		if tx.Error != nil {
			return fmt.Errorf("%w: failed to begin transaction: %w", apperrors.ErrDatabase, tx.Error)
		}
		var txErr error
		defer func() {
			if p := recover(); p != nil {
				tx.Rollback()
				panic(p)
			} else if txErr != nil {
				if rbErr := tx.Rollback().Error; rbErr != nil {
					logger.FromContext(ctx).Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		var existing model.User
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("email = ?", user.Email).
			First(&existing)
		findErr := result.Error

		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				logger.FromContext(ctx).Info("No Existing, Insert Record", zap.String("email", user.Email))
				if user.ReceiverNumber != nil {
					user.ReceiverNumber = nullableText(*user.ReceiverNumber)
				}
				if user.ReceiverName != nil {
					user.ReceiverName = nullableText(*user.ReceiverName)
				}
				if createErr := tx.Create(&user).Error; createErr != nil {
					logger.FromContext(ctx).Error("Create Insert Record Error", zap.String("email", user.Email), zap.Error(createErr))
					txErr = checkConstraintViolation(createErr)
					return txErr
				}
				stored = user
			} else {
				txErr = fmt.Errorf("%w: failed to lock user row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
		} else {
			logger.FromContext(ctx).Info("Found Existing, Update Record", zap.String("email", user.Email))
			merged := existing
			merged.Name = user.Name
			merged.PasswordHash = user.PasswordHash
			merged.UpdatedAt = utils.Now()

			updates := map[string]interface{}{
				"name":          merged.Name,
				"password_hash": merged.PasswordHash,
				"updated_at":    merged.UpdatedAt,
			}
			if user.ReceiverNumber != nil {
				merged.ReceiverNumber = nullableText(*user.ReceiverNumber)
				updates["receiver_number"] = merged.ReceiverNumber
			}
			if user.ReceiverName != nil {
				merged.ReceiverName = nullableText(*user.ReceiverName)
				updates["receiver_name"] = merged.ReceiverName
			}
			if updateErr := tx.Model(&existing).Updates(updates).Error; updateErr != nil {
				txErr = checkConstraintViolation(updateErr)
				return txErr
			}
			stored = merged
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit save transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "UpsertUser Commit", operation)
	observer.ObserveDbOperationDuration("upsert", "user", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to upsert user after retries", zap.String("email", user.Email), zap.Error(commitErr))
		return nil, commitErr
	}
	logger.FromContext(ctx).Info("Done DB Ops", zap.String("email", user.Email), zap.Int64("id", stored.ID))
	return &stored, nil
}

// nullableText maps the empty string to NULL so a cleared mapping and an
// absent one store the same value.
func nullableText(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// FindByID finds a user by primary key.
func (r *PostgresRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	var user model.User
	operation := func() error {
		result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindUserByID", operation)
	observer.ObserveDbOperationDuration("find", "user", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find user by ID after retries",
			zap.Int64("id", id),
			zap.Error(findErr))
		return nil, wrapReadError(findErr, "FindUserByID")
	}
	return &user, nil
}

// FindByEmail finds a user by email, the login and upsert key.
func (r *PostgresRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	operation := func() error {
		result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindUserByEmail", operation)
	observer.ObserveDbOperationDuration("find", "user", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find user by email after retries",
			zap.String("email", email),
			zap.Error(findErr))
		return nil, wrapReadError(findErr, "FindUserByEmail")
	}
	return &user, nil
}
