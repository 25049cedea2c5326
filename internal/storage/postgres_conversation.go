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

// Define retry constant for bulk operations
const (
	bulkCommitRetryMaxElapsedTime = 15 * time.Second
)

// --- Conversation Repository Methods ---

// Save saves or updates a single conversation record keyed by conversation_id.
func (r *PostgresRepo) Save(ctx context.Context, conv model.Conversation) error {
	operation := func() error {
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

		var existing model.Conversation
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("conversation_id = ?", conv.ConversationID).
			First(&existing)
		findErr := result.Error

		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				if createErr := tx.Create(&conv).Error; createErr != nil {
					txErr = checkConstraintViolation(createErr)
					return txErr
				}
			} else {
				txErr = fmt.Errorf("%w: failed to lock conversation row: %w", apperrors.ErrDatabase, findErr)
				return txErr
			}
		} else {
			conv.ID = existing.ID
			conv.UpdatedAt = utils.Now()
			if updateErr := tx.Model(&existing).Updates(conv).Error; updateErr != nil {
				txErr = checkConstraintViolation(updateErr)
				return txErr
			}
		}
		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit save transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveConversation Commit", operation)
	observer.ObserveDbOperationDuration("save", "conversation", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save conversation after retries",
			zap.String("conversation_id", conv.ConversationID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// BulkUpsert performs a bulk upsert of conversation records with
// conversation_id as the conflict target. Used by the sync path, one call
// per provider page. Additive: rows are created or rewritten, never removed.
func (r *PostgresRepo) BulkUpsert(ctx context.Context, convs []model.Conversation) error {
	if len(convs) == 0 {
		return nil
	}
	loggerCtx := logger.FromContext(ctx)

	for i := range convs {
		convs[i].UpdatedAt = utils.Now()
	}

	operation := func() error {
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
					loggerCtx.Error("Failed to rollback transaction after error", zap.Error(rbErr), zap.NamedError("originalTxError", txErr))
				}
			}
		}()

		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "conversation_id"}},
			DoUpdates: clause.AssignmentColumns(model.ConversationUpdateColumns()),
		}).Create(&convs)

		if result.Error != nil {
			txErr = fmt.Errorf("%w: bulk upsert conversations failed: %w", apperrors.ErrDatabase, result.Error)
			return txErr
		}

		if commitErr := tx.Commit().Error; commitErr != nil {
			txErr = fmt.Errorf("%w: failed to commit bulk upsert conversations transaction: %w", apperrors.ErrDatabase, commitErr)
			return txErr
		}
		loggerCtx.Info("Bulk upsert conversations successful",
			zap.Int("conversations_processed", len(convs)),
			zap.Int64("rows_affected", result.RowsAffected))
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, bulkCommitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "BulkUpsertConversations Commit", operation)
	observer.ObserveDbOperationDuration("bulk_upsert", "conversation", time.Since(startTime), commitErr)
	if commitErr != nil {
		loggerCtx.Error("Failed to bulk upsert conversations after retries", zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindByConversationID finds a conversation by the provider identifier.
func (r *PostgresRepo) FindByConversationID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var conv model.Conversation
	operation := func() error {
		result := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID).First(&conv)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindConversationByID", operation)
	observer.ObserveDbOperationDuration("find", "conversation", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find conversation after retries",
			zap.String("conversation_id", conversationID),
			zap.Error(findErr))
		return nil, wrapReadError(findErr, "FindConversationByID")
	}
	return &conv, nil
}

// FindRange returns conversations with created_at inside the optional
// [startDate, endDate) bounds, newest first; the end bound is exclusive so a
// day range never captures the next midnight. Nil bounds are open. An empty
// result is success, not an error.
func (r *PostgresRepo) FindRange(ctx context.Context, startDate, endDate *time.Time) ([]model.Conversation, error) {
	var convs []model.Conversation
	operation := func() error {
		query := r.db.WithContext(ctx).Model(&model.Conversation{})
		if startDate != nil {
			query = query.Where("created_at >= ?", *startDate)
		}
		if endDate != nil {
			query = query.Where("created_at < ?", *endDate)
		}
		result := query.Order("created_at DESC").Find(&convs)
		if result.Error != nil {
			return fmt.Errorf("%w: query failed: %w", apperrors.ErrDatabase, result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindConversationRange", operation)
	observer.ObserveDbOperationDuration("list", "conversation", time.Since(startTime), findErr)

	if findErr != nil {
		logger.FromContext(ctx).Error("Failed to list conversations after retries", zap.Error(findErr))
		return nil, wrapReadError(findErr, "FindConversationRange")
	}
	return convs, nil
}
