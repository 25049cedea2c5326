package storage

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/observer"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// --- Transcript Repository Methods ---

// SaveTranscript stores a fetched transcript. Transcripts are immutable once
// cached; a second save for the same conversation simply adds a newer row and
// FindTranscriptByConversationID always returns the latest.
func (r *PostgresRepo) SaveTranscript(ctx context.Context, transcript model.Transcript) error {
	operation := func() error {
		if createErr := r.db.WithContext(ctx).Create(&transcript).Error; createErr != nil {
			return checkConstraintViolation(createErr)
		}
		return nil
	}

	commitPolicy := newRetryPolicy(ctx, commitRetryMaxElapsedTime)
	startTime := utils.Now()
	commitErr := retryableOperation(ctx, commitPolicy, "SaveTranscript Commit", operation)
	observer.ObserveDbOperationDuration("save", "transcript", time.Since(startTime), commitErr)
	if commitErr != nil {
		logger.FromContext(ctx).Error("Failed to save transcript after retries",
			zap.String("conversation_id", transcript.ConversationID),
			zap.Error(commitErr))
		return commitErr
	}
	return nil
}

// FindTranscriptByConversationID returns the latest cached transcript for a
// conversation, or ErrNotFound when nothing has been cached yet.
func (r *PostgresRepo) FindTranscriptByConversationID(ctx context.Context, conversationID string) (*model.Transcript, error) {
	var transcript model.Transcript
	operation := func() error {
		result := r.db.WithContext(ctx).
			Where("conversation_id = ?", conversationID).
			Order("created_at DESC").
			First(&transcript)
		if result.Error != nil {
			return checkConstraintViolation(result.Error)
		}
		return nil
	}

	readPolicy := newRetryPolicy(ctx, readRetryMaxElapsedTime)
	startTime := utils.Now()
	findErr := retryableOperation(ctx, readPolicy, "FindTranscriptByConversationID", operation)
	observer.ObserveDbOperationDuration("find", "transcript", time.Since(startTime), findErr)

	if findErr != nil {
		if errors.Is(findErr, apperrors.ErrNotFound) {
			return nil, apperrors.ErrNotFound
		}
		logger.FromContext(ctx).Error("Failed to find transcript after retries",
			zap.String("conversation_id", conversationID),
			zap.Error(findErr))
		return nil, wrapReadError(findErr, "FindTranscriptByConversationID")
	}
	return &transcript, nil
}

// transcriptRepoAdapter exposes the transcript methods under the TranscriptRepo
// interface without colliding with ConversationRepo's Save.
type transcriptRepoAdapter struct {
	repo *PostgresRepo
}

// TranscriptStore returns the TranscriptRepo view of the repository.
func (r *PostgresRepo) TranscriptStore() TranscriptRepo {
	return &transcriptRepoAdapter{repo: r}
}

func (a *transcriptRepoAdapter) Save(ctx context.Context, transcript model.Transcript) error {
	return a.repo.SaveTranscript(ctx, transcript)
}

func (a *transcriptRepoAdapter) FindByConversationID(ctx context.Context, conversationID string) (*model.Transcript, error) {
	return a.repo.FindTranscriptByConversationID(ctx, conversationID)
}

func (a *transcriptRepoAdapter) Close(ctx context.Context) error {
	return a.repo.Close(ctx)
}

var _ TranscriptRepo = (*transcriptRepoAdapter)(nil)
var _ UserRepo = (*PostgresRepo)(nil)
var _ ConversationRepo = (*PostgresRepo)(nil)
