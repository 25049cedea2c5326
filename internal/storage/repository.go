package storage

import (
	"context"
	"time"

	"gitlab.com/voxlane/api/voicedash/internal/model"
)

// UserRepo defines user storage operations. Upsert is keyed by email.
type UserRepo interface {
	Upsert(ctx context.Context, user model.User) (*model.User, error)
	FindByID(ctx context.Context, id int64) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Close(ctx context.Context) error
}

// ConversationRepo defines conversation storage operations. All writes are
// upserts keyed by conversation_id; nothing ever deletes rows.
type ConversationRepo interface {
	Save(ctx context.Context, conv model.Conversation) error
	BulkUpsert(ctx context.Context, convs []model.Conversation) error
	FindByConversationID(ctx context.Context, conversationID string) (*model.Conversation, error)
	FindRange(ctx context.Context, startDate, endDate *time.Time) ([]model.Conversation, error)
	Close(ctx context.Context) error
}

// TranscriptRepo defines transcript cache operations
type TranscriptRepo interface {
	Save(ctx context.Context, transcript model.Transcript) error
	FindByConversationID(ctx context.Context, conversationID string) (*model.Transcript, error)
	Close(ctx context.Context) error
}
