package mock

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"gitlab.com/voxlane/api/voicedash/internal/model"
)

// --- UserRepo Mock ---

// UserRepoMock mocks the UserRepo interface
type UserRepoMock struct {
	mock.Mock
}

// Upsert mocks the Upsert method
func (m *UserRepoMock) Upsert(ctx context.Context, user model.User) (*model.User, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// FindByID mocks the FindByID method
func (m *UserRepoMock) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// FindByEmail mocks the FindByEmail method
func (m *UserRepoMock) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// Close mocks the Close method
func (m *UserRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- ConversationRepo Mock ---

// ConversationRepoMock mocks the ConversationRepo interface
type ConversationRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *ConversationRepoMock) Save(ctx context.Context, conv model.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

// BulkUpsert mocks the BulkUpsert method
func (m *ConversationRepoMock) BulkUpsert(ctx context.Context, convs []model.Conversation) error {
	args := m.Called(ctx, convs)
	return args.Error(0)
}

// FindByConversationID mocks the FindByConversationID method
func (m *ConversationRepoMock) FindByConversationID(ctx context.Context, conversationID string) (*model.Conversation, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Conversation), args.Error(1)
}

// FindRange mocks the FindRange method
func (m *ConversationRepoMock) FindRange(ctx context.Context, startDate, endDate *time.Time) ([]model.Conversation, error) {
	args := m.Called(ctx, startDate, endDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Conversation), args.Error(1)
}

// Close mocks the Close method
func (m *ConversationRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- TranscriptRepo Mock ---

// TranscriptRepoMock mocks the TranscriptRepo interface
type TranscriptRepoMock struct {
	mock.Mock
}

// Save mocks the Save method
func (m *TranscriptRepoMock) Save(ctx context.Context, transcript model.Transcript) error {
	args := m.Called(ctx, transcript)
	return args.Error(0)
}

// FindByConversationID mocks the FindByConversationID method
func (m *TranscriptRepoMock) FindByConversationID(ctx context.Context, conversationID string) (*model.Transcript, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Transcript), args.Error(1)
}

// Close mocks the Close method
func (m *TranscriptRepoMock) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
