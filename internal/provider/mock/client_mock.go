package mock

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"

	"gitlab.com/voxlane/api/voicedash/internal/provider"
)

// ClientMock mocks the provider.Client interface
type ClientMock struct {
	mock.Mock
}

// ListConversations mocks the ListConversations method
func (m *ClientMock) ListConversations(ctx context.Context, cursor string) (*provider.ConversationPage, error) {
	args := m.Called(ctx, cursor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ConversationPage), args.Error(1)
}

// GetConversation mocks the GetConversation method
func (m *ClientMock) GetConversation(ctx context.Context, conversationID string) (*provider.ConversationDetail, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.ConversationDetail), args.Error(1)
}

// GetTranscript mocks the GetTranscript method
func (m *ClientMock) GetTranscript(ctx context.Context, conversationID string) (string, error) {
	args := m.Called(ctx, conversationID)
	return args.String(0), args.Error(1)
}

// StreamAudio mocks the StreamAudio method
func (m *ClientMock) StreamAudio(ctx context.Context, conversationID string) (io.ReadCloser, string, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

// ListAgents mocks the ListAgents method
func (m *ClientMock) ListAgents(ctx context.Context) ([]provider.Agent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Agent), args.Error(1)
}

// GetAgent mocks the GetAgent method
func (m *ClientMock) GetAgent(ctx context.Context, agentID string) (*provider.Agent, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Agent), args.Error(1)
}

// CreateAgent mocks the CreateAgent method
func (m *ClientMock) CreateAgent(ctx context.Context, payload provider.AgentPayload) (*provider.Agent, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Agent), args.Error(1)
}

// UpdateAgent mocks the UpdateAgent method
func (m *ClientMock) UpdateAgent(ctx context.Context, agentID string, payload provider.AgentPayload) (*provider.Agent, error) {
	args := m.Called(ctx, agentID, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Agent), args.Error(1)
}
