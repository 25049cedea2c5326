package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/cache"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/provider"
	providermock "gitlab.com/voxlane/api/voicedash/internal/provider/mock"
	storagemock "gitlab.com/voxlane/api/voicedash/internal/storage/mock"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
)

func newConversationService(t *testing.T) (*ConversationService, *storagemock.ConversationRepoMock, *storagemock.TranscriptRepoMock, *providermock.ClientMock) {
	logger.Log = zaptest.NewLogger(t).Named("test")
	convRepo := new(storagemock.ConversationRepoMock)
	transcripts := new(storagemock.TranscriptRepoMock)
	client := new(providermock.ClientMock)
	svc := NewConversationService(convRepo, transcripts, client, cache.NewAgentNameCache(time.Minute))
	return svc, convRepo, transcripts, client
}

func strPtr(s string) *string { return &s }

// TestConversationList_RestrictedUserSeesOwnLineOnly is the two-user scenario:
// five stored conversations, two on alice's line. Alice gets exactly her two
// in stored order; the admin gets all five.
func TestConversationList_RestrictedUserSeesOwnLineOnly(t *testing.T) {
	svc, convRepo, _, _ := newConversationService(t)
	ctx := context.Background()

	aliceLine := "+6281111111111"
	otherLine := "+6282222222222"
	stored := []model.Conversation{
		*model.NewConversation(&model.Conversation{ConversationID: "conv_1", ReceiverNumber: aliceLine}),
		*model.NewConversation(&model.Conversation{ConversationID: "conv_2", ReceiverNumber: otherLine}),
		*model.NewConversation(&model.Conversation{ConversationID: "conv_3", ReceiverNumber: aliceLine}),
		*model.NewConversation(&model.Conversation{ConversationID: "conv_4", ReceiverNumber: otherLine}),
		*model.NewConversation(&model.Conversation{ConversationID: "conv_5", ReceiverNumber: otherLine}),
	}
	convRepo.On("FindRange", ctx, (*time.Time)(nil), (*time.Time)(nil)).Return(stored, nil).Twice()

	alice := model.NewUser(&model.User{Email: "alice@example.com", ReceiverNumber: &aliceLine})
	visible, err := svc.List(ctx, alice, nil, nil)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, "conv_1", visible[0].ConversationID)
	assert.Equal(t, "conv_3", visible[1].ConversationID)

	admin := model.NewUnrestrictedUser()
	all, err := svc.List(ctx, admin, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	convRepo.AssertExpectations(t)
}

// TestConversationList_EmptyMatchIsSuccess verifies a filter that matches
// nothing returns an empty list, not an error.
func TestConversationList_EmptyMatchIsSuccess(t *testing.T) {
	svc, convRepo, _, _ := newConversationService(t)
	ctx := context.Background()

	stored := []model.Conversation{
		*model.NewConversation(&model.Conversation{ReceiverNumber: "+6282222222222"}),
	}
	convRepo.On("FindRange", ctx, (*time.Time)(nil), (*time.Time)(nil)).Return(stored, nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6289999999999")})
	visible, err := svc.List(ctx, user, nil, nil)

	require.NoError(t, err)
	assert.Empty(t, visible)
}

// TestConversationDetail_CrossTenantIsNotFound verifies the anti-enumeration
// rule: a record on someone else's line answers exactly like a missing one,
// and no provider call happens for it.
func TestConversationDetail_CrossTenantIsNotFound(t *testing.T) {
	svc, convRepo, _, client := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_other",
		ReceiverNumber: "+6282222222222",
	})
	convRepo.On("FindByConversationID", ctx, "conv_other").Return(stored, nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	detail, err := svc.Detail(ctx, user, "conv_other")

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	client.AssertNotCalled(t, "GetConversation")
	convRepo.AssertExpectations(t)
}

// TestConversationDetail_ProviderDownServesLocal verifies the stored record
// is served unchanged when the provider is unreachable.
func TestConversationDetail_ProviderDownServesLocal(t *testing.T) {
	svc, convRepo, _, client := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_1",
		ReceiverNumber: "+6281111111111",
	})
	convRepo.On("FindByConversationID", ctx, "conv_1").Return(stored, nil)
	client.On("GetConversation", ctx, "conv_1").Return(nil, apperrors.ErrUpstreamUnavailable)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	detail, err := svc.Detail(ctx, user, "conv_1")

	require.NoError(t, err)
	assert.Equal(t, stored.ConversationID, detail.ConversationID)
	convRepo.AssertExpectations(t)
}

// TestConversationDetail_EnrichesAndPersists verifies the provider analysis
// fields are merged and the refreshed record saved.
func TestConversationDetail_EnrichesAndPersists(t *testing.T) {
	svc, convRepo, _, client := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_1",
		ReceiverNumber: "+6281111111111",
	})
	convRepo.On("FindByConversationID", ctx, "conv_1").Return(stored, nil)

	sentiment := 0.9
	client.On("GetConversation", ctx, "conv_1").Return(&provider.ConversationDetail{
		ConversationID:    "conv_1",
		AgentName:         "Support",
		StartTimeUnixSecs: time.Now().Add(-time.Hour).Unix(),
		CallDurationSecs:  120,
		SentimentScore:    &sentiment,
		Metadata: &provider.ConversationMetadata{
			PhoneCall: &provider.PhoneCall{
				ExternalNumber: "+14155550100",
				AgentNumber:    "+6281111111111",
			},
		},
		Analysis: &provider.ConversationAnalysis{
			TranscriptSummary: "Caller asked about billing.",
			CallSummaryTitle:  "Billing question",
			CallSuccessful:    "success",
		},
	}, nil)
	convRepo.On("Save", ctx, mockMatchConversation("conv_1")).Return(nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	detail, err := svc.Detail(ctx, user, "conv_1")

	require.NoError(t, err)
	assert.Equal(t, "Caller asked about billing.", detail.TranscriptSummary)
	assert.Equal(t, "Billing question", detail.CallSummaryTitle)
	assert.Equal(t, 120, detail.Duration)
	convRepo.AssertExpectations(t)
}

// TestConversationDetail_UnknownIDIsNotFound verifies an id unknown both
// locally and upstream yields ErrNotFound.
func TestConversationDetail_UnknownIDIsNotFound(t *testing.T) {
	svc, convRepo, _, client := newConversationService(t)
	ctx := context.Background()

	convRepo.On("FindByConversationID", ctx, "conv_ghost").Return(nil, apperrors.ErrNotFound)
	client.On("GetConversation", ctx, "conv_ghost").Return(nil, apperrors.ErrNotFound)

	detail, err := svc.Detail(ctx, model.NewUnrestrictedUser(), "conv_ghost")

	assert.Nil(t, detail)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// TestTranscript_CachedCopyServed verifies a cached transcript skips the
// provider entirely.
func TestTranscript_CachedCopyServed(t *testing.T) {
	svc, convRepo, transcripts, client := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_1",
		ReceiverNumber: "+6281111111111",
	})
	convRepo.On("FindByConversationID", ctx, "conv_1").Return(stored, nil)
	transcripts.On("FindByConversationID", ctx, "conv_1").
		Return(&model.Transcript{ConversationID: "conv_1", Text: "Agent: Hello"}, nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	transcript, err := svc.Transcript(ctx, user, "conv_1")

	require.NoError(t, err)
	assert.Equal(t, "Agent: Hello", transcript.Text)
	client.AssertNotCalled(t, "GetTranscript")
}

// TestTranscript_FetchedAndCached verifies a cache miss fetches from the
// provider and stores the result.
func TestTranscript_FetchedAndCached(t *testing.T) {
	svc, convRepo, transcripts, client := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_1",
		ReceiverNumber: "+6281111111111",
	})
	convRepo.On("FindByConversationID", ctx, "conv_1").Return(stored, nil)
	transcripts.On("FindByConversationID", ctx, "conv_1").Return(nil, apperrors.ErrNotFound)
	client.On("GetTranscript", ctx, "conv_1").Return("Agent: Hi there", nil)
	transcripts.On("Save", ctx, model.Transcript{ConversationID: "conv_1", Text: "Agent: Hi there"}).Return(nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	transcript, err := svc.Transcript(ctx, user, "conv_1")

	require.NoError(t, err)
	assert.Equal(t, "Agent: Hi there", transcript.Text)
	transcripts.AssertExpectations(t)
}

// TestTranscript_CrossTenantIsNotFound verifies transcripts inherit the
// conversation's visibility.
func TestTranscript_CrossTenantIsNotFound(t *testing.T) {
	svc, convRepo, transcripts, _ := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_other",
		ReceiverNumber: "+6282222222222",
	})
	convRepo.On("FindByConversationID", ctx, "conv_other").Return(stored, nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	transcript, err := svc.Transcript(ctx, user, "conv_other")

	assert.Nil(t, transcript)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	transcripts.AssertNotCalled(t, "FindByConversationID")
}

// TestAudioInfo_NoAudio verifies the probe answers available=false instead of
// failing when the provider has no audio.
func TestAudioInfo_NoAudio(t *testing.T) {
	svc, convRepo, _, client := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_1",
		ReceiverNumber: "+6281111111111",
	})
	convRepo.On("FindByConversationID", ctx, "conv_1").Return(stored, nil)
	client.On("GetConversation", ctx, "conv_1").Return(&provider.ConversationDetail{
		ConversationID: "conv_1",
		HasAudio:       false,
	}, nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	info, err := svc.AudioInfo(ctx, user, "conv_1")

	require.NoError(t, err)
	assert.False(t, info.Available)
	assert.Empty(t, info.StreamPath)
}

// TestAudioInfo_AvailablePointsAtProxy verifies the returned URL is this
// service's stream path, never the provider's.
func TestAudioInfo_AvailablePointsAtProxy(t *testing.T) {
	svc, convRepo, _, client := newConversationService(t)
	ctx := context.Background()

	stored := model.NewConversation(&model.Conversation{
		ConversationID: "conv_1",
		ReceiverNumber: "+6281111111111",
	})
	convRepo.On("FindByConversationID", ctx, "conv_1").Return(stored, nil)
	client.On("GetConversation", ctx, "conv_1").Return(&provider.ConversationDetail{
		ConversationID: "conv_1",
		HasAudio:       true,
	}, nil)

	user := model.NewUser(&model.User{ReceiverNumber: strPtr("+6281111111111")})
	info, err := svc.AudioInfo(ctx, user, "conv_1")

	require.NoError(t, err)
	assert.True(t, info.Available)
	assert.Equal(t, "/conversations/conv_1/audio/stream", info.StreamPath)
}

func mockMatchConversation(conversationID string) interface{} {
	return mock.MatchedBy(func(c model.Conversation) bool {
		return c.ConversationID == conversationID
	})
}
