package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"gitlab.com/voxlane/api/voicedash/internal/access"
	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/cache"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/provider"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// ConversationService serves the conversation read path. Every method takes
// the authenticated user and filters through the access package before
// anything crosses the trust boundary.
type ConversationService struct {
	convRepo    storage.ConversationRepo
	transcripts storage.TranscriptRepo
	client      provider.Client
	names       *cache.AgentNameCache
}

// NewConversationService creates a new conversation service.
func NewConversationService(
	convRepo storage.ConversationRepo,
	transcripts storage.TranscriptRepo,
	client provider.Client,
	names *cache.AgentNameCache,
) *ConversationService {
	return &ConversationService{
		convRepo:    convRepo,
		transcripts: transcripts,
		client:      client,
		names:       names,
	}
}

// AudioAvailability is the result of the audio probe. StreamPath points at
// this service's proxy endpoint; the provider URL is never exposed.
type AudioAvailability struct {
	Available  bool   `json:"available"`
	StreamPath string `json:"audio_url,omitempty"`
}

// List returns the user's visible conversations from the local store, newest
// first, optionally bounded by start and end dates. An empty result after
// filtering is success. Agent ids left unresolved by an earlier sync are
// swapped for display names when the cache can answer.
func (s *ConversationService) List(ctx context.Context, user *model.User, startDate, endDate *time.Time) ([]model.Conversation, error) {
	convs, err := s.convRepo.FindRange(ctx, startDate, endDate)
	if err != nil {
		return nil, err
	}

	s.resolveAgentLabels(ctx, convs)

	return access.VisibleConversations(user, convs), nil
}

// resolveAgentLabels replaces agent-id placeholders with display names, in
// memory only; the sync path is what persists resolved names.
func (s *ConversationService) resolveAgentLabels(ctx context.Context, convs []model.Conversation) {
	needsResolution := false
	for i := range convs {
		if looksLikeAgentID(convs[i].Agent) {
			needsResolution = true
			break
		}
	}
	if !needsResolution {
		return
	}

	if !s.names.Fresh() {
		s.refreshAgentNames(ctx)
	}
	for i := range convs {
		if !looksLikeAgentID(convs[i].Agent) {
			continue
		}
		if name, ok := s.names.Get(convs[i].Agent); ok && name != "" {
			convs[i].Agent = name
		}
	}
}

// refreshAgentNames refills the agent-name cache from the provider. Failures
// are logged and swallowed; a stale or empty cache only affects labels.
func (s *ConversationService) refreshAgentNames(ctx context.Context) {
	agents, err := s.client.ListAgents(ctx)
	if err != nil {
		logger.FromContext(ctx).Warn("Failed to refresh agent names", zap.Error(err))
		return
	}
	names := make(map[string]string, len(agents))
	for i := range agents {
		id := agents[i].Identifier()
		if id == "" {
			continue
		}
		name := agents[i].Name
		if name == "" {
			name = id
		}
		names[id] = name
	}
	s.names.Replace(names)
}

func looksLikeAgentID(agent string) bool {
	return strings.HasPrefix(agent, "agent_")
}

// Detail returns one conversation with the provider's analysis fields merged
// in. A conversation outside the user's scope returns ErrNotFound, exactly as
// an unknown id does. When the provider is unreachable the locally stored
// record is served as-is.
func (s *ConversationService) Detail(ctx context.Context, user *model.User, conversationID string) (*model.Conversation, error) {
	local, err := s.convRepo.FindByConversationID(ctx, conversationID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if local != nil {
		// Scope check before any enrichment; no provider traffic for records
		// the caller may not see.
		if !access.VisibleConversation(user, local) {
			return nil, fmt.Errorf("%w: conversation %s", apperrors.ErrNotFound, conversationID)
		}

		detail, provErr := s.client.GetConversation(ctx, conversationID)
		if provErr != nil {
			logger.FromContext(ctx).Warn("Serving conversation without provider enrichment",
				zap.String("conversation_id", conversationID),
				zap.Error(provErr))
			return local, nil
		}

		merged := s.mergeDetail(ctx, *local, detail)
		if saveErr := s.convRepo.Save(ctx, merged); saveErr != nil {
			logger.FromContext(ctx).Warn("Failed to persist refreshed conversation",
				zap.String("conversation_id", conversationID),
				zap.Error(saveErr))
		}
		return &merged, nil
	}

	// Unknown locally: the provider may already have it ahead of the next
	// sync run. Every failure mode here collapses to ErrNotFound.
	detail, provErr := s.client.GetConversation(ctx, conversationID)
	if provErr != nil {
		return nil, fmt.Errorf("%w: conversation %s", apperrors.ErrNotFound, conversationID)
	}

	conv := s.conversationFromDetail(ctx, detail)
	if !access.VisibleConversation(user, &conv) {
		return nil, fmt.Errorf("%w: conversation %s", apperrors.ErrNotFound, conversationID)
	}
	if saveErr := s.convRepo.Save(ctx, conv); saveErr != nil {
		logger.FromContext(ctx).Warn("Failed to persist fetched conversation",
			zap.String("conversation_id", conversationID),
			zap.Error(saveErr))
	}
	return &conv, nil
}

// mergeDetail overlays provider detail fields onto a stored record. Fields
// the provider omits keep their stored values.
func (s *ConversationService) mergeDetail(ctx context.Context, local model.Conversation, detail *provider.ConversationDetail) model.Conversation {
	fetched := s.conversationFromDetail(ctx, detail)
	fetched.ID = local.ID
	fetched.CreatedAt = local.CreatedAt
	if start := detail.StartTime(); start > 0 {
		fetched.CreatedAt = utils.UnixToTime(start)
	}
	if fetched.Agent == "" {
		fetched.Agent = local.Agent
	}
	if fetched.CallerNumber == "" {
		fetched.CallerNumber = local.CallerNumber
	}
	if fetched.ReceiverNumber == "" {
		fetched.ReceiverNumber = local.ReceiverNumber
	}
	if fetched.Duration == 0 {
		fetched.Duration = local.Duration
	}
	if fetched.Sentiment == nil {
		fetched.Sentiment = local.Sentiment
	}
	return fetched
}

// conversationFromDetail maps a provider detail payload to the local record.
func (s *ConversationService) conversationFromDetail(ctx context.Context, detail *provider.ConversationDetail) model.Conversation {
	caller, receiver := detail.PhoneNumbers()

	agentName := detail.AgentName
	if agentName == "" && detail.AgentID != "" {
		if !s.names.Fresh() {
			s.refreshAgentNames(ctx)
		}
		if name, ok := s.names.Get(detail.AgentID); ok {
			agentName = name
		} else {
			agentName = detail.AgentID
		}
	}

	conv := model.Conversation{
		ConversationID: detail.ConversationID,
		AgentID:        detail.AgentID,
		Agent:          agentName,
		CallerNumber:   caller,
		ReceiverNumber: receiver,
		Duration:       detail.Duration(),
		Sentiment:      detail.Sentiment(),
		CreatedAt:      utils.Now(),
	}
	if start := detail.StartTime(); start > 0 {
		conv.CreatedAt = utils.UnixToTime(start)
	}
	if detail.Analysis != nil {
		conv.TranscriptSummary = detail.Analysis.TranscriptSummary
		conv.CallSummaryTitle = detail.Analysis.CallSummaryTitle
		conv.CallSuccessful = detail.Analysis.CallSuccessful
		if len(detail.Analysis.DataCollectionResults) > 0 {
			conv.DataCollectionResults = datatypes.JSON(detail.Analysis.DataCollectionResults)
		}
		if len(detail.Analysis.EvaluationCriteriaResults) > 0 {
			conv.EvaluationCriteriaResults = datatypes.JSON(detail.Analysis.EvaluationCriteriaResults)
		}
	}
	return conv
}

// visibleConversation loads a conversation and applies the scope check.
// Out-of-scope and nonexistent collapse to the same ErrNotFound.
func (s *ConversationService) visibleConversation(ctx context.Context, user *model.User, conversationID string) (*model.Conversation, error) {
	conv, err := s.convRepo.FindByConversationID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !access.VisibleConversation(user, conv) {
		return nil, fmt.Errorf("%w: conversation %s", apperrors.ErrNotFound, conversationID)
	}
	return conv, nil
}

// Transcript returns the conversation transcript, from the local cache when
// present, otherwise fetched from the provider and cached. Visibility is
// enforced through the conversation record before any provider traffic.
func (s *ConversationService) Transcript(ctx context.Context, user *model.User, conversationID string) (*model.Transcript, error) {
	if _, err := s.visibleConversation(ctx, user, conversationID); err != nil {
		return nil, err
	}

	cached, err := s.transcripts.FindByConversationID(ctx, conversationID)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	text, err := s.client.GetTranscript(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: transcript for %s", apperrors.ErrNotFound, conversationID)
	}

	transcript := model.Transcript{ConversationID: conversationID, Text: text}
	if saveErr := s.transcripts.Save(ctx, transcript); saveErr != nil {
		logger.FromContext(ctx).Warn("Failed to cache transcript",
			zap.String("conversation_id", conversationID),
			zap.Error(saveErr))
	}
	return &transcript, nil
}

// AudioInfo probes whether conversation audio exists. It never returns the
// provider URL; the stream path points back at this service.
func (s *ConversationService) AudioInfo(ctx context.Context, user *model.User, conversationID string) (*AudioAvailability, error) {
	if _, err := s.visibleConversation(ctx, user, conversationID); err != nil {
		return nil, err
	}

	detail, err := s.client.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &AudioAvailability{Available: false}, nil
		}
		return nil, err
	}
	if !detail.HasAudio {
		return &AudioAvailability{Available: false}, nil
	}
	return &AudioAvailability{
		Available:  true,
		StreamPath: fmt.Sprintf("/conversations/%s/audio/stream", conversationID),
	}, nil
}

// StreamAudio opens the provider audio stream for a visible conversation.
// The caller owns the returned body.
func (s *ConversationService) StreamAudio(ctx context.Context, user *model.User, conversationID string) (io.ReadCloser, string, error) {
	if _, err := s.visibleConversation(ctx, user, conversationID); err != nil {
		return nil, "", err
	}
	return s.client.StreamAudio(ctx, conversationID)
}
