package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gitlab.com/voxlane/api/voicedash/internal/access"
	"gitlab.com/voxlane/api/voicedash/internal/apperrors"
	"gitlab.com/voxlane/api/voicedash/internal/cache"
	"gitlab.com/voxlane/api/voicedash/internal/model"
	"gitlab.com/voxlane/api/voicedash/internal/provider"
	"gitlab.com/voxlane/api/voicedash/internal/storage"
	"gitlab.com/voxlane/api/voicedash/internal/validator"
	"gitlab.com/voxlane/api/voicedash/pkg/logger"
)

const (
	defaultLLMModel = "gpt-4o-mini"
	defaultVoiceID  = "21m00Tcm4TlvDq8ikWAM"
	defaultTTSModel = "eleven_turbo_v2_5"
	defaultLanguage = "en"
)

// validLLMModels is the provider's accepted model list. Anything else falls
// back to defaultLLMModel.
var validLLMModels = map[string]struct{}{
	"gpt-4o-mini": {}, "gpt-4o": {}, "gpt-4": {}, "gpt-4-turbo": {},
	"gpt-4.1": {}, "gpt-4.1-mini": {}, "gpt-4.1-nano": {},
	"gpt-5": {}, "gpt-5.1": {}, "gpt-5-mini": {}, "gpt-5-nano": {}, "gpt-3.5-turbo": {},
	"gemini-1.5-pro": {}, "gemini-1.5-flash": {}, "gemini-2.0-flash": {}, "gemini-2.0-flash-lite": {},
	"gemini-2.5-flash-lite": {}, "gemini-2.5-flash": {},
	"claude-sonnet-4-5": {}, "claude-sonnet-4": {}, "claude-haiku-4-5": {},
	"claude-3-7-sonnet": {}, "claude-3-5-sonnet": {},
}

// AgentService serves the agent surface. Agents are not persisted locally;
// list and detail go to the provider and visibility is derived from the
// conversations in the local store.
type AgentService struct {
	client   provider.Client
	convRepo storage.ConversationRepo
	names    *cache.AgentNameCache
}

// NewAgentService creates a new agent service.
func NewAgentService(client provider.Client, convRepo storage.ConversationRepo, names *cache.AgentNameCache) *AgentService {
	return &AgentService{client: client, convRepo: convRepo, names: names}
}

// List returns the agents visible to the user. A restricted user sees only
// agents with at least one conversation inside their scope; an agent with no
// visible conversations is absent from the response entirely.
func (s *AgentService) List(ctx context.Context, user *model.User) ([]model.AgentProfile, error) {
	agents, err := s.client.ListAgents(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]model.AgentProfile, 0, len(agents))
	names := make(map[string]string, len(agents))
	for i := range agents {
		agent := agents[i]
		// List entries may omit the config; fetch the full record then.
		if agent.ConversationConfig == nil || agent.Name == "" {
			if full, fullErr := s.client.GetAgent(ctx, agent.Identifier()); fullErr == nil {
				agent = *full
			} else {
				logger.FromContext(ctx).Warn("Failed to fetch full agent detail",
					zap.String("agent_id", agent.Identifier()),
					zap.Error(fullErr))
			}
		}
		profile := flattenAgent(&agent)
		profiles = append(profiles, profile)
		if profile.AgentID != "" {
			name := profile.Name
			if name == "" {
				name = profile.AgentID
			}
			names[profile.AgentID] = name
		}
	}
	s.names.Replace(names)

	if access.IsUnrestricted(user) {
		return profiles, nil
	}

	convs, err := s.convRepo.FindRange(ctx, nil, nil)
	if err != nil {
		return nil, err
	}
	return access.VisibleAgents(user, profiles, groupByAgent(convs)), nil
}

// Get returns one agent. For a restricted user an agent with no visible
// conversations returns ErrNotFound, the same as an unknown id.
func (s *AgentService) Get(ctx context.Context, user *model.User, agentID string) (*model.AgentProfile, error) {
	agent, err := s.client.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	profile := flattenAgent(agent)

	if !access.IsUnrestricted(user) {
		convs, err := s.convRepo.FindRange(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		visible := access.VisibleAgents(user, []model.AgentProfile{profile}, groupByAgent(convs))
		if len(visible) == 0 {
			return nil, fmt.Errorf("%w: agent %s", apperrors.ErrNotFound, agentID)
		}
	}
	return &profile, nil
}

// Create creates a provider agent from the flat dashboard fields.
func (s *AgentService) Create(ctx context.Context, input model.AgentUpsert) (*model.AgentProfile, error) {
	if err := validator.Validate(input); err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrValidation, err)
	}

	llm := input.LLMModel
	if _, ok := validLLMModels[llm]; !ok {
		if llm != "" {
			logger.FromContext(ctx).Warn("Unknown LLM model, using default",
				zap.String("requested", llm),
				zap.String("default", defaultLLMModel))
		}
		llm = defaultLLMModel
	}

	language := input.Language
	if language == "" {
		language = defaultLanguage
	}
	voiceID := input.VoiceID
	if voiceID == "" {
		voiceID = defaultVoiceID
	}

	payload := provider.AgentPayload{
		Name: input.Name,
		ConversationConfig: &provider.ConversationConfig{
			Agent: &provider.AgentConfig{
				FirstMessage: input.FirstMessage,
				Language:     language,
				Prompt: &provider.PromptConfig{
					Prompt:        input.SystemPrompt,
					LLM:           llm,
					KnowledgeBase: knowledgeBaseItems(input.KnowledgeBase),
				},
			},
			TTS: &provider.TTSConfig{VoiceID: voiceID, ModelID: defaultTTSModel},
		},
	}

	created, err := s.client.CreateAgent(ctx, payload)
	if err != nil {
		return nil, err
	}
	profile := flattenAgent(created)
	logger.FromContext(ctx).Info("Agent created", zap.String("agent_id", profile.AgentID))
	return &profile, nil
}

// Update patches an existing provider agent. The current config is fetched
// first and only the supplied fields change.
func (s *AgentService) Update(ctx context.Context, agentID string, patch model.AgentPatch) (*model.AgentProfile, error) {
	current, err := s.client.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	config := current.ConversationConfig
	if config == nil {
		config = &provider.ConversationConfig{}
	}
	if config.Agent == nil {
		config.Agent = &provider.AgentConfig{}
	}
	if config.Agent.Prompt == nil {
		config.Agent.Prompt = &provider.PromptConfig{}
	}
	if config.TTS == nil {
		config.TTS = &provider.TTSConfig{}
	}

	name := current.Name
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.SystemPrompt != nil {
		config.Agent.Prompt.Prompt = *patch.SystemPrompt
	}
	if patch.FirstMessage != nil {
		config.Agent.FirstMessage = *patch.FirstMessage
	}
	if patch.Language != nil {
		config.Agent.Language = *patch.Language
	}
	if patch.VoiceID != nil {
		config.TTS.VoiceID = *patch.VoiceID
	}
	if patch.LLMModel != nil {
		config.Agent.Prompt.LLM = *patch.LLMModel
	}
	if patch.KnowledgeBase != nil {
		config.Agent.Prompt.KnowledgeBase = knowledgeBaseItems(patch.KnowledgeBase)
	}

	updated, err := s.client.UpdateAgent(ctx, agentID, provider.AgentPayload{
		Name:               name,
		ConversationConfig: config,
	})
	if err != nil {
		return nil, err
	}
	profile := flattenAgent(updated)
	logger.FromContext(ctx).Info("Agent updated", zap.String("agent_id", agentID))
	return &profile, nil
}

// knowledgeBaseItems converts the merged dashboard view into the provider's
// typed item list.
func knowledgeBaseItems(kb *model.KnowledgeBase) []provider.KnowledgeBaseItem {
	if kb == nil {
		return nil
	}
	items := make([]provider.KnowledgeBaseItem, 0, 3)
	if kb.File != "" {
		items = append(items, provider.KnowledgeBaseItem{Type: "file", Name: kb.File})
	}
	if kb.URL != "" {
		items = append(items, provider.KnowledgeBaseItem{Type: "url", URL: kb.URL})
	}
	if kb.Text != "" {
		items = append(items, provider.KnowledgeBaseItem{Type: "text", Text: kb.Text})
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// flattenAgent maps the provider's nested agent payload to the flat profile
// the dashboard serves.
func flattenAgent(agent *provider.Agent) model.AgentProfile {
	profile := model.AgentProfile{
		AgentID: agent.Identifier(),
		Name:    agent.Name,
	}
	if agent.Metadata != nil {
		profile.CreatedAt = agent.Metadata.CreatedAtUnixSecs
	}

	config := agent.ConversationConfig
	if config == nil {
		return profile
	}
	if config.Agent != nil {
		profile.FirstMessage = config.Agent.FirstMessage
		profile.Language = config.Agent.Language
		if config.Agent.Prompt != nil {
			profile.SystemPrompt = config.Agent.Prompt.Prompt
			profile.LLMModel = config.Agent.Prompt.LLM
			profile.KnowledgeBase = mergeKnowledgeBase(config.Agent.Prompt.KnowledgeBase)
		}
	}
	if config.TTS != nil {
		profile.VoiceID = config.TTS.VoiceID
	}
	return profile
}

// mergeKnowledgeBase collapses the provider's item list into the dashboard's
// one-of-each view.
func mergeKnowledgeBase(items []provider.KnowledgeBaseItem) *model.KnowledgeBase {
	if len(items) == 0 {
		return nil
	}
	kb := &model.KnowledgeBase{}
	for _, item := range items {
		switch item.Type {
		case "file":
			if item.Name != "" {
				kb.File = item.Name
			}
		case "url":
			kb.URL = item.URL
		case "text":
			kb.Text = item.Text
		}
	}
	if kb.File == "" && kb.URL == "" && kb.Text == "" {
		return nil
	}
	return kb
}

// groupByAgent indexes conversations by provider agent id.
func groupByAgent(convs []model.Conversation) map[string][]model.Conversation {
	grouped := make(map[string][]model.Conversation)
	for _, c := range convs {
		if c.AgentID == "" {
			continue
		}
		grouped[c.AgentID] = append(grouped[c.AgentID], c)
	}
	return grouped
}
