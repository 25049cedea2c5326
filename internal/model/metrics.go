package model

// DashboardMetrics is the summary computed over the caller's visible
// conversation set. Every field has a defined zero value; an empty filtered
// set yields zeros, never NaN or a division error.
type DashboardMetrics struct {
	TotalConversations     int     `json:"total_conversations"`
	TodaysConversations    int     `json:"todays_conversations"`
	TodaysChangePercent    float64 `json:"todays_change_percent"`
	AvgSentiment           float64 `json:"avg_sentiment"`
	SentimentChangePercent float64 `json:"sentiment_change_percent"`
	TotalDuration          int     `json:"total_duration"`
	TotalAgents            int     `json:"total_agents"`
	AgentsChangePercent    float64 `json:"agents_change_percent"`
}

// AgentProfile is the flattened view of a provider agent served to the
// dashboard. Not persisted locally; visibility is derived from the agent's
// conversations.
type AgentProfile struct {
	AgentID       string         `json:"agent_id"`
	Name          string         `json:"name,omitempty"`
	SystemPrompt  string         `json:"system_prompt,omitempty"`
	FirstMessage  string         `json:"first_message,omitempty"`
	Language      string         `json:"language,omitempty"`
	VoiceID       string         `json:"voice_id,omitempty"`
	LLMModel      string         `json:"llm_model,omitempty"`
	KnowledgeBase *KnowledgeBase `json:"knowledge_base,omitempty"`
	CreatedAt     int64          `json:"created_at_unix_secs,omitempty"`
}

// KnowledgeBase is the merged view of an agent's knowledge sources.
type KnowledgeBase struct {
	File string `json:"file,omitempty"`
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// AgentUpsert carries a create request for a provider agent.
type AgentUpsert struct {
	Name          string         `json:"name" validate:"required"`
	SystemPrompt  string         `json:"system_prompt,omitempty"`
	FirstMessage  string         `json:"first_message,omitempty"`
	Language      string         `json:"language,omitempty"`
	VoiceID       string         `json:"voice_id,omitempty"`
	LLMModel      string         `json:"llm_model,omitempty"`
	KnowledgeBase *KnowledgeBase `json:"knowledge_base,omitempty"`
}

// AgentPatch carries a partial update for a provider agent. Nil fields leave
// the provider-side value untouched.
type AgentPatch struct {
	Name          *string        `json:"name,omitempty"`
	SystemPrompt  *string        `json:"system_prompt,omitempty"`
	FirstMessage  *string        `json:"first_message,omitempty"`
	Language      *string        `json:"language,omitempty"`
	VoiceID       *string        `json:"voice_id,omitempty"`
	LLMModel      *string        `json:"llm_model,omitempty"`
	KnowledgeBase *KnowledgeBase `json:"knowledge_base,omitempty"`
}
