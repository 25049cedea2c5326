package provider

import "encoding/json"

// PhoneCall carries the telephony metadata of a conversation. AgentNumber is
// the line the call was routed to; it is what the visibility filter keys on.
type PhoneCall struct {
	ExternalNumber string `json:"external_number,omitempty"`
	AgentNumber    string `json:"agent_number,omitempty"`
}

// ConversationMetadata is the metadata blob attached to conversation payloads.
type ConversationMetadata struct {
	StartTimeUnixSecs int64      `json:"start_time_unix_secs,omitempty"`
	CallDurationSecs  int        `json:"call_duration_secs,omitempty"`
	PhoneCall         *PhoneCall `json:"phone_call,omitempty"`
}

// ConversationSummary is one entry of the provider's conversation list. The
// list payload sometimes omits the phone metadata; callers fall back to the
// detail endpoint in that case.
type ConversationSummary struct {
	ConversationID    string                `json:"conversation_id"`
	AgentID           string                `json:"agent_id,omitempty"`
	AgentName         string                `json:"agent_name,omitempty"`
	StartTimeUnixSecs int64                 `json:"start_time_unix_secs,omitempty"`
	CallDurationSecs  int                   `json:"call_duration_secs,omitempty"`
	SentimentScore    *float64              `json:"sentiment_score,omitempty"`
	CallSuccessful    string                `json:"call_successful,omitempty"`
	Metadata          *ConversationMetadata `json:"metadata,omitempty"`
}

// ConversationPage is one page of the provider's conversation list.
type ConversationPage struct {
	Conversations []ConversationSummary `json:"conversations"`
	HasMore       bool                  `json:"has_more,omitempty"`
	NextCursor    string                `json:"next_cursor,omitempty"`
}

// ConversationAnalysis is the post-call analysis blob. The two Results fields
// are operator-defined and kept raw.
type ConversationAnalysis struct {
	SentimentScore            *float64        `json:"sentiment_score,omitempty"`
	TranscriptSummary         string          `json:"transcript_summary,omitempty"`
	CallSummaryTitle          string          `json:"call_summary_title,omitempty"`
	DataCollectionResults     json.RawMessage `json:"data_collection_results,omitempty"`
	EvaluationCriteriaResults json.RawMessage `json:"evaluation_criteria_results,omitempty"`
	CallSuccessful            string          `json:"call_successful,omitempty"`
}

// TranscriptTurn is one utterance of the conversation transcript.
type TranscriptTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

// ConversationDetail is the provider's full conversation payload.
type ConversationDetail struct {
	ConversationID    string                `json:"conversation_id"`
	AgentID           string                `json:"agent_id,omitempty"`
	AgentName         string                `json:"agent_name,omitempty"`
	StartTimeUnixSecs int64                 `json:"start_time_unix_secs,omitempty"`
	CallDurationSecs  int                   `json:"call_duration_secs,omitempty"`
	SentimentScore    *float64              `json:"sentiment_score,omitempty"`
	HasAudio          bool                  `json:"has_audio,omitempty"`
	Metadata          *ConversationMetadata `json:"metadata,omitempty"`
	Analysis          *ConversationAnalysis `json:"analysis,omitempty"`
	Transcript        []TranscriptTurn      `json:"transcript,omitempty"`
}

// Duration returns the call duration, preferring the top-level field and
// falling back to the metadata blob.
func (d *ConversationDetail) Duration() int {
	if d.CallDurationSecs > 0 {
		return d.CallDurationSecs
	}
	if d.Metadata != nil {
		return d.Metadata.CallDurationSecs
	}
	return 0
}

// StartTime returns the unix start time, preferring the top-level field.
func (d *ConversationDetail) StartTime() int64 {
	if d.StartTimeUnixSecs > 0 {
		return d.StartTimeUnixSecs
	}
	if d.Metadata != nil {
		return d.Metadata.StartTimeUnixSecs
	}
	return 0
}

// Sentiment returns the sentiment score, falling back to the analysis blob.
func (d *ConversationDetail) Sentiment() *float64 {
	if d.SentimentScore != nil {
		return d.SentimentScore
	}
	if d.Analysis != nil {
		return d.Analysis.SentimentScore
	}
	return nil
}

// PhoneNumbers returns the caller and receiver numbers from the phone
// metadata; empty strings when the payload carries none.
func phoneNumbers(meta *ConversationMetadata) (caller, receiver string) {
	if meta == nil || meta.PhoneCall == nil {
		return "", ""
	}
	return meta.PhoneCall.ExternalNumber, meta.PhoneCall.AgentNumber
}

// PhoneNumbers returns the caller and receiver numbers of a list entry.
func (s *ConversationSummary) PhoneNumbers() (caller, receiver string) {
	return phoneNumbers(s.Metadata)
}

// PhoneNumbers returns the caller and receiver numbers of a detail payload.
func (d *ConversationDetail) PhoneNumbers() (caller, receiver string) {
	return phoneNumbers(d.Metadata)
}

// KnowledgeBaseItem is one entry of the agent prompt knowledge base.
type KnowledgeBaseItem struct {
	Type string `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
	ID   string `json:"id,omitempty"`
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

// PromptConfig is the conversation_config.agent.prompt section.
type PromptConfig struct {
	Prompt        string              `json:"prompt,omitempty"`
	LLM           string              `json:"llm,omitempty"`
	KnowledgeBase []KnowledgeBaseItem `json:"knowledge_base,omitempty"`
}

// AgentConfig is the conversation_config.agent section.
type AgentConfig struct {
	FirstMessage string        `json:"first_message,omitempty"`
	Language     string        `json:"language,omitempty"`
	Prompt       *PromptConfig `json:"prompt,omitempty"`
}

// TTSConfig is the conversation_config.tts section.
type TTSConfig struct {
	VoiceID string `json:"voice_id,omitempty"`
	ModelID string `json:"model_id,omitempty"`
}

// ConversationConfig is the provider's nested agent configuration payload.
type ConversationConfig struct {
	Agent *AgentConfig `json:"agent,omitempty"`
	TTS   *TTSConfig   `json:"tts,omitempty"`
}

// AgentMetadata carries agent bookkeeping fields.
type AgentMetadata struct {
	CreatedAtUnixSecs int64 `json:"created_at_unix_secs,omitempty"`
}

// Agent is the provider's agent payload, for both list entries and detail
// fetches. List entries may omit ConversationConfig.
type Agent struct {
	AgentID            string              `json:"agent_id,omitempty"`
	ID                 string              `json:"id,omitempty"`
	Name               string              `json:"name,omitempty"`
	ConversationConfig *ConversationConfig `json:"conversation_config,omitempty"`
	Metadata           *AgentMetadata      `json:"metadata,omitempty"`
}

// Identifier returns whichever agent id field the payload carries.
func (a *Agent) Identifier() string {
	if a.AgentID != "" {
		return a.AgentID
	}
	return a.ID
}

// AgentPayload is the request body for agent creation and update.
type AgentPayload struct {
	Name               string              `json:"name,omitempty"`
	ConversationConfig *ConversationConfig `json:"conversation_config,omitempty"`
}

type agentListResponse struct {
	Agents []Agent `json:"agents"`
}

type transcriptResponse struct {
	Text       string `json:"text,omitempty"`
	Transcript string `json:"transcript,omitempty"`
}
