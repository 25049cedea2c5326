package model

import (
	"time"

	"gorm.io/datatypes"
)

// Conversation mirrors one call record pulled from the voice provider.
// ConversationID is the provider's opaque identifier and the upsert key;
// local rows are only ever rewritten by a re-sync, never deleted.
type Conversation struct {
	ID             int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	ConversationID string `json:"conversation_id" gorm:"column:conversation_id;uniqueIndex" validate:"required"`
	// AgentID is the provider's agent identifier; Agent is the resolved
	// display name shown on the dashboard.
	AgentID string `json:"agent_id,omitempty" gorm:"column:agent_id;index"`
	Agent   string `json:"agent,omitempty" gorm:"column:agent"`
	// CallerNumber is the external party; ReceiverNumber is the line the
	// call was routed to and the key the visibility filter matches on.
	CallerNumber   string   `json:"caller_number,omitempty" gorm:"column:caller_number"`
	ReceiverNumber string   `json:"receiver_number,omitempty" gorm:"column:receiver_number;index"`
	Duration       int      `json:"duration,omitempty" gorm:"column:duration"`
	Sentiment      *float64 `json:"sentiment,omitempty" gorm:"column:sentiment"`
	// Operator-defined provider blobs, stored verbatim for round-trip
	// fidelity. Their shape is not validated here.
	DataCollectionResults     datatypes.JSON `json:"data_collection_results,omitempty" gorm:"type:jsonb;column:data_collection_results"`
	EvaluationCriteriaResults datatypes.JSON `json:"evaluation_criteria_results,omitempty" gorm:"type:jsonb;column:evaluation_criteria_results"`
	TranscriptSummary         string         `json:"transcript_summary,omitempty" gorm:"column:transcript_summary"`
	CallSummaryTitle          string         `json:"call_summary_title,omitempty" gorm:"column:call_summary_title"`
	CallSuccessful            string         `json:"call_successful,omitempty" gorm:"column:call_successful"`
	CreatedAt                 time.Time      `json:"created_at,omitempty" gorm:"column:created_at"`
	UpdatedAt                 time.Time      `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationUpdateColumns returns the column names a sync upsert rewrites.
// Excludes primary key and conversation_id (the conflict target).
func ConversationUpdateColumns() []string {
	return []string{
		"agent_id",
		"agent",
		"caller_number",
		"receiver_number",
		"duration",
		"sentiment",
		"data_collection_results",
		"evaluation_criteria_results",
		"transcript_summary",
		"call_summary_title",
		"call_successful",
		"created_at",
		"updated_at",
	}
}
