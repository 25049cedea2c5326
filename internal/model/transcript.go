package model

import "time"

// Transcript caches the rendered transcript text of a conversation. Fetched
// from the provider on first request, then served locally.
type Transcript struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ConversationID string    `json:"conversation_id" gorm:"column:conversation_id;index" validate:"required"`
	Text           string    `json:"text" gorm:"type:text;column:text"`
	CreatedAt      time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM.
func (Transcript) TableName() string {
	return "transcripts"
}
