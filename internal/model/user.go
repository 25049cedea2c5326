package model

import (
	"time"
)

// User represents a dashboard operator account. ReceiverNumber maps the user
// to the phone line whose conversations they may see; a NULL receiver number
// marks the user as unrestricted (admin) and is never rewritten implicitly.
type User struct {
	ID           int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name         string `json:"name" gorm:"column:name" validate:"required"`
	Email        string `json:"email" gorm:"column:email;uniqueIndex" validate:"required,email"`
	PasswordHash string `json:"-" gorm:"column:password_hash"`
	// ReceiverNumber is the tenant-partition key. Nullable; nil means the
	// user sees every conversation. Matched as an exact string, no
	// phone-number normalization.
	ReceiverNumber *string `json:"receiver_number,omitempty" gorm:"column:receiver_number;index"`
	// ReceiverName is a display label for the mapped line. Nullable and
	// intentionally independent of ReceiverNumber; joint presence is not
	// enforced.
	ReceiverName *string   `json:"receiver_name,omitempty" gorm:"column:receiver_name"`
	CreatedAt    time.Time `json:"created_at,omitempty" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at,omitempty" gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (User) TableName() string {
	return "users"
}

// UserUpsert carries a provisioning request. Email is the upsert key.
// Pointer fields are partial on update: nil leaves the stored value alone,
// the empty string clears it to NULL.
type UserUpsert struct {
	Name           string  `json:"name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8"`
	ReceiverNumber *string `json:"receiver_number,omitempty"`
	ReceiverName   *string `json:"receiver_name,omitempty"`
}
