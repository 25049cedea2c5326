package model

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/datatypes"

	"gitlab.com/voxlane/api/voicedash/pkg/utils"
)

// init ensures gofakeit is seeded.
func init() {
	gofakeit.Seed(time.Now().UnixNano())
}

// NewUser creates a User with fake data for tests. Pass an override to pin
// specific fields; a nil ReceiverNumber in the override keeps the generated
// one, use NewUnrestrictedUser for an admin.
func NewUser(overrideDefaults ...*User) *User {
	number := "+" + gofakeit.DigitN(11)
	name := gofakeit.Company()
	base := &User{
		Name:           gofakeit.Name(),
		Email:          gofakeit.Email(),
		PasswordHash:   gofakeit.LetterN(60),
		ReceiverNumber: &number,
		ReceiverName:   &name,
		CreatedAt:      utils.Now().Add(-time.Duration(gofakeit.Number(1, 100)) * time.Hour),
		UpdatedAt:      utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ID != 0 {
			base.ID = ovr.ID
		}
		if ovr.Name != "" {
			base.Name = ovr.Name
		}
		if ovr.Email != "" {
			base.Email = ovr.Email
		}
		if ovr.PasswordHash != "" {
			base.PasswordHash = ovr.PasswordHash
		}
		if ovr.ReceiverNumber != nil {
			base.ReceiverNumber = ovr.ReceiverNumber
		}
		if ovr.ReceiverName != nil {
			base.ReceiverName = ovr.ReceiverName
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
		if !ovr.UpdatedAt.IsZero() {
			base.UpdatedAt = ovr.UpdatedAt
		}
	}
	return base
}

// NewUnrestrictedUser creates an admin user with no receiver mapping.
func NewUnrestrictedUser() *User {
	u := NewUser()
	u.ReceiverNumber = nil
	u.ReceiverName = nil
	return u
}

// NewConversation creates a Conversation with fake data for tests.
func NewConversation(overrideDefaults ...*Conversation) *Conversation {
	sentiment := gofakeit.Float64Range(0, 1)
	base := &Conversation{
		ConversationID: "conv_" + gofakeit.LetterN(20),
		AgentID:        "agent_" + gofakeit.LetterN(12),
		Agent:          gofakeit.Name(),
		CallerNumber:   "+" + gofakeit.DigitN(11),
		ReceiverNumber: "+" + gofakeit.DigitN(11),
		Duration:       gofakeit.Number(10, 900),
		Sentiment:      &sentiment,
		DataCollectionResults: datatypes.JSON(fmt.Sprintf(
			`{"intent":{"value":%q,"rationale":%q}}`, gofakeit.Word(), gofakeit.Sentence(4))),
		CreatedAt: utils.Now().Add(-time.Duration(gofakeit.Number(1, 72)) * time.Hour),
		UpdatedAt: utils.Now(),
	}

	if len(overrideDefaults) > 0 && overrideDefaults[0] != nil {
		ovr := overrideDefaults[0]
		if ovr.ConversationID != "" {
			base.ConversationID = ovr.ConversationID
		}
		if ovr.AgentID != "" {
			base.AgentID = ovr.AgentID
		}
		if ovr.Agent != "" {
			base.Agent = ovr.Agent
		}
		if ovr.CallerNumber != "" {
			base.CallerNumber = ovr.CallerNumber
		}
		if ovr.ReceiverNumber != "" {
			base.ReceiverNumber = ovr.ReceiverNumber
		}
		if ovr.Duration != 0 {
			base.Duration = ovr.Duration
		}
		if ovr.Sentiment != nil {
			base.Sentiment = ovr.Sentiment
		}
		if ovr.DataCollectionResults != nil {
			base.DataCollectionResults = ovr.DataCollectionResults
		}
		if !ovr.CreatedAt.IsZero() {
			base.CreatedAt = ovr.CreatedAt
		}
	}
	return base
}
