package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gitlab.com/voxlane/api/voicedash/internal/model"
)

func strPtr(s string) *string { return &s }

func convWithReceiver(id, receiver string) model.Conversation {
	return *model.NewConversation(&model.Conversation{
		ConversationID: id,
		ReceiverNumber: receiver,
	})
}

func TestIsUnrestricted(t *testing.T) {
	tests := []struct {
		name     string
		user     *model.User
		expected bool
	}{
		{"nil user", nil, true},
		{"nil receiver number", &model.User{}, true},
		{"empty receiver number", &model.User{ReceiverNumber: strPtr("")}, true},
		{"mapped receiver number", &model.User{ReceiverNumber: strPtr("+1111")}, false},
		{"receiver name without number", &model.User{ReceiverName: strPtr("Main line")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUnrestricted(tt.user))
		})
	}
}

func TestVisibleConversationsUnrestrictedIdentity(t *testing.T) {
	admin := model.NewUnrestrictedUser()
	conversations := []model.Conversation{
		convWithReceiver("conv_a", "+1111"),
		convWithReceiver("conv_b", "+2222"),
		convWithReceiver("conv_c", "+3333"),
	}

	got := VisibleConversations(admin, conversations)

	// identity: same records, same order
	assert.Equal(t, conversations, got)
}

func TestVisibleConversationsRestricted(t *testing.T) {
	alice := &model.User{ReceiverNumber: strPtr("+1111")}
	conversations := []model.Conversation{
		convWithReceiver("conv_1", "+1111"),
		convWithReceiver("conv_2", "+2222"),
		convWithReceiver("conv_3", "+1111"),
		convWithReceiver("conv_4", "+2222"),
		convWithReceiver("conv_5", "+2222"),
	}

	got := VisibleConversations(alice, conversations)

	assert.Len(t, got, 2)
	// completeness and stable order
	assert.Equal(t, "conv_1", got[0].ConversationID)
	assert.Equal(t, "conv_3", got[1].ConversationID)
	for _, conv := range got {
		assert.Equal(t, "+1111", conv.ReceiverNumber)
	}
}

func TestVisibleConversationsExactMatchNoNormalization(t *testing.T) {
	// "+1234567890" and "1234567890" are distinct receiver numbers
	user := &model.User{ReceiverNumber: strPtr("+1234567890")}
	conversations := []model.Conversation{
		convWithReceiver("conv_plus", "+1234567890"),
		convWithReceiver("conv_bare", "1234567890"),
	}

	got := VisibleConversations(user, conversations)

	assert.Len(t, got, 1)
	assert.Equal(t, "conv_plus", got[0].ConversationID)
}

func TestVisibleConversationsEmptyResultIsNotError(t *testing.T) {
	user := &model.User{ReceiverNumber: strPtr("+9999")}
	conversations := []model.Conversation{
		convWithReceiver("conv_1", "+1111"),
	}

	got := VisibleConversations(user, conversations)

	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestVisibleConversation(t *testing.T) {
	alice := &model.User{ReceiverNumber: strPtr("+1111")}
	admin := model.NewUnrestrictedUser()

	mine := convWithReceiver("conv_mine", "+1111")
	other := convWithReceiver("conv_other", "+2222")

	assert.True(t, VisibleConversation(alice, &mine))
	assert.False(t, VisibleConversation(alice, &other))
	assert.False(t, VisibleConversation(alice, nil))
	assert.True(t, VisibleConversation(admin, &other))
}

func TestVisibleAgents(t *testing.T) {
	alice := &model.User{ReceiverNumber: strPtr("+1111")}
	agents := []model.AgentProfile{
		{AgentID: "agent_support"},
		{AgentID: "agent_sales"},
		{AgentID: "agent_idle"},
	}
	byAgent := map[string][]model.Conversation{
		"agent_support": {convWithReceiver("c1", "+1111"), convWithReceiver("c2", "+2222")},
		"agent_sales":   {convWithReceiver("c3", "+2222")},
	}

	got := VisibleAgents(alice, agents, byAgent)

	assert.Len(t, got, 1)
	assert.Equal(t, "agent_support", got[0].AgentID)
}

func TestVisibleAgentsUnrestricted(t *testing.T) {
	admin := model.NewUnrestrictedUser()
	agents := []model.AgentProfile{{AgentID: "a"}, {AgentID: "b"}}

	got := VisibleAgents(admin, agents, nil)

	assert.Equal(t, agents, got)
}
