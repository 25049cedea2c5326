// Package access holds the single visibility predicate applied everywhere
// conversation or agent data is returned to a user. Every read path must go
// through it before records cross the trust boundary; it is an authorization
// filter, not a display convenience.
package access

import (
	"gitlab.com/voxlane/api/voicedash/internal/model"
)

// IsUnrestricted reports whether the user may see every record. A user with
// no receiver-number mapping is the admin case.
func IsUnrestricted(user *model.User) bool {
	return user == nil || user.ReceiverNumber == nil || *user.ReceiverNumber == ""
}

// VisibleConversations returns the subset of conversations the user may see.
// Unrestricted users get the input back unchanged. Restricted users get the
// conversations whose receiver_number equals their mapping, compared as an
// exact case-sensitive string with no phone-number normalization. The filter
// is stable: relative input order is preserved.
func VisibleConversations(user *model.User, conversations []model.Conversation) []model.Conversation {
	if IsUnrestricted(user) {
		return conversations
	}
	receiver := *user.ReceiverNumber
	visible := make([]model.Conversation, 0, len(conversations))
	for _, conv := range conversations {
		if conv.ReceiverNumber == receiver {
			visible = append(visible, conv)
		}
	}
	return visible
}

// VisibleConversation reports whether a single conversation is visible to
// the user. Detail lookups use it so that an out-of-scope record is
// indistinguishable from a nonexistent one.
func VisibleConversation(user *model.User, conversation *model.Conversation) bool {
	if IsUnrestricted(user) {
		return true
	}
	return conversation != nil && conversation.ReceiverNumber == *user.ReceiverNumber
}

// VisibleAgents returns the agents the user may see. Agent visibility is
// transitive: an agent is visible when at least one of its conversations is.
// conversationsByAgent groups the known conversations by provider agent ID.
func VisibleAgents(user *model.User, agents []model.AgentProfile, conversationsByAgent map[string][]model.Conversation) []model.AgentProfile {
	if IsUnrestricted(user) {
		return agents
	}
	visible := make([]model.AgentProfile, 0, len(agents))
	for _, agent := range agents {
		if len(VisibleConversations(user, conversationsByAgent[agent.AgentID])) > 0 {
			visible = append(visible, agent)
		}
	}
	return visible
}
