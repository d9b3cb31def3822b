package chat

import "sort"

// Selectors over a State snapshot. Presentation code reads through these
// instead of poking at the raw maps, so the store invariants stay the only
// source of truth.

// ActiveConversation resolves the active conversation by id, so a
// ConversationUpdated can never leave the UI holding a stale copy.
func (s State) ActiveConversation() (Conversation, bool) {
	if s.ActiveConversationID == "" {
		return Conversation{}, false
	}
	return s.Conversation(s.ActiveConversationID)
}

func (s State) Conversation(id string) (Conversation, bool) {
	for _, c := range s.Conversations {
		if c.ID == id {
			return c, true
		}
	}
	return Conversation{}, false
}

// ConversationMessages returns the ordered message list for a conversation.
// The returned slice is the store's own; callers must not mutate it.
func (s State) ConversationMessages(conversationID string) []Message {
	return s.Messages[conversationID]
}

// TypingUsers returns the users currently typing in a conversation,
// sorted for stable rendering. The local user is excluded.
func (s State) TypingUsers(conversationID string) []string {
	set := s.Typing[conversationID]
	if len(set) == 0 {
		return nil
	}
	users := make([]string, 0, len(set))
	for id := range set {
		if id == s.SelfUserID {
			continue
		}
		users = append(users, id)
	}
	sort.Strings(users)
	return users
}

func (s State) PresenceOf(userID string) (Presence, bool) {
	p, ok := s.Presence[userID]
	return p, ok
}

// TotalUnread sums unread counters across the workspace.
func (s State) TotalUnread() int {
	n := 0
	for _, c := range s.Conversations {
		n += c.UnreadCount
	}
	return n
}

// ThreadRoot resolves the open thread's root message within the active
// conversation, if a thread panel is open.
func (s State) ThreadRoot() (Message, bool) {
	if s.ThreadRootID == "" {
		return Message{}, false
	}
	for _, m := range s.Messages[s.ActiveConversationID] {
		if m.ID == s.ThreadRootID {
			return m, true
		}
	}
	return Message{}, false
}
