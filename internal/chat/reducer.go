package chat

// reduce is the single pure transition function of the store. It never does
// I/O, never mutates its input, and handles every action in one synchronous
// pass — ordering of asynchronous inputs is dealt with by the dispatch queue,
// not here.
func reduce(s State, a Action) State {
	switch act := a.(type) {

	case SessionStarted:
		s.SelfUserID = act.UserID
		return s

	case WorkspaceSelected:
		if act.WorkspaceID == s.WorkspaceID {
			// Re-selecting the current workspace is not a switch.
			return s
		}
		// Conversations belong to exactly one workspace; nothing carries
		// over on a switch except the session and connection status.
		next := NewState()
		next.SelfUserID = s.SelfUserID
		next.Connected = s.Connected
		next.WorkspaceID = act.WorkspaceID
		return next

	case ConnectionChanged:
		s.Connected = act.Connected
		return s

	case ConversationsLoaded:
		s.Conversations = copyConversations(act.Conversations)
		return s

	case ConversationCreated:
		list := make([]Conversation, 0, len(s.Conversations)+1)
		list = append(list, act.Conversation)
		for _, c := range s.Conversations {
			if c.ID != act.Conversation.ID {
				list = append(list, c)
			}
		}
		s.Conversations = list
		return s

	case ConversationUpdated:
		return patchConversation(s, act.ConversationID, func(c Conversation) Conversation {
			return applyPatch(c, act.Patch)
		})

	case ConversationRemoved:
		list := make([]Conversation, 0, len(s.Conversations))
		for _, c := range s.Conversations {
			if c.ID != act.ConversationID {
				list = append(list, c)
			}
		}
		s.Conversations = list
		if s.ActiveConversationID == act.ConversationID {
			s.ActiveConversationID = ""
			s.ThreadRootID = ""
		}
		if _, ok := s.Messages[act.ConversationID]; ok {
			msgs := copyMessages(s.Messages)
			delete(msgs, act.ConversationID)
			s.Messages = msgs
		}
		if _, ok := s.Typing[act.ConversationID]; ok {
			typing := copyTyping(s.Typing)
			delete(typing, act.ConversationID)
			s.Typing = typing
		}
		return s

	case ConversationSelected:
		s.ActiveConversationID = act.ConversationID
		// A thread panel is scoped to the conversation it was opened in.
		s.ThreadRootID = ""
		return s

	case ConversationRead:
		return patchConversation(s, act.ConversationID, func(c Conversation) Conversation {
			c.UnreadCount = 0
			members := make([]Membership, len(c.Members))
			copy(members, c.Members)
			for i, m := range members {
				if m.UserID == s.SelfUserID {
					at := act.At
					members[i].LastReadAt = &at
				}
			}
			c.Members = members
			return c
		})

	case MemberJoined:
		return patchConversation(s, act.ConversationID, func(c Conversation) Conversation {
			members := make([]Membership, 0, len(c.Members)+1)
			for _, m := range c.Members {
				if m.UserID != act.Member.UserID {
					members = append(members, m)
				}
			}
			c.Members = append(members, act.Member)
			return c
		})

	case MemberLeft:
		return patchConversation(s, act.ConversationID, func(c Conversation) Conversation {
			members := make([]Membership, len(c.Members))
			copy(members, c.Members)
			for i, m := range members {
				if m.UserID == act.UserID && m.LeftAt == nil {
					at := act.At
					members[i].LeftAt = &at
				}
			}
			c.Members = members
			return c
		})

	case MessagesLoaded:
		msgs := copyMessages(s.Messages)
		msgs[act.ConversationID] = copyMessageList(act.Messages)
		s.Messages = msgs
		return s

	case MessageCreated:
		convID := act.Message.ConversationID
		list := s.Messages[convID]
		for _, m := range list {
			if m.ID == act.Message.ID {
				// Already have it — own echo or redundant delivery.
				return s
			}
		}
		msgs := copyMessages(s.Messages)
		next := make([]Message, 0, len(list)+1)
		next = append(next, list...)
		msgs[convID] = append(next, act.Message)
		s.Messages = msgs
		// Denormalized conversation fields. The transport delivers in
		// creation order per conversation, so the new message is the latest.
		msg := act.Message
		return patchConversation(s, convID, func(c Conversation) Conversation {
			c.LastMessage = &msg
			if msg.AuthorID != s.SelfUserID && convID != s.ActiveConversationID {
				c.UnreadCount++
			}
			return c
		})

	case MessageEdited:
		return replaceMessage(s, act.Message.ConversationID, act.Message.ID, func(Message) Message {
			return act.Message
		})

	case MessageDeleted:
		return replaceMessage(s, act.ConversationID, act.MessageID, func(m Message) Message {
			at := act.At
			m.DeletedAt = &at
			m.Content = ""
			return m
		})

	case MessageReactionChanged:
		return replaceMessage(s, act.Message.ConversationID, act.Message.ID, func(Message) Message {
			return act.Message
		})

	case MessageRemoved:
		list, ok := s.Messages[act.ConversationID]
		if !ok {
			return s
		}
		next := make([]Message, 0, len(list))
		for _, m := range list {
			if m.ID != act.MessageID {
				next = append(next, m)
			}
		}
		msgs := copyMessages(s.Messages)
		msgs[act.ConversationID] = next
		s.Messages = msgs
		return s

	case TypingStarted:
		typing := copyTyping(s.Typing)
		set := copyTypingSet(typing[act.ConversationID])
		set[act.UserID] = struct{}{}
		typing[act.ConversationID] = set
		s.Typing = typing
		return s

	case TypingStopped:
		set, ok := s.Typing[act.ConversationID]
		if !ok {
			return s
		}
		if _, ok := set[act.UserID]; !ok {
			return s
		}
		typing := copyTyping(s.Typing)
		next := copyTypingSet(set)
		delete(next, act.UserID)
		if len(next) == 0 {
			delete(typing, act.ConversationID)
		} else {
			typing[act.ConversationID] = next
		}
		s.Typing = typing
		return s

	case PresenceSnapshotLoaded:
		s.Presence = copyPresence(act.Presence)
		return s

	case PresenceChanged:
		presence := copyPresence(s.Presence)
		p := act.Presence
		if prev, ok := presence[p.UserID]; ok {
			// Deltas may be partial; keep cached display fields.
			if p.DisplayName == "" {
				p.DisplayName = prev.DisplayName
			}
			if p.AvatarURL == "" {
				p.AvatarURL = prev.AvatarURL
			}
			if p.LastSeen == nil {
				p.LastSeen = prev.LastSeen
			}
		}
		presence[p.UserID] = p
		s.Presence = presence
		return s

	case ThreadOpened:
		s.ThreadRootID = act.MessageID
		return s

	case ThreadClosed:
		s.ThreadRootID = ""
		return s
	}
	return s
}

// patchConversation rewrites one conversation by id, leaving order intact.
// Unknown ids are a no-op.
func patchConversation(s State, id string, fn func(Conversation) Conversation) State {
	idx := -1
	for i, c := range s.Conversations {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	list := copyConversations(s.Conversations)
	list[idx] = fn(list[idx])
	s.Conversations = list
	return s
}

// replaceMessage rewrites one message by id within its conversation,
// preserving its position. Unknown ids are a no-op.
func replaceMessage(s State, convID, msgID string, fn func(Message) Message) State {
	list, ok := s.Messages[convID]
	if !ok {
		return s
	}
	idx := -1
	for i, m := range list {
		if m.ID == msgID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return s
	}
	next := copyMessageList(list)
	next[idx] = fn(next[idx])
	msgs := copyMessages(s.Messages)
	msgs[convID] = next
	s.Messages = msgs
	return s
}

// applyPatch folds the non-nil fields of a patch into a conversation. The
// unread counter only ever moves down through a patch; increments flow
// through MessageCreated, so a lagging update can never inflate it.
func applyPatch(c Conversation, p ConversationPatch) Conversation {
	if p.DisplayName != nil {
		c.DisplayName = *p.DisplayName
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.LastMessage != nil {
		c.LastMessage = p.LastMessage
	}
	if p.UnreadCount != nil && *p.UnreadCount < c.UnreadCount {
		c.UnreadCount = *p.UnreadCount
	}
	return c
}
