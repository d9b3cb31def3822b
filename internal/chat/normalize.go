package chat

import (
	"encoding/json"
	"time"
)

// Wire event names pushed by the server over the chat namespace.
// The set is closed here; anything else is dropped by Normalize so a newer
// server can ship event kinds an older client has never heard of.
const (
	EvMessageNew          = "message:new"
	EvMessageEdit         = "message:edit"
	EvMessageDelete       = "message:delete"
	EvMessageReaction     = "message:reaction"
	EvTypingStart         = "typing:start"
	EvTypingStop          = "typing:stop"
	EvConversationNew     = "conversation:new"
	EvConversationUpdated = "conversation:updated"
	EvMemberJoined        = "member:joined"
	EvMemberLeft          = "member:left"
	EvPresenceUpdate      = "presence_update"
)

// EventNames lists every wire event the normalizer understands, for the
// layer that registers transport handlers.
func EventNames() []string {
	return []string{
		EvMessageNew, EvMessageEdit, EvMessageDelete, EvMessageReaction,
		EvTypingStart, EvTypingStop,
		EvConversationNew, EvConversationUpdated,
		EvMemberJoined, EvMemberLeft,
		EvPresenceUpdate,
	}
}

type conversationUpdatedWire struct {
	ConversationID string          `json:"conversation_id"`
	LastMessage    *Message        `json:"last_message,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Updates        *conversationMd `json:"updates,omitempty"`
}

type conversationMd struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
	UnreadCount *int    `json:"unread_count,omitempty"`
}

// Normalize maps one inbound wire event to a reducer action. ok is false
// for unknown event names and malformed payloads — both are dropped without
// touching the store.
func Normalize(event string, payload []byte) (Action, bool) {
	switch event {
	case EvMessageNew:
		var body struct {
			Message        Message `json:"message"`
			ConversationID string  `json:"conversation_id"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.Message.ID == "" {
			return nil, false
		}
		if body.Message.ConversationID == "" {
			body.Message.ConversationID = body.ConversationID
		}
		return MessageCreated{Message: body.Message}, true

	case EvMessageEdit:
		var body struct {
			Message Message `json:"message"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.Message.ID == "" {
			return nil, false
		}
		return MessageEdited{Message: body.Message}, true

	case EvMessageDelete:
		var body struct {
			MessageID      string    `json:"message_id"`
			ConversationID string    `json:"conversation_id"`
			DeletedAt      time.Time `json:"deleted_at"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.MessageID == "" {
			return nil, false
		}
		at := body.DeletedAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		return MessageDeleted{
			ConversationID: body.ConversationID,
			MessageID:      body.MessageID,
			At:             at,
		}, true

	case EvMessageReaction:
		var body struct {
			Message Message `json:"message"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.Message.ID == "" {
			return nil, false
		}
		return MessageReactionChanged{Message: body.Message}, true

	case EvTypingStart, EvTypingStop:
		var body struct {
			UserID         string `json:"user_id"`
			ConversationID string `json:"conversation_id"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.UserID == "" || body.ConversationID == "" {
			return nil, false
		}
		if event == EvTypingStart {
			return TypingStarted{ConversationID: body.ConversationID, UserID: body.UserID}, true
		}
		return TypingStopped{ConversationID: body.ConversationID, UserID: body.UserID}, true

	case EvConversationNew:
		var body struct {
			Conversation Conversation `json:"conversation"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.Conversation.ID == "" {
			return nil, false
		}
		return ConversationCreated{Conversation: body.Conversation}, true

	case EvConversationUpdated:
		var body conversationUpdatedWire
		if err := json.Unmarshal(payload, &body); err != nil || body.ConversationID == "" {
			return nil, false
		}
		patch := ConversationPatch{LastMessage: body.LastMessage}
		if body.Updates != nil {
			patch.DisplayName = body.Updates.DisplayName
			patch.Description = body.Updates.Description
			patch.Icon = body.Updates.Icon
			patch.UnreadCount = body.Updates.UnreadCount
		}
		return ConversationUpdated{ConversationID: body.ConversationID, Patch: patch}, true

	case EvMemberJoined:
		var body struct {
			ConversationID string     `json:"conversation_id"`
			Member         Membership `json:"member"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.ConversationID == "" || body.Member.UserID == "" {
			return nil, false
		}
		return MemberJoined{ConversationID: body.ConversationID, Member: body.Member}, true

	case EvMemberLeft:
		var body struct {
			ConversationID string    `json:"conversation_id"`
			UserID         string    `json:"user_id"`
			LeftAt         time.Time `json:"left_at"`
		}
		if err := json.Unmarshal(payload, &body); err != nil || body.ConversationID == "" || body.UserID == "" {
			return nil, false
		}
		at := body.LeftAt
		if at.IsZero() {
			at = time.Now().UTC()
		}
		return MemberLeft{ConversationID: body.ConversationID, UserID: body.UserID, At: at}, true

	case EvPresenceUpdate:
		var body Presence
		if err := json.Unmarshal(payload, &body); err != nil || body.UserID == "" {
			return nil, false
		}
		return PresenceChanged{Presence: body}, true
	}
	return nil, false
}
