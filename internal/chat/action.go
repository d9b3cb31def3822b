package chat

import "time"

// Action is the closed set of inputs the reducer understands. Server events
// are normalized into the event-named actions (MessageCreated, ...); the
// remaining actions originate locally (REST loads, UI intents, transport
// status).
type Action interface {
	isAction()
}

// --- session / workspace scope ---

// SessionStarted records the authenticated user so the reducer can tell own
// messages from everyone else's.
type SessionStarted struct {
	UserID string
}

// WorkspaceSelected switches the current workspace scope. All conversation,
// message, typing and presence state of the previous workspace is dropped.
type WorkspaceSelected struct {
	WorkspaceID string
}

// ConnectionChanged mirrors the coarse transport state into the store.
type ConnectionChanged struct {
	Connected bool
}

// --- conversation list ---

// ConversationsLoaded replaces the whole conversation list (REST bulk load).
type ConversationsLoaded struct {
	Conversations []Conversation
}

// ConversationCreated prepends a conversation, replacing any entry with the
// same id first.
type ConversationCreated struct {
	Conversation Conversation
}

// ConversationPatch carries the mutable fields of a conversation update.
// Nil fields are left untouched.
type ConversationPatch struct {
	DisplayName *string
	Description *string
	Icon        *string
	LastMessage *Message
	UnreadCount *int
}

// ConversationUpdated patches the matching conversation in place.
type ConversationUpdated struct {
	ConversationID string
	Patch          ConversationPatch
}

// ConversationRemoved drops a conversation and everything scoped to it.
type ConversationRemoved struct {
	ConversationID string
}

// ConversationSelected makes a conversation active and closes any open
// thread panel.
type ConversationSelected struct {
	ConversationID string
}

// ConversationRead marks the conversation read by the local user up to
// MessageID (empty = everything). Unread count drops to zero and never
// climbs back from stale data.
type ConversationRead struct {
	ConversationID string
	MessageID      string
	At             time.Time
}

// --- membership ---

type MemberJoined struct {
	ConversationID string
	Member         Membership
}

type MemberLeft struct {
	ConversationID string
	UserID         string
	At             time.Time
}

// --- messages ---

// MessagesLoaded replaces the full message list of one conversation
// (REST page load).
type MessagesLoaded struct {
	ConversationID string
	Messages       []Message
}

// MessageCreated appends a message. Idempotent by id: a message already in
// the list is left exactly where it is.
type MessageCreated struct {
	Message Message
}

// MessageEdited replaces the message with the same id, preserving position.
type MessageEdited struct {
	Message Message
}

// MessageDeleted tombstones a message in place.
type MessageDeleted struct {
	ConversationID string
	MessageID      string
	At             time.Time
}

// MessageReactionChanged replaces the message carrying the new reaction
// state, preserving position.
type MessageReactionChanged struct {
	Message Message
}

// MessageRemoved hard-removes a message locally (delete-confirmation flow
// only; the normal delete path tombstones instead).
type MessageRemoved struct {
	ConversationID string
	MessageID      string
}

// --- typing ---

type TypingStarted struct {
	ConversationID string
	UserID         string
}

type TypingStopped struct {
	ConversationID string
	UserID         string
}

// --- presence ---

// PresenceSnapshotLoaded replaces the whole presence map (REST snapshot).
type PresenceSnapshotLoaded struct {
	Presence map[string]Presence
}

// PresenceChanged patches one user's presence. Display fields missing from
// the delta keep their previously cached values.
type PresenceChanged struct {
	Presence Presence
}

// --- thread panel ---

type ThreadOpened struct {
	MessageID string
}

type ThreadClosed struct{}

func (SessionStarted) isAction()         {}
func (WorkspaceSelected) isAction()      {}
func (ConnectionChanged) isAction()      {}
func (ConversationsLoaded) isAction()    {}
func (ConversationCreated) isAction()    {}
func (ConversationUpdated) isAction()    {}
func (ConversationRemoved) isAction()    {}
func (ConversationSelected) isAction()   {}
func (ConversationRead) isAction()       {}
func (MemberJoined) isAction()           {}
func (MemberLeft) isAction()             {}
func (MessagesLoaded) isAction()         {}
func (MessageCreated) isAction()         {}
func (MessageEdited) isAction()          {}
func (MessageDeleted) isAction()         {}
func (MessageReactionChanged) isAction() {}
func (MessageRemoved) isAction()         {}
func (TypingStarted) isAction()          {}
func (TypingStopped) isAction()          {}
func (PresenceSnapshotLoaded) isAction() {}
func (PresenceChanged) isAction()        {}
func (ThreadOpened) isAction()           {}
func (ThreadClosed) isAction()           {}
