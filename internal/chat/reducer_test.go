package chat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func msg(id, convID, author, content string, offset time.Duration) Message {
	return Message{
		ID:             id,
		ConversationID: convID,
		AuthorID:       author,
		Content:        content,
		CreatedAt:      t0.Add(offset),
	}
}

func conv(id, workspaceID string) Conversation {
	return Conversation{ID: id, WorkspaceID: workspaceID, Kind: KindGroup}
}

func TestAppendIsIdempotentByID(t *testing.T) {
	s := NewState()
	m1 := msg("m1", "c1", "u1", "first", 0)
	m2 := msg("m2", "c1", "u2", "second", time.Second)

	s = reduce(s, MessageCreated{Message: m1})
	s = reduce(s, MessageCreated{Message: m2})
	// Redundant delivery of m1 (e.g. ack + broadcast of the same send).
	s = reduce(s, MessageCreated{Message: m1})

	list := s.Messages["c1"]
	require.Len(t, list, 2)
	assert.Equal(t, "m1", list[0].ID, "duplicate must keep the first insertion position")
	assert.Equal(t, "m2", list[1].ID)
}

func TestUpdatePreservesOrder(t *testing.T) {
	s := NewState()
	for i, id := range []string{"m1", "m2", "m3"} {
		s = reduce(s, MessageCreated{Message: msg(id, "c1", "u1", "body "+id, time.Duration(i)*time.Second)})
	}

	edited := msg("m2", "c1", "u1", "edited body", time.Second)
	at := t0.Add(time.Minute)
	edited.EditedAt = &at
	s = reduce(s, MessageEdited{Message: edited})

	list := s.Messages["c1"]
	require.Len(t, list, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "edited body", list[1].Content)
	require.NotNil(t, list[1].EditedAt)
	assert.Equal(t, "body m1", list[0].Content)
	assert.Equal(t, "body m3", list[2].Content)
}

func TestDeleteTombstonesInPlace(t *testing.T) {
	s := NewState()
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "hello", 0)})
	s = reduce(s, MessageCreated{Message: msg("m2", "c1", "u1", "world", time.Second)})

	s = reduce(s, MessageDeleted{ConversationID: "c1", MessageID: "m1", At: t0.Add(time.Minute)})

	list := s.Messages["c1"]
	require.Len(t, list, 2, "soft delete must not shrink the list")
	assert.True(t, list[0].Deleted())
	assert.Empty(t, list[0].Content)
	assert.False(t, list[1].Deleted())
}

func TestHardRemoveFiltersMessage(t *testing.T) {
	s := NewState()
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "a", 0)})
	s = reduce(s, MessageCreated{Message: msg("m2", "c1", "u1", "b", time.Second)})

	s = reduce(s, MessageRemoved{ConversationID: "c1", MessageID: "m1"})

	list := s.Messages["c1"]
	require.Len(t, list, 1)
	assert.Equal(t, "m2", list[0].ID)
}

func TestConversationRemovalPurgesScope(t *testing.T) {
	s := NewState()
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "w1"), conv("c2", "w1")}})
	s = reduce(s, ConversationSelected{ConversationID: "c1"})
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "hi", 0)})
	s = reduce(s, TypingStarted{ConversationID: "c1", UserID: "u2"})

	s = reduce(s, ConversationRemoved{ConversationID: "c1"})

	_, ok := s.Conversation("c1")
	assert.False(t, ok)
	assert.NotContains(t, s.Messages, "c1", "no dangling messages for removed conversation")
	assert.NotContains(t, s.Typing, "c1")
	assert.Empty(t, s.ActiveConversationID, "active conversation cleared on removal")
	_, ok = s.ActiveConversation()
	assert.False(t, ok)
}

func TestTypingSetIdempotence(t *testing.T) {
	s := NewState()
	s = reduce(s, TypingStarted{ConversationID: "c1", UserID: "u1"})
	s = reduce(s, TypingStarted{ConversationID: "c1", UserID: "u1"})

	require.Len(t, s.Typing["c1"], 1)

	s = reduce(s, TypingStopped{ConversationID: "c1", UserID: "u1"})
	assert.Empty(t, s.Typing["c1"])

	// Stop for a user that never started is a no-op.
	s = reduce(s, TypingStopped{ConversationID: "c1", UserID: "u9"})
	assert.Empty(t, s.Typing["c1"])
}

func TestWorkspaceSwitchIsolation(t *testing.T) {
	s := NewState()
	s = reduce(s, WorkspaceSelected{WorkspaceID: "wA"})
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "wA")}})
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "hi", 0)})
	s = reduce(s, TypingStarted{ConversationID: "c1", UserID: "u2"})
	s = reduce(s, PresenceChanged{Presence: Presence{UserID: "u2", Status: StatusOnline}})
	s = reduce(s, ConnectionChanged{Connected: true})

	s = reduce(s, WorkspaceSelected{WorkspaceID: "wB"})

	assert.Equal(t, "wB", s.WorkspaceID)
	assert.Empty(t, s.Conversations)
	assert.Empty(t, s.Messages)
	assert.Empty(t, s.Typing)
	assert.Empty(t, s.Presence)
	assert.True(t, s.Connected, "connection status is transport state, not workspace state")
}

func TestReselectingWorkspaceKeepsState(t *testing.T) {
	s := NewState()
	s = reduce(s, WorkspaceSelected{WorkspaceID: "wA"})
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "wA")}})

	s = reduce(s, WorkspaceSelected{WorkspaceID: "wA"})
	assert.Len(t, s.Conversations, 1)
}

func TestAddConversationDeduplicatesAndPrepends(t *testing.T) {
	s := NewState()
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "w1"), conv("c2", "w1")}})

	updated := conv("c2", "w1")
	updated.DisplayName = "renamed"
	s = reduce(s, ConversationCreated{Conversation: updated})

	require.Len(t, s.Conversations, 2)
	assert.Equal(t, "c2", s.Conversations[0].ID)
	assert.Equal(t, "renamed", s.Conversations[0].DisplayName)
	assert.Equal(t, "c1", s.Conversations[1].ID)
}

func TestUpdateActiveConversationInLockstep(t *testing.T) {
	s := NewState()
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "w1")}})
	s = reduce(s, ConversationSelected{ConversationID: "c1"})

	name := "general"
	s = reduce(s, ConversationUpdated{ConversationID: "c1", Patch: ConversationPatch{DisplayName: &name}})

	active, ok := s.ActiveConversation()
	require.True(t, ok)
	assert.Equal(t, "general", active.DisplayName, "active view must never be stale")
}

func TestSelectConversationResetsThread(t *testing.T) {
	s := NewState()
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "w1"), conv("c2", "w1")}})
	s = reduce(s, ConversationSelected{ConversationID: "c1"})
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "root", 0)})
	s = reduce(s, ThreadOpened{MessageID: "m1"})

	root, ok := s.ThreadRoot()
	require.True(t, ok)
	assert.Equal(t, "m1", root.ID)

	s = reduce(s, ConversationSelected{ConversationID: "c2"})
	_, ok = s.ThreadRoot()
	assert.False(t, ok, "thread panel is scoped to the conversation it was opened in")
}

func TestUnreadCounting(t *testing.T) {
	s := NewState()
	s = reduce(s, SessionStarted{UserID: "me"})
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "w1"), conv("c2", "w1")}})
	s = reduce(s, ConversationSelected{ConversationID: "c2"})

	// Someone else posts in an inactive conversation.
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "hi", 0)})
	c1, _ := s.Conversation("c1")
	assert.Equal(t, 1, c1.UnreadCount)
	require.NotNil(t, c1.LastMessage)
	assert.Equal(t, "m1", c1.LastMessage.ID)

	// Own message never counts as unread.
	s = reduce(s, MessageCreated{Message: msg("m2", "c1", "me", "mine", time.Second)})
	c1, _ = s.Conversation("c1")
	assert.Equal(t, 1, c1.UnreadCount)

	// Messages in the active conversation never count as unread.
	s = reduce(s, MessageCreated{Message: msg("m3", "c2", "u1", "active", 2*time.Second)})
	c2, _ := s.Conversation("c2")
	assert.Equal(t, 0, c2.UnreadCount)

	assert.Equal(t, 1, s.TotalUnread())
}

func TestUnreadNeverRegressesUpward(t *testing.T) {
	s := NewState()
	s = reduce(s, SessionStarted{UserID: "me"})
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "w1")}})
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "hi", 0)})

	s = reduce(s, ConversationRead{ConversationID: "c1", At: t0.Add(time.Minute)})
	c1, _ := s.Conversation("c1")
	require.Equal(t, 0, c1.UnreadCount)

	// A stale conversation:updated carrying the pre-read counter must not
	// resurrect it.
	stale := 3
	s = reduce(s, ConversationUpdated{ConversationID: "c1", Patch: ConversationPatch{UnreadCount: &stale}})
	c1, _ = s.Conversation("c1")
	assert.Equal(t, 0, c1.UnreadCount)
}

func TestConversationReadStampsOwnMembership(t *testing.T) {
	s := NewState()
	s = reduce(s, SessionStarted{UserID: "me"})
	c := conv("c1", "w1")
	c.Members = []Membership{
		{UserID: "me", Role: RoleMember, JoinedAt: t0},
		{UserID: "u2", Role: RoleAdmin, JoinedAt: t0},
	}
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{c}})

	at := t0.Add(time.Hour)
	s = reduce(s, ConversationRead{ConversationID: "c1", At: at})

	c1, _ := s.Conversation("c1")
	mine, ok := c1.Member("me")
	require.True(t, ok)
	require.NotNil(t, mine.LastReadAt)
	assert.Equal(t, at, *mine.LastReadAt)
	other, _ := c1.Member("u2")
	assert.Nil(t, other.LastReadAt)
}

func TestMembershipJoinAndSoftLeave(t *testing.T) {
	s := NewState()
	s = reduce(s, ConversationsLoaded{Conversations: []Conversation{conv("c1", "w1")}})

	s = reduce(s, MemberJoined{ConversationID: "c1", Member: Membership{UserID: "u1", Role: RoleMember, JoinedAt: t0}})
	s = reduce(s, MemberJoined{ConversationID: "c1", Member: Membership{UserID: "u1", Role: RoleAdmin, JoinedAt: t0}})

	c1, _ := s.Conversation("c1")
	require.Len(t, c1.Members, 1, "rejoin replaces the prior membership")
	assert.Equal(t, RoleAdmin, c1.Members[0].Role)

	at := t0.Add(time.Hour)
	s = reduce(s, MemberLeft{ConversationID: "c1", UserID: "u1", At: at})
	c1, _ = s.Conversation("c1")
	require.Len(t, c1.Members, 1, "leaving is soft")
	require.NotNil(t, c1.Members[0].LeftAt)
	assert.Equal(t, at, *c1.Members[0].LeftAt)
}

func TestPresenceDeltaKeepsCachedDisplayFields(t *testing.T) {
	s := NewState()
	last := t0
	s = reduce(s, PresenceSnapshotLoaded{Presence: map[string]Presence{
		"u1": {UserID: "u1", Status: StatusOnline, DisplayName: "Ada", AvatarURL: "a.png", LastSeen: &last},
	}})

	s = reduce(s, PresenceChanged{Presence: Presence{UserID: "u1", Status: StatusAway}})

	p, ok := s.PresenceOf("u1")
	require.True(t, ok)
	assert.Equal(t, StatusAway, p.Status)
	assert.Equal(t, "Ada", p.DisplayName)
	assert.Equal(t, "a.png", p.AvatarURL)
	require.NotNil(t, p.LastSeen)
}

func TestPresenceSnapshotReplacesWholesale(t *testing.T) {
	s := NewState()
	s = reduce(s, PresenceChanged{Presence: Presence{UserID: "u1", Status: StatusOnline}})
	s = reduce(s, PresenceSnapshotLoaded{Presence: map[string]Presence{
		"u2": {UserID: "u2", Status: StatusBusy},
	}})

	_, ok := s.PresenceOf("u1")
	assert.False(t, ok)
	p, ok := s.PresenceOf("u2")
	require.True(t, ok)
	assert.Equal(t, StatusBusy, p.Status)
}

func TestBulkSetMessagesReplaces(t *testing.T) {
	s := NewState()
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "old", 0)})

	s = reduce(s, MessagesLoaded{ConversationID: "c1", Messages: []Message{
		msg("m7", "c1", "u1", "page", 0),
		msg("m8", "c1", "u1", "page", time.Second),
	}})

	list := s.Messages["c1"]
	require.Len(t, list, 2)
	assert.Equal(t, "m7", list[0].ID)
}

func TestReactionUpdateKeepsPosition(t *testing.T) {
	s := NewState()
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "a", 0)})
	s = reduce(s, MessageCreated{Message: msg("m2", "c1", "u1", "b", time.Second)})

	reacted := msg("m1", "c1", "u1", "a", 0)
	reacted.Reactions = map[string][]string{"👍": {"u2", "u3"}}
	s = reduce(s, MessageReactionChanged{Message: reacted})

	list := s.Messages["c1"]
	require.Len(t, list, 2)
	assert.Equal(t, "m1", list[0].ID)
	assert.Equal(t, []string{"u2", "u3"}, list[0].Reactions["👍"])
}

func TestReducerDoesNotMutateInput(t *testing.T) {
	s := NewState()
	s = reduce(s, MessageCreated{Message: msg("m1", "c1", "u1", "a", 0)})
	before := s

	_ = reduce(s, MessageDeleted{ConversationID: "c1", MessageID: "m1", At: t0})
	_ = reduce(s, TypingStarted{ConversationID: "c1", UserID: "u1"})

	assert.False(t, before.Messages["c1"][0].Deleted(), "snapshots are immutable")
	assert.Empty(t, before.Typing["c1"])
}
