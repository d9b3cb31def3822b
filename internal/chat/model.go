package chat

import "time"

type ConversationKind string

const (
	KindDirect   ConversationKind = "direct"
	KindGroup    ConversationKind = "group"
	KindDocument ConversationKind = "document"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusAway    PresenceStatus = "away"
	StatusBusy    PresenceStatus = "busy"
	StatusOffline PresenceStatus = "offline"
)

// Membership is a user's participation record inside one conversation.
// Members are never hard-removed; leaving sets LeftAt.
type Membership struct {
	UserID         string     `json:"user_id"`
	Role           Role       `json:"role"`
	JoinedAt       time.Time  `json:"joined_at"`
	LeftAt         *time.Time `json:"left_at,omitempty"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
	MutePreference string     `json:"mute_preference,omitempty"`
	CustomNickname string     `json:"custom_nickname,omitempty"`
}

type Attachment struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

type ReadReceipt struct {
	UserID string    `json:"user_id"`
	ReadAt time.Time `json:"read_at"`
}

// Message is a single chat message. CreatedAt is assigned by the server and
// defines canonical order. A delete tombstones the message (DeletedAt set,
// content cleared) — it never disappears from the list.
type Message struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	AuthorID       string              `json:"author_id"`
	Content        string              `json:"content"`
	Attachments    []Attachment        `json:"attachments,omitempty"`
	ReplyToID      *string             `json:"reply_to_id,omitempty"`
	EditedAt       *time.Time          `json:"edited_at,omitempty"`
	DeletedAt      *time.Time          `json:"deleted_at,omitempty"`
	Reactions      map[string][]string `json:"reactions,omitempty"` // emoji -> reacting user ids
	CreatedAt      time.Time           `json:"created_at"`
	ReadReceipts   []ReadReceipt       `json:"read_receipts,omitempty"`
}

func (m Message) Deleted() bool { return m.DeletedAt != nil }
func (m Message) Edited() bool  { return m.EditedAt != nil }

// Conversation belongs to exactly one workspace. LastMessage is a
// denormalized preview and may lag the message list.
type Conversation struct {
	ID          string           `json:"id"`
	WorkspaceID string           `json:"workspace_id"`
	Kind        ConversationKind `json:"kind"`
	DisplayName string           `json:"display_name,omitempty"`
	Description string           `json:"description,omitempty"`
	Icon        string           `json:"icon,omitempty"`
	IsEncrypted bool             `json:"is_encrypted"`
	Members     []Membership     `json:"members,omitempty"`
	LastMessage *Message         `json:"last_message,omitempty"`
	UnreadCount int              `json:"unread_count"`
}

// Member returns the membership entry for a user, if any.
func (c Conversation) Member(userID string) (Membership, bool) {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return Membership{}, false
}

// Presence is the last known presence of a user within the current
// workspace. DisplayName and AvatarURL are display caches that presence
// deltas may omit.
type Presence struct {
	UserID      string         `json:"user_id"`
	Status      PresenceStatus `json:"status"`
	LastSeen    *time.Time     `json:"last_seen,omitempty"`
	WorkspaceID string         `json:"workspace_id,omitempty"`
	DisplayName string         `json:"display_name,omitempty"`
	AvatarURL   string         `json:"avatar_url,omitempty"`
}
