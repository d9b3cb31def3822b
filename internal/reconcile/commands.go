package reconcile

// Command payload shapes for the chat namespace (client -> server). Every
// outbound payload is validated before it goes on the wire; the server
// re-validates, but failing locally gives the caller an immediate, typed
// answer instead of a negative ack round trip.

type SendMessagePayload struct {
	ConversationID string       `json:"conversation_id" validate:"required"`
	Content        string       `json:"content" validate:"required"`
	ReplyToID      *string      `json:"reply_to_id,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

type Attachment struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	MimeType string `json:"mime_type"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

type EditMessagePayload struct {
	MessageID string `json:"message_id" validate:"required"`
	Content   string `json:"content" validate:"required"`
}

type DeleteMessagePayload struct {
	MessageID      string `json:"message_id" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type AddReactionPayload struct {
	MessageID      string `json:"message_id" validate:"required"`
	Emoji          string `json:"emoji" validate:"required"`
	ConversationID string `json:"conversation_id" validate:"required"`
}

type TypingPayload struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	IsTyping       bool   `json:"is_typing"`
}

type MarkAsReadPayload struct {
	ConversationID string `json:"conversation_id" validate:"required"`
	MessageID      string `json:"message_id,omitempty"`
}

type UpdatePresencePayload struct {
	Status      string `json:"status" validate:"required,oneof=online away busy offline"`
	WorkspaceID string `json:"workspace_id" validate:"required"`
}

type JoinConversationPayload struct {
	ConversationID string `json:"conversation_id" validate:"required"`
}
