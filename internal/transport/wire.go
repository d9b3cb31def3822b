package transport

import "encoding/json"

// Envelope is the JSON frame exchanged over the chat socket. Events from
// the server carry Type and Payload; commands from the client additionally
// carry ID, and the server answers them with a frame of type "ack" echoing
// the same ID.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

const typeAck = "ack"

// Ack statuses. EmitCommand never fails with an error value for these; the
// status tells the caller what happened and the caller decides how to
// surface it.
const (
	AckOK      = "ok"
	AckTimeout = "timeout"
	AckError   = "error"
)

// Ack is the server's answer to a command, or a locally synthesized
// timeout/error sentinel.
type Ack struct {
	Status  string          `json:"status"`
	Error   string          `json:"error,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (a Ack) OK() bool { return a.Status == AckOK }

// Outbound command names (client -> server, each expects an ack).
const (
	CmdJoinWorkspace     = "join_workspace"
	CmdJoinConversation  = "join_conversation"
	CmdLeaveConversation = "leave_conversation"
	CmdSendMessage       = "send_message"
	CmdEditMessage       = "edit_message"
	CmdDeleteMessage     = "delete_message"
	CmdAddReaction       = "add_reaction"
	CmdTypingStart       = "typing_start"
	CmdTypingStop        = "typing_stop"
	CmdMarkAsRead        = "mark_as_read"
	CmdUpdatePresence    = "update_presence"
)
