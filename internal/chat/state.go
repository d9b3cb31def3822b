package chat

// State is an immutable snapshot of everything the realtime core knows.
// The reducer returns fresh copies of whatever it touches; callers must
// never mutate a snapshot they were handed.
type State struct {
	SelfUserID  string
	WorkspaceID string
	Connected   bool

	Conversations        []Conversation
	ActiveConversationID string

	// Messages is keyed by conversation id; each list is ordered by
	// CreatedAt ascending and unique by message id.
	Messages map[string][]Message

	// Typing is conversation id -> set of user ids currently typing.
	Typing map[string]map[string]struct{}

	// Presence is keyed by user id, scoped to the current workspace.
	Presence map[string]Presence

	// ThreadRootID is the root message of the open thread panel, scoped to
	// the conversation that was active when it was opened.
	ThreadRootID string
}

// NewState returns an empty snapshot with allocated maps.
func NewState() State {
	return State{
		Messages: map[string][]Message{},
		Typing:   map[string]map[string]struct{}{},
		Presence: map[string]Presence{},
	}
}

func copyConversations(in []Conversation) []Conversation {
	out := make([]Conversation, len(in))
	copy(out, in)
	return out
}

func copyMessageList(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}

func copyMessages(in map[string][]Message) map[string][]Message {
	out := make(map[string][]Message, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTyping(in map[string]map[string]struct{}) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTypingSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in))
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

func copyPresence(in map[string]Presence) map[string]Presence {
	out := make(map[string]Presence, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
