package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
	"github.com/ageniuscoder/mmchat/client/internal/transport"
	"github.com/ageniuscoder/mmchat/client/internal/utils"
)

// Transport is the slice of the socket client the reconciler depends on.
type Transport interface {
	EmitCommand(ctx context.Context, name string, payload any) transport.Ack
	JoinWorkspace(ctx context.Context, workspaceID string) transport.Ack
	On(event string, h transport.Handler) int
	Off(event string, id int)
	OnStatusChange(fn func(connected bool))
}

var (
	// ErrTimeout: no ack arrived within the transport's window. The command
	// may still have completed server-side; the caller decides whether to
	// re-issue it — nothing is retried automatically.
	ErrTimeout = errors.New("reconcile: command timed out")

	// ErrCommandFailed: the server acked negatively or the transport was
	// not connected.
	ErrCommandFailed = errors.New("reconcile: command failed")
)

// Reconciler routes user intents to transport commands and feeds the
// server's event stream back into the store. State only ever changes
// through the event path — command acks surface errors to the caller and
// nothing else, so there is no second mutation path to race with.
type Reconciler struct {
	tr       Transport
	store    *chat.Store
	validate *validator.Validate
	typing   *typingTracker
	handlers map[string]int
}

func New(tr Transport, store *chat.Store, typingDebounce time.Duration) *Reconciler {
	r := &Reconciler{
		tr:       tr,
		store:    store,
		validate: validator.New(),
		handlers: map[string]int{},
	}
	r.typing = newTypingTracker(typingDebounce, r.emitTypingStop)
	return r
}

// Bind subscribes the store to the full inbound event set and to transport
// status changes. Call once after constructing the transport.
func (r *Reconciler) Bind() {
	for _, name := range chat.EventNames() {
		event := name
		r.handlers[event] = r.tr.On(event, func(payload json.RawMessage) {
			if act, ok := chat.Normalize(event, payload); ok {
				r.store.Dispatch(act)
			}
		})
	}
	r.tr.OnStatusChange(func(connected bool) {
		r.store.Dispatch(chat.ConnectionChanged{Connected: connected})
	})
}

// Unbind detaches the event handlers and stops all typing timers.
func (r *Reconciler) Unbind() {
	for event, id := range r.handlers {
		r.tr.Off(event, id)
	}
	r.handlers = map[string]int{}
	r.typing.stopAll()
}

// JoinWorkspace switches the store scope and joins the workspace channel
// (rate-limited by the transport).
func (r *Reconciler) JoinWorkspace(ctx context.Context, workspaceID string) error {
	r.store.Dispatch(chat.WorkspaceSelected{WorkspaceID: workspaceID})
	return r.ackToErr(r.tr.JoinWorkspace(ctx, workspaceID))
}

func (r *Reconciler) JoinConversation(ctx context.Context, conversationID string) error {
	return r.command(ctx, transport.CmdJoinConversation, JoinConversationPayload{ConversationID: conversationID})
}

func (r *Reconciler) LeaveConversation(ctx context.Context, conversationID string) error {
	return r.command(ctx, transport.CmdLeaveConversation, JoinConversationPayload{ConversationID: conversationID})
}

// SendMessage issues send_message and waits for the ack. No optimistic
// local insert: the server echoes the created message back as message:new
// and the store's append-is-idempotent-by-id rule absorbs the overlap
// between the echo and the broadcast.
func (r *Reconciler) SendMessage(ctx context.Context, p SendMessagePayload) error {
	return r.command(ctx, transport.CmdSendMessage, p)
}

// EditMessage is fire-and-forget from the store's perspective: the list
// mutates when message:edit comes back, never from the ack.
func (r *Reconciler) EditMessage(ctx context.Context, p EditMessagePayload) error {
	return r.command(ctx, transport.CmdEditMessage, p)
}

func (r *Reconciler) DeleteMessage(ctx context.Context, p DeleteMessagePayload) error {
	return r.command(ctx, transport.CmdDeleteMessage, p)
}

func (r *Reconciler) AddReaction(ctx context.Context, p AddReactionPayload) error {
	return r.command(ctx, transport.CmdAddReaction, p)
}

// MarkAsRead zeroes the local unread counter immediately (the reducer keeps
// it monotonic against stale data) and tells the server.
func (r *Reconciler) MarkAsRead(ctx context.Context, conversationID, messageID string) error {
	r.store.Dispatch(chat.ConversationRead{
		ConversationID: conversationID,
		MessageID:      messageID,
		At:             time.Now().UTC(),
	})
	return r.command(ctx, transport.CmdMarkAsRead, MarkAsReadPayload{
		ConversationID: conversationID,
		MessageID:      messageID,
	})
}

func (r *Reconciler) UpdatePresence(ctx context.Context, status chat.PresenceStatus, workspaceID string) error {
	return r.command(ctx, transport.CmdUpdatePresence, UpdatePresencePayload{
		Status:      string(status),
		WorkspaceID: workspaceID,
	})
}

// NotifyTyping signals a keystroke. The first call per conversation emits
// typing_start; every call re-arms a debounce timer, and one quiet interval
// later typing_stop goes out on its own — the server never guarantees a
// stop event for a client that just went away.
func (r *Reconciler) NotifyTyping(ctx context.Context, conversationID string) error {
	if r.typing.touch(conversationID) {
		return r.command(ctx, transport.CmdTypingStart, TypingPayload{
			ConversationID: conversationID,
			IsTyping:       true,
		})
	}
	return nil
}

// StopTyping cancels the debounce timer and emits typing_stop now.
func (r *Reconciler) StopTyping(ctx context.Context, conversationID string) error {
	if !r.typing.stop(conversationID) {
		return nil
	}
	return r.command(ctx, transport.CmdTypingStop, TypingPayload{
		ConversationID: conversationID,
		IsTyping:       false,
	})
}

func (r *Reconciler) emitTypingStop(conversationID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.command(ctx, transport.CmdTypingStop, TypingPayload{
		ConversationID: conversationID,
		IsTyping:       false,
	})
}

func (r *Reconciler) command(ctx context.Context, name string, payload any) error {
	if err := r.checkPayload(payload); err != nil {
		return err
	}
	return r.ackToErr(r.tr.EmitCommand(ctx, name, payload))
}

func (r *Reconciler) checkPayload(payload any) error {
	err := r.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return fmt.Errorf("reconcile: invalid payload: %s", utils.ValidationErr(ve))
	}
	return err
}

func (r *Reconciler) ackToErr(ack transport.Ack) error {
	switch ack.Status {
	case transport.AckOK:
		return nil
	case transport.AckTimeout:
		return ErrTimeout
	default:
		if ack.Error != "" {
			return fmt.Errorf("%w: %s", ErrCommandFailed, ack.Error)
		}
		return ErrCommandFailed
	}
}
