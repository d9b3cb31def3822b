package transport

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/ageniuscoder/mmchat/client/internal/auth"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1 << 20
	sendBuffer     = 256
)

// Close code the server uses to reject a live connection whose token went
// stale. Handshake-level rejection arrives as HTTP 401/403 instead.
const closeAuthRejected = 4401

// ErrAuthRejected marks an authentication-class connection failure. It is a
// distinct failure class from transient network trouble: the cached token is
// cleared and no reconnect is attempted.
var ErrAuthRejected = errors.New("transport: authentication rejected")

type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
)

// Handler receives the raw payload of one inbound event. Handlers for the
// same event run independently; one panicking does not stop the others.
type Handler func(payload json.RawMessage)

// Conn is the subset of *websocket.Conn the client needs; tests substitute
// their own.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// DialFunc opens one socket connection. The default wraps gorilla's dialer.
type DialFunc func(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error)

func gorillaDial(ctx context.Context, url string, header http.Header) (Conn, *http.Response, error) {
	d := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	return d.DialContext(ctx, url, header)
}

type Config struct {
	// URL of the chat namespace endpoint, e.g. wss://host/ws/chat.
	URL string

	// AckTimeout bounds how long EmitCommand waits for the server's ack.
	AckTimeout time.Duration

	// ReconnectBase is the first backoff delay; it doubles per attempt up
	// to ReconnectMax attempts.
	ReconnectBase time.Duration
	ReconnectMax  int

	// JoinInterval is the minimum spacing between workspace joins.
	JoinInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.AckTimeout <= 0 {
		c.AckTimeout = 5 * time.Second
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 5
	}
	if c.JoinInterval <= 0 {
		c.JoinInterval = time.Second
	}
	return c
}

// Client is the socket transport for the chat namespace. It is an owned
// object with an explicit lifecycle — construct one per session, Connect it,
// Disconnect it — never a package singleton.
//
// Delivery contract: the server sends events for a given conversation in
// creation order on one connection. The state store's blind append depends
// on that; the client itself preserves arrival order by dispatching events
// from a single read loop.
type Client struct {
	cfg   Config
	creds *auth.Credentials
	dial  DialFunc

	// schedule is how reconnects arm their timers; tests swap it out.
	schedule func(d time.Duration, fn func()) (cancel func())

	onStatus func(connected bool)

	joinLimiter *rate.Limiter

	mu          sync.Mutex
	status      Status
	closing     bool
	attempts    int
	cancelRetry func()
	conn        Conn
	writeq      chan []byte
	done        chan struct{}
	handlers    map[string]map[int]Handler
	nextHandler int
	pending     map[string]chan Ack
}

func New(cfg Config, creds *auth.Credentials) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:         cfg,
		creds:       creds,
		dial:        gorillaDial,
		schedule:    scheduleTimer,
		joinLimiter: rate.NewLimiter(rate.Every(cfg.JoinInterval), 1),
		handlers:    map[string]map[int]Handler{},
		pending:     map[string]chan Ack{},
	}
}

func scheduleTimer(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

// OnStatusChange registers the coarse connected/disconnected callback the
// store mirrors into its isConnected flag.
func (c *Client) OnStatusChange(fn func(connected bool)) {
	c.mu.Lock()
	c.onStatus = fn
	c.mu.Unlock()
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status == StatusConnected
}

// Connect establishes the persistent connection. Idempotent while already
// connected or connecting. An invalid or expired token settles into the
// disconnected state and returns ErrAuthRejected — it is never retried.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status == StatusConnected || c.status == StatusConnecting {
		c.mu.Unlock()
		return nil
	}
	token := c.creds.Token()
	if token == "" || c.creds.Expired() {
		c.status = StatusDisconnected
		c.mu.Unlock()
		return ErrAuthRejected
	}
	if c.status != StatusReconnecting {
		c.status = StatusConnecting
	}
	c.closing = false
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, resp, err := c.dial(ctx, c.cfg.URL, header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			c.creds.Clear()
			c.setStatus(StatusDisconnected)
			return ErrAuthRejected
		}
		c.setStatus(StatusDisconnected)
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.status = StatusConnected
	c.attempts = 0
	c.writeq = make(chan []byte, sendBuffer)
	c.done = make(chan struct{})
	writeq, done := c.writeq, c.done
	c.mu.Unlock()

	go c.readPump(conn)
	go c.writePump(conn, writeq, done)
	c.notifyStatus(true)
	return nil
}

// Disconnect tears the connection down, cancels pending reconnect timers
// and drops every registered listener. Safe when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.closing = true
	if c.cancelRetry != nil {
		c.cancelRetry()
		c.cancelRetry = nil
	}
	c.attempts = 0
	conn := c.conn
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	c.status = StatusDisconnected
	pending := c.pending
	c.pending = map[string]chan Ack{}
	c.handlers = map[string]map[int]Handler{}
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- Ack{Status: AckError, Error: "disconnected"}
	}
	if conn != nil {
		conn.Close()
	}
	c.notifyStatus(false)
}

// On registers a handler for an inbound event name and returns an id for
// Off. Multiple handlers per event are independent.
func (c *Client) On(event string, h Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextHandler
	c.nextHandler++
	if c.handlers[event] == nil {
		c.handlers[event] = map[int]Handler{}
	}
	c.handlers[event][id] = h
	return id
}

func (c *Client) Off(event string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hs, ok := c.handlers[event]; ok {
		delete(hs, id)
		if len(hs) == 0 {
			delete(c.handlers, event)
		}
	}
}

// EmitCommand sends one command frame and waits for its ack. It never
// returns an error: no connection yields Ack{Status:"error"} immediately
// and a missing ack yields Ack{Status:"timeout"} after the configured
// timeout. There is no mid-flight cancellation — a late ack is simply
// ignored.
func (c *Client) EmitCommand(ctx context.Context, name string, payload any) Ack {
	body, err := json.Marshal(payload)
	if err != nil {
		return Ack{Status: AckError, Error: err.Error()}
	}

	c.mu.Lock()
	if c.status != StatusConnected || c.writeq == nil {
		c.mu.Unlock()
		return Ack{Status: AckError, Error: "not connected"}
	}
	id := uuid.NewString()
	ch := make(chan Ack, 1)
	c.pending[id] = ch
	writeq := c.writeq
	c.mu.Unlock()

	frame, err := json.Marshal(Envelope{Type: name, ID: id, Payload: body})
	if err != nil {
		c.dropPending(id)
		return Ack{Status: AckError, Error: err.Error()}
	}
	select {
	case writeq <- frame:
	default:
		c.dropPending(id)
		return Ack{Status: AckError, Error: "send buffer full"}
	}

	timer := time.NewTimer(c.cfg.AckTimeout)
	defer timer.Stop()
	select {
	case ack := <-ch:
		return ack
	case <-timer.C:
		c.dropPending(id)
		return Ack{Status: AckTimeout}
	case <-ctx.Done():
		c.dropPending(id)
		return Ack{Status: AckError, Error: ctx.Err().Error()}
	}
}

// JoinWorkspace is EmitCommand(join_workspace) behind the join limiter:
// at most one join per JoinInterval, extra joins wait their turn instead of
// being dropped.
func (c *Client) JoinWorkspace(ctx context.Context, workspaceID string) Ack {
	if err := c.joinLimiter.Wait(ctx); err != nil {
		return Ack{Status: AckError, Error: err.Error()}
	}
	return c.EmitCommand(ctx, CmdJoinWorkspace, struct {
		WorkspaceID string `json:"workspace_id"`
	}{workspaceID})
}

func (c *Client) dropPending(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) setStatus(s Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Client) notifyStatus(connected bool) {
	c.mu.Lock()
	fn := c.onStatus
	c.mu.Unlock()
	if fn != nil {
		fn(connected)
	}
}

func (c *Client) readPump(conn Conn) {
	defer c.connectionLost(conn)
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, closeAuthRejected) {
				// Dead token: stop retrying against it.
				c.creds.Clear()
				c.mu.Lock()
				c.closing = true
				c.mu.Unlock()
			}
			return
		}
		var env Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			log.Printf("[transport] dropping malformed frame: %v", err)
			continue
		}
		if env.Type == typeAck && env.ID != "" {
			c.resolveAck(env)
			continue
		}
		c.dispatchEvent(env.Type, env.Payload)
	}
}

func (c *Client) writePump(conn Conn, writeq chan []byte, done chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()
	for {
		select {
		case msg := <-writeq:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (c *Client) resolveAck(env Envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.ID]
	if ok {
		delete(c.pending, env.ID)
	}
	c.mu.Unlock()
	if !ok {
		// Late ack for a command whose caller gave up.
		return
	}
	ack := Ack{Status: AckOK}
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &ack); err != nil {
			ack = Ack{Status: AckError, Error: "malformed ack"}
		}
	}
	ch <- ack
}

func (c *Client) dispatchEvent(event string, payload json.RawMessage) {
	c.mu.Lock()
	hs := c.handlers[event]
	snapshot := make([]Handler, 0, len(hs))
	for _, h := range hs {
		snapshot = append(snapshot, h)
	}
	c.mu.Unlock()
	for _, h := range snapshot {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("[transport] handler for %q panicked: %v", event, r)
				}
			}()
			h(payload)
		}()
	}
}

// connectionLost runs when the read loop exits for any reason. On an
// unexpected drop it kicks off the bounded-backoff reconnect; on explicit
// Disconnect or an auth rejection it settles into disconnected.
func (c *Client) connectionLost(conn Conn) {
	conn.Close()
	c.mu.Lock()
	if c.conn != conn {
		// Already torn down by Disconnect.
		c.mu.Unlock()
		return
	}
	c.conn = nil
	if c.done != nil {
		close(c.done)
		c.done = nil
	}
	pending := c.pending
	c.pending = map[string]chan Ack{}
	closing := c.closing
	if closing {
		c.status = StatusDisconnected
	} else {
		c.status = StatusReconnecting
	}
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- Ack{Status: AckError, Error: "connection lost"}
	}
	c.notifyStatus(false)
	if !closing {
		c.scheduleReconnect()
	}
}

func (c *Client) scheduleReconnect() {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return
	}
	if c.attempts >= c.cfg.ReconnectMax {
		c.status = StatusDisconnected
		c.mu.Unlock()
		log.Printf("[transport] giving up after %d reconnect attempts", c.cfg.ReconnectMax)
		return
	}
	c.attempts++
	delay := c.cfg.ReconnectBase << (c.attempts - 1)
	c.status = StatusReconnecting
	c.cancelRetry = c.schedule(delay, func() {
		err := c.Connect(context.Background())
		if err == nil || errors.Is(err, ErrAuthRejected) {
			return
		}
		c.mu.Lock()
		c.status = StatusReconnecting
		c.mu.Unlock()
		c.scheduleReconnect()
	})
	c.mu.Unlock()
}
