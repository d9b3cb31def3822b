package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ageniuscoder/mmchat/client/internal/auth"
	"github.com/ageniuscoder/mmchat/client/internal/chat"
)

// Sentinel errors for common HTTP error classes.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
)

// Client is the REST collaborator: historical/bulk reads the socket never
// carries. Responses land in the store through the bulk-set actions
// (ConversationsLoaded, MessagesLoaded, PresenceSnapshotLoaded).
type Client struct {
	BaseURL string
	Creds   *auth.Credentials
	HTTP    *http.Client
}

func New(baseURL string, creds *auth.Credentials) *Client {
	return &Client{
		BaseURL: baseURL,
		Creds:   creds,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

// MessagesPage is one window of a conversation's history.
type MessagesPage struct {
	Messages   []chat.Message `json:"messages"`
	NextCursor string         `json:"next_cursor,omitempty"`
	HasMore    bool           `json:"has_more"`
}

// ConversationPatch carries metadata fields to change; nil fields are left
// alone server-side.
type ConversationPatch struct {
	DisplayName *string `json:"display_name,omitempty"`
	Description *string `json:"description,omitempty"`
	Icon        *string `json:"icon,omitempty"`
}

// Conversations lists every conversation of a workspace.
func (c *Client) Conversations(ctx context.Context, workspaceID string) ([]chat.Conversation, error) {
	var resp struct {
		Conversations []chat.Conversation `json:"conversations"`
	}
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/conversations"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// Conversation fetches one conversation's metadata.
func (c *Client) Conversation(ctx context.Context, id string) (chat.Conversation, error) {
	var conv chat.Conversation
	err := c.do(ctx, http.MethodGet, "/conversations/"+url.PathEscape(id), nil, &conv)
	return conv, err
}

// UpdateConversation patches conversation metadata and returns the updated
// record.
func (c *Client) UpdateConversation(ctx context.Context, id string, patch ConversationPatch) (chat.Conversation, error) {
	var conv chat.Conversation
	err := c.do(ctx, http.MethodPatch, "/conversations/"+url.PathEscape(id), patch, &conv)
	return conv, err
}

// Messages fetches one page of a conversation's history, oldest first.
// cursor is the NextCursor of the previous page, empty for the newest page.
func (c *Client) Messages(ctx context.Context, conversationID, cursor string, limit int) (MessagesPage, error) {
	q := url.Values{}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/conversations/" + url.PathEscape(conversationID) + "/messages"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var page MessagesPage
	err := c.do(ctx, http.MethodGet, path, nil, &page)
	return page, err
}

// PresenceSnapshot fetches the whole presence map of a workspace.
func (c *Client) PresenceSnapshot(ctx context.Context, workspaceID string) (map[string]chat.Presence, error) {
	var resp struct {
		Presence []chat.Presence `json:"presence"`
	}
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/presence"
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make(map[string]chat.Presence, len(resp.Presence))
	for _, p := range resp.Presence {
		out[p.UserID] = p
	}
	return out, nil
}

// SearchMessages runs a full-text search across a workspace.
func (c *Client) SearchMessages(ctx context.Context, workspaceID, query string) ([]chat.Message, error) {
	q := url.Values{}
	q.Set("q", query)
	path := "/workspaces/" + url.PathEscape(workspaceID) + "/messages/search?" + q.Encode()
	var resp struct {
		Messages []chat.Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.Creds.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
