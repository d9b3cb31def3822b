package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ageniuscoder/mmchat/client/internal/chat"
)

// Cache is the persistent side of the per-conversation message store: a
// small sqlite file that lets a restarted client paint the last known
// conversations and messages before the REST load and the socket catch up.
// It is write-behind only — the reducer never reads from it.
type Cache struct {
	Db *sql.DB
}

func New(dsn string) (*Cache, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if _, err = db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		return nil, err
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	// Enable WAL for better concurrency
	_, _ = db.Exec(`PRAGMA journal_mode=WAL;`)

	// Wait up to 5s if locked
	_, _ = db.Exec(`PRAGMA busy_timeout = 5000;`)

	return &Cache{
		Db: db,
	}, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.Db.PingContext(ctx)
}

func (c *Cache) Close() error {
	return c.Db.Close()
}

// SaveConversations upserts the conversation list of one workspace.
func (c *Cache) SaveConversations(workspaceID string, convs []chat.Conversation) error {
	tx, err := c.Db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for i, conv := range convs {
		data, err := json.Marshal(conv)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO conversations (id, workspace_id, position, data, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET workspace_id=excluded.workspace_id,
			   position=excluded.position, data=excluded.data, updated_at=excluded.updated_at`,
			conv.ID, workspaceID, i, string(data), time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadConversations returns the cached list of one workspace in its stored
// order.
func (c *Cache) LoadConversations(workspaceID string) ([]chat.Conversation, error) {
	rows, err := c.Db.Query(
		`SELECT data FROM conversations WHERE workspace_id=? ORDER BY position ASC`,
		workspaceID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Conversation
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var conv chat.Conversation
		if err := json.Unmarshal([]byte(data), &conv); err != nil {
			continue // stale row from an older schema; skip
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

// SaveMessages upserts one conversation's message list.
func (c *Cache) SaveMessages(conversationID string, msgs []chat.Message) error {
	tx, err := c.Db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range msgs {
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(
			`INSERT INTO messages (id, conversation_id, created_at, data)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET data=excluded.data`,
			m.ID, conversationID, m.CreatedAt.UTC().Format(time.RFC3339Nano), string(data),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadMessages returns up to limit of the newest cached messages of a
// conversation, oldest first (the order the store expects from a bulk set).
func (c *Cache) LoadMessages(conversationID string, limit int) ([]chat.Message, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := c.Db.Query(
		`SELECT data FROM (
		   SELECT data, created_at FROM messages WHERE conversation_id=?
		   ORDER BY created_at DESC LIMIT ?
		 ) ORDER BY created_at ASC`,
		conversationID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []chat.Message
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var m chat.Message
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// PurgeConversation drops a removed conversation and its messages.
func (c *Cache) PurgeConversation(conversationID string) error {
	tx, err := c.Db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`DELETE FROM messages WHERE conversation_id=?`, conversationID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE id=?`, conversationID); err != nil {
		return err
	}
	return tx.Commit()
}

// Snapshot persists the workspace-scoped pieces of one store snapshot.
func (c *Cache) Snapshot(s chat.State) error {
	if s.WorkspaceID == "" {
		return nil
	}
	if err := c.SaveConversations(s.WorkspaceID, s.Conversations); err != nil {
		return err
	}
	for convID, msgs := range s.Messages {
		if err := c.SaveMessages(convID, msgs); err != nil {
			return err
		}
	}
	return nil
}
