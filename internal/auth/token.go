package auth

import (
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirrors the token body minted by the mmchat backend.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

var ErrNoToken = errors.New("auth: no token")

// Credentials holds the bearer token shared by the socket handshake and the
// REST Authorization header. The transport clears it when the server rejects
// the handshake, so a dead token is never retried.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Credentials) Clear() {
	c.Set("")
}

// Claims decodes the token body without verifying the signature — the
// client has no HMAC secret; verification is the server's job. This is only
// used to read the user id and expiry.
func (c *Credentials) Claims() (*Claims, error) {
	tok := c.Token()
	if tok == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Expired reports whether the held token is already past its exp claim.
// Tokens that do not decode as JWTs (opaque tokens) and tokens without an
// exp claim are treated as live — the server is the judge of those.
func (c *Credentials) Expired() bool {
	claims, err := c.Claims()
	if err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Before(time.Now())
}
