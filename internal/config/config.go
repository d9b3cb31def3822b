package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// SocketURL is the chat namespace endpoint, e.g. wss://host/ws/chat.
	SocketURL string
	// APIBaseURL is the REST collaborator base, e.g. https://host/api/v1.
	APIBaseURL string
	// Token is the bearer token for both the socket handshake and REST.
	Token string

	AckTimeout     time.Duration
	ReconnectBase  time.Duration
	ReconnectMax   int
	JoinInterval   time.Duration
	TypingDebounce time.Duration
	CacheDSN       string
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val != "" {
		return val
	}
	return def
}

func getenvInt(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return def
}

func MustLoad() Config {
	cfg := Config{
		SocketURL:      getenv("MMCHAT_WS_URL", "ws://localhost:8080/ws/chat"),
		APIBaseURL:     getenv("MMCHAT_API_URL", "http://localhost:8080/api/v1"),
		Token:          getenv("MMCHAT_TOKEN", ""),
		AckTimeout:     time.Duration(getenvInt("ACK_TIMEOUT_MS", 5000)) * time.Millisecond,
		ReconnectBase:  time.Duration(getenvInt("RECONNECT_BASE_MS", 1000)) * time.Millisecond,
		ReconnectMax:   getenvInt("RECONNECT_MAX_ATTEMPTS", 5),
		JoinInterval:   time.Duration(getenvInt("JOIN_INTERVAL_MS", 1000)) * time.Millisecond,
		TypingDebounce: time.Duration(getenvInt("TYPING_DEBOUNCE_MS", 1000)) * time.Millisecond,
		CacheDSN:       getenv("CACHE_DSN", "file:mmchat-cache.db?_pragma=foreign_keys(ON)"),
	}
	return cfg
}
