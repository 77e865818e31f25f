package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "http://localhost:8080", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8080/ws", cfg.SocketURL)
	assert.Equal(t, "anonymous", cfg.Username)
	assert.Equal(t, 50, cfg.HistoryPageSize)
	assert.Equal(t, 10*time.Second, cfg.HeartBeat)
	assert.Equal(t, time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 30*time.Second, cfg.MaxReconnectDelay)
	assert.Equal(t, 4222, cfg.NATSPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CHAT_API_URL", "https://api.example.com")
	t.Setenv("CHAT_SOCKET_URL", "wss://api.example.com/ws")
	t.Setenv("CHAT_TOKEN", "tok")
	t.Setenv("CHAT_USER_ID", "u1")
	t.Setenv("CHAT_USERNAME", "alice")
	t.Setenv("CHAT_HISTORY_PAGE_SIZE", "25")
	t.Setenv("CHAT_HEARTBEAT", "5s")
	t.Setenv("CHAT_RECONNECT_DELAY", "500ms")
	t.Setenv("CHAT_RECONNECT_DELAY_MAX", "1m")
	t.Setenv("NATS_PORT", "4333")

	cfg := Load()

	assert.Equal(t, "https://api.example.com", cfg.APIBaseURL)
	assert.Equal(t, "wss://api.example.com/ws", cfg.SocketURL)
	assert.Equal(t, "tok", cfg.Token)
	assert.Equal(t, "u1", cfg.UserID)
	assert.Equal(t, "alice", cfg.Username)
	assert.Equal(t, 25, cfg.HistoryPageSize)
	assert.Equal(t, 5*time.Second, cfg.HeartBeat)
	assert.Equal(t, 500*time.Millisecond, cfg.ReconnectDelay)
	assert.Equal(t, time.Minute, cfg.MaxReconnectDelay)
	assert.Equal(t, 4333, cfg.NATSPort)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("CHAT_HISTORY_PAGE_SIZE", "not-a-number")
	t.Setenv("CHAT_HEARTBEAT", "soon")

	cfg := Load()

	assert.Equal(t, 50, cfg.HistoryPageSize)
	assert.Equal(t, 10*time.Second, cfg.HeartBeat)
}
