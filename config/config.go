// Package config loads the client configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the chat client.
type Config struct {
	// APIBaseURL is the REST backend base URL, e.g. http://localhost:8080.
	APIBaseURL string
	// SocketURL is the STOMP-over-WebSocket endpoint, e.g. ws://localhost:8080/ws.
	SocketURL string
	// Token is the bearer credential presented on REST calls and the
	// socket CONNECT frame.
	Token string

	UserID   string
	Username string

	// HistoryPageSize is the number of messages fetched on room activation.
	HistoryPageSize int
	// HeartBeat is the STOMP heart-beat interval in both directions.
	HeartBeat time.Duration
	// ReconnectDelay is the initial delay before a transport reconnect
	// attempt; doubled per attempt up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration

	// NATSPort is the embedded NATS port used by the internal event bus.
	NATSPort int
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	return Config{
		APIBaseURL:        getEnv("CHAT_API_URL", "http://localhost:8080"),
		SocketURL:         getEnv("CHAT_SOCKET_URL", "ws://localhost:8080/ws"),
		Token:             getEnv("CHAT_TOKEN", ""),
		UserID:            getEnv("CHAT_USER_ID", ""),
		Username:          getEnv("CHAT_USERNAME", "anonymous"),
		HistoryPageSize:   getEnvInt("CHAT_HISTORY_PAGE_SIZE", 50),
		HeartBeat:         getEnvDuration("CHAT_HEARTBEAT", 10*time.Second),
		ReconnectDelay:    getEnvDuration("CHAT_RECONNECT_DELAY", time.Second),
		MaxReconnectDelay: getEnvDuration("CHAT_RECONNECT_DELAY_MAX", 30*time.Second),
		NATSPort:          getEnvInt("NATS_PORT", 4222),
	}
}

// getEnv returns environment variable value or default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns environment variable as int or default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Printf("Warning: invalid int value for %s: %s, using default: %d", key, value, defaultValue)
	}
	return defaultValue
}

// getEnvDuration returns environment variable as duration or default.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Warning: invalid duration value for %s: %s, using default: %s", key, value, defaultValue)
	}
	return defaultValue
}
