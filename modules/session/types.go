package session

import (
	"time"

	"github.com/example/shop-chat-client/domain/chat"
)

// State is the session's connection state.
type State int

const (
	// Disconnected is the initial state and the state after Unbind.
	Disconnected State = iota
	// Connecting covers the dial, handshake and subscribe sequence, and
	// the gaps between reconnect attempts.
	Connecting
	// Connected means the room's topic subscription is live.
	Connected
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Handler receives authoritative inbound messages, exactly once per frame.
type Handler func(chat.Message)

// OutboundMessage is the publish body sent to the outgoing chat destination.
type OutboundMessage struct {
	RoomID   string           `json:"roomId"`
	Type     chat.MessageType `json:"type"`
	Content  string           `json:"content"`
	FileName string           `json:"fileName,omitempty"`
	MimeType string           `json:"mimeType,omitempty"`
}

// Config holds the socket session configuration.
type Config struct {
	// SocketURL is the WebSocket endpoint the STOMP session runs over.
	SocketURL string
	// SendDestination is the fixed application destination for outgoing
	// chat actions.
	SendDestination string
	// TopicFormat builds the per-room subscribe destination from a room ID.
	TopicFormat string
	// HeartBeat is the STOMP heart-beat interval requested in both
	// directions. Zero disables heart-beats.
	HeartBeat time.Duration
	// ReconnectDelay is the initial backoff before redialing a lost
	// transport; doubled per failed attempt up to MaxReconnectDelay.
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

// DefaultConfig returns a session configuration for the given socket URL.
func DefaultConfig(socketURL string) Config {
	return Config{
		SocketURL:         socketURL,
		SendDestination:   "/app/chat/send",
		TopicFormat:       "/topic/rooms/%s",
		HeartBeat:         10 * time.Second,
		ReconnectDelay:    time.Second,
		MaxReconnectDelay: 30 * time.Second,
	}
}
