package chat

import "time"

// MessageType discriminates message payloads on the wire.
type MessageType string

const (
	MessageText  MessageType = "TEXT"
	MessageImage MessageType = "IMAGE"
)

// LastMessage is the denormalized summary of the most recent message in a
// room, used for ordering the room list.
type LastMessage struct {
	SenderID string    `json:"senderId"`
	Content  string    `json:"content"`
	SentAt   time.Time `json:"sentAt"`
}

// Room represents a conversation between the current user and one peer.
type Room struct {
	ID          string       `json:"id"`
	PeerID      string       `json:"peerId"`
	PeerName    string       `json:"peerName"`
	PeerAvatar  string       `json:"peerAvatar,omitempty"`
	LastMessage *LastMessage `json:"lastMessage,omitempty"`
}

// Message represents a chat message. For IMAGE messages Content carries a
// base64 data URI and FileName/MimeType describe the original file.
type Message struct {
	ID         string      `json:"id"`
	RoomID     string      `json:"roomId"`
	SenderID   string      `json:"senderId"`
	SenderName string      `json:"senderUsername"`
	Type       MessageType `json:"type"`
	Content    string      `json:"content"`
	FileName   string      `json:"fileName,omitempty"`
	MimeType   string      `json:"mimeType,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`

	// Pending marks an optimistic local entry that has not yet been
	// confirmed by the server broadcast. Never set on wire messages.
	Pending bool `json:"-"`
}
