package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/shop-chat-client/domain/chat"
)

// MessageReceivedEvent is emitted when an authoritative message arrives over
// the socket, whether or not its room is currently active.
type MessageReceivedEvent struct {
	Message chat.Message `json:"message"`
	Active  bool         `json:"active"`
}

// RoomListChangedEvent is emitted when the room ordering changes because a
// room's last-message cache was updated.
type RoomListChangedEvent struct {
	RoomID    string    `json:"room_id"`
	RoomCount int       `json:"room_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event definitions for the chat domain.
var (
	MessageReceivedV1 = helper.EventDefinition[MessageReceivedEvent](
		"chat",
		"MessageReceived",
		"v1",
	)

	RoomListChangedV1 = helper.EventDefinition[RoomListChangedEvent](
		"chat",
		"RoomListChanged",
		"v1",
	)
)
