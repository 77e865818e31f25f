package directory

import (
	"sort"

	"github.com/example/shop-chat-client/domain/chat"
)

// roomListResponse is the room list endpoint payload.
type roomListResponse struct {
	Rooms []chat.Room `json:"rooms"`
	Total int         `json:"total"`
}

// openRoomRequest is the open-or-get room request body.
type openRoomRequest struct {
	PeerID string `json:"peerId"`
}

// SortRooms orders rooms by last-message timestamp descending. Rooms without
// any messages sort last; ties keep their relative order.
func SortRooms(rooms []chat.Room) {
	sort.SliceStable(rooms, func(i, j int) bool {
		li, lj := rooms[i].LastMessage, rooms[j].LastMessage
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.SentAt.After(lj.SentAt)
		}
	})
}
