package orchestrator

import (
	"context"

	"github.com/example/shop-chat-client/domain/chat"
	"github.com/example/shop-chat-client/modules/session"
)

// RoomDirectory lists and opens rooms. Satisfied by the directory module.
type RoomDirectory interface {
	ListRooms(ctx context.Context) ([]chat.Room, error)
	OpenRoom(ctx context.Context, peerID string) (chat.Room, error)
}

// HistoryLoader fetches one ascending page of past messages. Satisfied by
// the history module.
type HistoryLoader interface {
	LoadHistory(ctx context.Context, roomID string, page, pageSize int) ([]chat.Message, error)
}

// RoomSession is the real-time transport bound to the active room.
// Satisfied by the session module.
type RoomSession interface {
	Bind(roomID string)
	Unbind()
	Send(out session.OutboundMessage)
	SetHandler(h session.Handler)
}
