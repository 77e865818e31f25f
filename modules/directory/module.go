package directory

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/singleflight"

	"github.com/example/shop-chat-client/domain/chat"
	"github.com/example/shop-chat-client/restclient"
)

// Module fetches the room directory from the backend. It performs no
// ordering itself; the orchestrator resorts the list whenever a room's
// last-message cache changes.
type Module struct {
	rest    *restclient.Client
	sfGroup singleflight.Group // collapses concurrent opens for one peer
	logger  types.Logger
}

// Compile-time interface checks
var _ mono.Module = (*Module)(nil)

// NewModule creates a new room directory module.
func NewModule(logger types.Logger, rest *restclient.Client) *Module {
	return &Module{
		rest:   rest,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "directory"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Directory module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("Directory module stopped")
	return nil
}

// ListRooms fetches all rooms for the current user.
func (m *Module) ListRooms(ctx context.Context) ([]chat.Room, error) {
	var resp roomListResponse
	if err := m.rest.GetJSON(ctx, "/api/v1/chat/rooms", &resp); err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return resp.Rooms, nil
}

// OpenRoom requests the room with the given peer, creating it if none exists
// yet. The backend call is idempotent; concurrent opens for the same peer
// are collapsed into a single request.
func (m *Module) OpenRoom(ctx context.Context, peerID string) (chat.Room, error) {
	result, err, _ := m.sfGroup.Do(peerID, func() (any, error) {
		var room chat.Room
		req := openRoomRequest{PeerID: peerID}
		if err := m.rest.PostJSON(ctx, "/api/v1/chat/rooms/open", &req, &room); err != nil {
			return chat.Room{}, err
		}
		return room, nil
	})
	if err != nil {
		return chat.Room{}, fmt.Errorf("failed to open room with peer %s: %w", peerID, err)
	}
	return result.(chat.Room), nil
}
