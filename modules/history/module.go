package history

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/shop-chat-client/domain/chat"
	"github.com/example/shop-chat-client/restclient"
)

// Module fetches pages of past messages for a room. The backend serves pages
// newest-first; the loader normalizes each page to ascending timestamp order
// before handing it to the orchestrator, whose buffer invariant is ascending.
type Module struct {
	rest   *restclient.Client
	logger types.Logger
}

// Compile-time interface checks
var _ mono.Module = (*Module)(nil)

// NewModule creates a new history loader module.
func NewModule(logger types.Logger, rest *restclient.Client) *Module {
	return &Module{
		rest:   rest,
		logger: logger,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "history"
}

// Start initializes the module.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("History module started")
	return nil
}

// Stop gracefully shuts down the module.
func (m *Module) Stop(_ context.Context) error {
	m.logger.Info("History module stopped")
	return nil
}

// historyPage is the room history endpoint payload.
type historyPage struct {
	RoomID   string         `json:"roomId"`
	Messages []chat.Message `json:"messages"`
	Page     int            `json:"page"`
	Size     int            `json:"size"`
	Total    int            `json:"total"`
}

// LoadHistory returns one page of messages for the room, ascending by
// creation timestamp. Page 0 is the most recent page.
func (m *Module) LoadHistory(ctx context.Context, roomID string, page, pageSize int) ([]chat.Message, error) {
	path := fmt.Sprintf("/api/v1/chat/rooms/%s/messages?page=%d&size=%d", roomID, page, pageSize)

	var resp historyPage
	if err := m.rest.GetJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("failed to load history for room %s: %w", roomID, err)
	}

	normalize(resp.Messages)
	return resp.Messages, nil
}

// normalize reverses a newest-first page in place so messages ascend by
// creation timestamp. Pages already ascending are left untouched.
func normalize(messages []chat.Message) {
	if len(messages) < 2 {
		return
	}
	if !messages[0].CreatedAt.After(messages[len(messages)-1].CreatedAt) {
		return
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
