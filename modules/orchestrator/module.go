// Package orchestrator coordinates the room directory, history loader and
// socket session: it owns the active room, the ordered message buffer, the
// optimistic local echo for outgoing messages, and the reordering of the
// room list as last-message caches change.
package orchestrator

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	gonanoid "github.com/jaevor/go-nanoid"

	"github.com/example/shop-chat-client/domain/chat"
	"github.com/example/shop-chat-client/events"
	"github.com/example/shop-chat-client/modules/directory"
	"github.com/example/shop-chat-client/modules/session"
)

// localIDPrefix marks optimistic message IDs until the server-assigned copy
// arrives.
const localIDPrefix = "local-"

// Module is the chat orchestrator. Shared state is mutated only under mu;
// inbound delivery arrives on the session's pump goroutine and takes the
// same lock.
type Module struct {
	dir      RoomDirectory
	hist     HistoryLoader
	sess     RoomSession
	logger   types.Logger
	eventBus mono.EventBus

	userID   string
	username string
	pageSize int

	newLocalID func() string
	now        func() time.Time

	mu         sync.Mutex
	rooms      []chat.Room
	activeRoom string
	buffer     []chat.Message
	selectSeq  uint64
}

// Compile-time interface checks
var (
	_ mono.Module              = (*Module)(nil)
	_ mono.EventBusAwareModule = (*Module)(nil)
	_ mono.EventEmitterModule  = (*Module)(nil)
)

// NewModule creates the chat orchestrator.
func NewModule(logger types.Logger, dir RoomDirectory, hist HistoryLoader, sess RoomSession, userID, username string, pageSize int) *Module {
	gen, err := gonanoid.Standard(16)
	if err != nil {
		panic("orchestrator: nanoid generator: " + err.Error())
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &Module{
		dir:        dir,
		hist:       hist,
		sess:       sess,
		logger:     logger,
		userID:     userID,
		username:   username,
		pageSize:   pageSize,
		newLocalID: func() string { return localIDPrefix + gen() },
		now:        time.Now,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "chat"
}

// SetEventBus receives the EventBus from the framework.
func (m *Module) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module can emit.
func (m *Module) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageReceivedV1.ToBase(),
		events.RoomListChangedV1.ToBase(),
	}
}

// Start registers the inbound handler with the session.
func (m *Module) Start(_ context.Context) error {
	m.sess.SetHandler(m.handleInbound)
	m.logger.Info("Chat orchestrator started")
	return nil
}

// Stop unbinds the session.
func (m *Module) Stop(_ context.Context) error {
	m.sess.Unbind()
	m.logger.Info("Chat orchestrator stopped")
	return nil
}

// Refresh reloads the room directory. A failed load degrades to an empty
// list rather than an error; a transient failure must not block navigation.
func (m *Module) Refresh(ctx context.Context) {
	rooms, err := m.dir.ListRooms(ctx)
	if err != nil {
		m.logger.Warn("Room list unavailable", "error", err)
		rooms = nil
	}

	m.mu.Lock()
	m.rooms = rooms
	directory.SortRooms(m.rooms)
	m.mu.Unlock()
}

// SelectRoom makes the room active: clears the buffer, loads the latest
// history page, and rebinds the session to the room's topic. Selecting the
// already-active room is a no-op. A history response that arrives after the
// user has moved on to another room is discarded.
func (m *Module) SelectRoom(ctx context.Context, room chat.Room) {
	m.mu.Lock()
	if m.activeRoom == room.ID {
		m.mu.Unlock()
		return
	}
	m.selectSeq++
	seq := m.selectSeq
	m.activeRoom = room.ID
	m.buffer = nil
	m.mu.Unlock()

	msgs, err := m.hist.LoadHistory(ctx, room.ID, 0, m.pageSize)
	if err != nil {
		m.logger.Warn("History unavailable, starting empty", "roomID", room.ID, "error", err)
		msgs = nil
	}

	// Check and bind under the same lock: a selection superseded while its
	// history was loading must neither install its buffer nor bind, even if
	// its goroutine is scheduled after the newer selection finished.
	m.mu.Lock()
	if m.selectSeq == seq && m.activeRoom == room.ID {
		m.buffer = msgs
		m.sess.Bind(room.ID)
	}
	m.mu.Unlock()
}

// SendText appends an optimistic local echo and publishes the message.
// Blank content or no active room is a no-op.
func (m *Module) SendText(content string) {
	if strings.TrimSpace(content) == "" {
		return
	}

	m.mu.Lock()
	if m.activeRoom == "" {
		m.mu.Unlock()
		return
	}
	roomID := m.activeRoom
	msg := chat.Message{
		ID:         m.newLocalID(),
		RoomID:     roomID,
		SenderID:   m.userID,
		SenderName: m.username,
		Type:       chat.MessageText,
		Content:    content,
		CreatedAt:  m.now(),
		Pending:    true,
	}
	m.buffer = append(m.buffer, msg)
	m.touchRoomLocked(msg)
	m.mu.Unlock()

	m.sess.Send(session.OutboundMessage{
		RoomID:  roomID,
		Type:    chat.MessageText,
		Content: content,
	})
}

// SendImage reads the file, encodes it as a base64 data URI, appends an
// optimistic pending echo, and publishes the message. Like text sends, the
// publish is dropped while the session is disconnected.
func (m *Module) SendImage(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image file: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	fileName := filepath.Base(path)
	content := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	m.mu.Lock()
	if m.activeRoom == "" {
		m.mu.Unlock()
		return chat.ErrNoActiveRoom
	}
	roomID := m.activeRoom
	msg := chat.Message{
		ID:         m.newLocalID(),
		RoomID:     roomID,
		SenderID:   m.userID,
		SenderName: m.username,
		Type:       chat.MessageImage,
		Content:    content,
		FileName:   fileName,
		MimeType:   mimeType,
		CreatedAt:  m.now(),
		Pending:    true,
	}
	m.buffer = append(m.buffer, msg)
	m.touchRoomLocked(msg)
	m.mu.Unlock()

	m.sess.Send(session.OutboundMessage{
		RoomID:   roomID,
		Type:     chat.MessageImage,
		Content:  content,
		FileName: fileName,
		MimeType: mimeType,
	})
	return nil
}

// OpenNewRoom opens (or retrieves) the room with the given peer, merges it
// into the room list, and selects it.
func (m *Module) OpenNewRoom(ctx context.Context, peerID string) (chat.Room, error) {
	room, err := m.dir.OpenRoom(ctx, peerID)
	if err != nil {
		return chat.Room{}, err
	}

	m.mu.Lock()
	found := false
	for i := range m.rooms {
		if m.rooms[i].ID == room.ID {
			m.rooms[i] = room
			found = true
			break
		}
	}
	if !found {
		m.rooms = append(m.rooms, room)
	}
	directory.SortRooms(m.rooms)
	m.mu.Unlock()

	m.SelectRoom(ctx, room)
	return room, nil
}

// Rooms returns a snapshot of the ordered room list.
func (m *Module) Rooms() []chat.Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	rooms := make([]chat.Room, len(m.rooms))
	copy(rooms, m.rooms)
	return rooms
}

// Messages returns a snapshot of the active room's message buffer.
func (m *Module) Messages() []chat.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := make([]chat.Message, len(m.buffer))
	copy(msgs, m.buffer)
	return msgs
}

// ActiveRoom returns the active room ID, or "" when none is selected.
func (m *Module) ActiveRoom() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeRoom
}

// handleInbound receives authoritative broadcasts from the session. A
// broadcast that matches a pending optimistic entry replaces it in place
// (the echoed copy of our own send); anything else for the active room is
// appended. The room's last-message cache updates either way, so background
// rooms reorder too.
func (m *Module) handleInbound(msg chat.Message) {
	m.mu.Lock()
	active := msg.RoomID == m.activeRoom
	if active {
		if i := m.matchPendingLocked(msg); i >= 0 {
			m.buffer[i] = msg
			m.restoreOrderLocked(i)
		} else {
			m.buffer = append(m.buffer, msg)
		}
	}
	m.touchRoomLocked(msg)
	roomCount := len(m.rooms)
	m.mu.Unlock()

	m.publish(msg, active, roomCount)
}

// matchPendingLocked finds the oldest pending optimistic entry the broadcast
// confirms. The wire format carries no client-assigned ID, so correlation is
// by sender and content (file name for images). Callers hold mu.
func (m *Module) matchPendingLocked(msg chat.Message) int {
	for i := range m.buffer {
		b := &m.buffer[i]
		if !b.Pending || b.SenderID != msg.SenderID || b.Type != msg.Type {
			continue
		}
		if b.Type == chat.MessageImage {
			if b.FileName == msg.FileName {
				return i
			}
			continue
		}
		if b.Content == msg.Content {
			return i
		}
	}
	return -1
}

// restoreOrderLocked re-positions the entry at i after a replacement. The
// authoritative echo carries the server timestamp, which can postdate peer
// messages appended after the optimistic entry (or, under clock skew, predate
// what came before it), so the entry bubbles until the buffer is
// non-decreasing again. Callers hold mu.
func (m *Module) restoreOrderLocked(i int) {
	for i+1 < len(m.buffer) && m.buffer[i+1].CreatedAt.Before(m.buffer[i].CreatedAt) {
		m.buffer[i], m.buffer[i+1] = m.buffer[i+1], m.buffer[i]
		i++
	}
	for i > 0 && m.buffer[i].CreatedAt.Before(m.buffer[i-1].CreatedAt) {
		m.buffer[i], m.buffer[i-1] = m.buffer[i-1], m.buffer[i]
		i--
	}
}

// touchRoomLocked updates the room's last-message cache and resorts the
// list. Messages for rooms the directory has not seen yet (a peer opening a
// conversation) create a minimal room entry. Callers hold mu.
func (m *Module) touchRoomLocked(msg chat.Message) {
	preview := msg.Content
	if msg.Type == chat.MessageImage {
		preview = msg.FileName
	}
	last := &chat.LastMessage{
		SenderID: msg.SenderID,
		Content:  preview,
		SentAt:   msg.CreatedAt,
	}

	found := false
	for i := range m.rooms {
		if m.rooms[i].ID == msg.RoomID {
			m.rooms[i].LastMessage = last
			found = true
			break
		}
	}
	if !found {
		m.rooms = append(m.rooms, chat.Room{
			ID:          msg.RoomID,
			PeerID:      msg.SenderID,
			PeerName:    msg.SenderName,
			LastMessage: last,
		})
	}
	directory.SortRooms(m.rooms)
}

// publish emits activity events. The bus is nil in unit tests.
func (m *Module) publish(msg chat.Message, active bool, roomCount int) {
	if m.eventBus == nil {
		return
	}

	if err := events.MessageReceivedV1.Publish(m.eventBus, events.MessageReceivedEvent{
		Message: msg,
		Active:  active,
	}, nil); err != nil {
		m.logger.Warn("Failed to publish MessageReceived event", "error", err)
	}

	if err := events.RoomListChangedV1.Publish(m.eventBus, events.RoomListChangedEvent{
		RoomID:    msg.RoomID,
		RoomCount: roomCount,
		UpdatedAt: msg.CreatedAt,
	}, nil); err != nil {
		m.logger.Warn("Failed to publish RoomListChanged event", "error", err)
	}
}
