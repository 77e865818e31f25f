// Package stubbackend is an in-process fake of the chat backend, used by
// integration tests: the REST endpoints the directory and history modules
// consume, plus a WebSocket endpoint speaking just enough server-side STOMP
// for the socket session (CONNECT, SUBSCRIBE, UNSUBSCRIBE, SEND,
// DISCONNECT). It records subscription activity so tests can assert on the
// session's single-subscription invariant.
package stubbackend

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/shop-chat-client/domain/chat"
)

// Backend is the fake chat backend.
type Backend struct {
	app *fiber.App
	ln  net.Listener

	mu            sync.Mutex
	peers         map[string]string          // peerID -> display name
	rooms         map[string]chat.Room       // roomID -> room
	history       map[string][]chat.Message  // roomID -> messages, ascending
	clients       map[*brokerClient]struct{} // live socket clients
	subscribed    map[string]int             // destination -> total SUBSCRIBE frames seen
	openRoomCalls int
	openRoomDelay time.Duration
}

// New creates a stub backend. Call Start to begin listening.
func New() *Backend {
	b := &Backend{
		peers:      make(map[string]string),
		rooms:      make(map[string]chat.Room),
		history:    make(map[string][]chat.Message),
		clients:    make(map[*brokerClient]struct{}),
		subscribed: make(map[string]int),
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})

	app.Get("/api/v1/chat/rooms", b.handleListRooms)
	app.Post("/api/v1/chat/rooms/open", b.handleOpenRoom)
	app.Get("/api/v1/chat/rooms/:id/messages", b.handleHistory)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(b.handleSocket))

	b.app = app
	return b
}

// Start listens on an ephemeral localhost port.
func (b *Backend) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return err
	}
	b.ln = ln
	go func() {
		_ = b.app.Listener(ln)
	}()
	return nil
}

// Stop shuts the backend down.
func (b *Backend) Stop() error {
	return b.app.Shutdown()
}

// URL returns the REST base URL.
func (b *Backend) URL() string {
	return "http://" + b.ln.Addr().String()
}

// SocketURL returns the WebSocket endpoint URL.
func (b *Backend) SocketURL() string {
	return "ws://" + b.ln.Addr().String() + "/ws"
}

// AddPeer registers a peer that open-room requests may target.
func (b *Backend) AddPeer(peerID, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.peers[peerID] = name
}

// AddRoom seeds a room.
func (b *Backend) AddRoom(room chat.Room) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rooms[room.ID] = room
	if room.PeerID != "" {
		b.peers[room.PeerID] = room.PeerName
	}
}

// SeedHistory seeds a room's message history. Messages are stored ascending;
// the history endpoint serves pages newest-first, as the real backend does.
func (b *Backend) SeedHistory(roomID string, msgs []chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.history[roomID] = append(b.history[roomID], msgs...)
}

// SetOpenRoomDelay delays open-room responses, letting tests overlap
// concurrent calls.
func (b *Backend) SetOpenRoomDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openRoomDelay = d
}

// OpenRoomCalls reports how many open-room requests reached the backend.
func (b *Backend) OpenRoomCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.openRoomCalls
}

// SubscribeCount reports the total number of SUBSCRIBE frames seen for the
// room's topic.
func (b *Backend) SubscribeCount(roomID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribed[topicFor(roomID)]
}

// ActiveSubscriptions returns the destinations with a live subscription.
func (b *Backend) ActiveSubscriptions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var dests []string
	for cl := range b.clients {
		dests = append(dests, cl.destinations()...)
	}
	return dests
}

func topicFor(roomID string) string {
	return fmt.Sprintf("/topic/rooms/%s", roomID)
}

// handleListRooms serves GET /api/v1/chat/rooms.
func (b *Backend) handleListRooms(c *fiber.Ctx) error {
	b.mu.Lock()
	rooms := make([]chat.Room, 0, len(b.rooms))
	for _, room := range b.rooms {
		rooms = append(rooms, room)
	}
	b.mu.Unlock()

	return c.JSON(fiber.Map{
		"rooms": rooms,
		"total": len(rooms),
	})
}

// handleOpenRoom serves POST /api/v1/chat/rooms/open. Idempotent: an
// existing room with the peer is returned as-is.
func (b *Backend) handleOpenRoom(c *fiber.Ctx) error {
	var req struct {
		PeerID string `json:"peerId"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	b.mu.Lock()
	delay := b.openRoomDelay
	b.openRoomCalls++
	b.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	name, known := b.peers[req.PeerID]
	if !known {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "peer not found"})
	}

	for _, room := range b.rooms {
		if room.PeerID == req.PeerID {
			return c.JSON(room)
		}
	}

	room := chat.Room{
		ID:       uuid.New().String(),
		PeerID:   req.PeerID,
		PeerName: name,
	}
	b.rooms[room.ID] = room
	return c.JSON(room)
}

// handleHistory serves GET /api/v1/chat/rooms/:id/messages. Pages are served
// newest-first: page 0 holds the most recent messages, each page descending
// by timestamp.
func (b *Backend) handleHistory(c *fiber.Ctx) error {
	roomID := c.Params("id")
	page := c.QueryInt("page", 0)
	size := c.QueryInt("size", 50)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.rooms[roomID]; !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "room not found"})
	}

	msgs := b.history[roomID]
	total := len(msgs)

	// Page window counted back from the tail of the ascending store.
	end := total - page*size
	if end < 0 {
		end = 0
	}
	start := end - size
	if start < 0 {
		start = 0
	}

	pageMsgs := make([]chat.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		pageMsgs = append(pageMsgs, msgs[i])
	}

	return c.JSON(fiber.Map{
		"roomId":   roomID,
		"messages": pageMsgs,
		"page":     page,
		"size":     size,
		"total":    total,
	})
}
