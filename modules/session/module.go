// Package session owns the real-time transport: one STOMP-over-WebSocket
// connection bound to the currently active room. At most one topic
// subscription is live at any time; rebinding to a new room tears the old
// transport down first.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/go-stomp/stomp/v3"
	"github.com/gorilla/websocket"

	"github.com/example/shop-chat-client/auth"
	"github.com/example/shop-chat-client/domain/chat"
)

// unsubscribeReceiptTimeout caps how long an unsubscribe waits for the
// broker's receipt, so teardown against an unresponsive broker stays bounded.
const unsubscribeReceiptTimeout = 3 * time.Second

// Module is the socket session. All state transitions happen under mu; the
// run loop goroutine owns the live transport and is fenced by a bind
// generation so a superseded loop can never touch current state.
type Module struct {
	cfg    Config
	creds  auth.TokenProvider
	logger types.Logger
	dial   func(ctx context.Context, url string) (MessageConn, error)

	mu      sync.Mutex
	state   State
	roomID  string
	conn    *stomp.Conn
	sub     *stomp.Subscription
	handler Handler
	cancel  context.CancelFunc
	gen     uint64
}

// Compile-time interface checks
var _ mono.Module = (*Module)(nil)

// NewModule creates a socket session module.
func NewModule(logger types.Logger, cfg Config, creds auth.TokenProvider) *Module {
	return &Module{
		cfg:    cfg,
		creds:  creds,
		logger: logger,
		dial:   dialWebSocket,
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return "session"
}

// Start initializes the module. The session stays Disconnected until the
// first Bind.
func (m *Module) Start(_ context.Context) error {
	m.logger.Info("Session module started")
	return nil
}

// Stop tears down any live binding.
func (m *Module) Stop(_ context.Context) error {
	m.Unbind()
	m.logger.Info("Session module stopped")
	return nil
}

// SetHandler registers the inbound-message handler. Setting a handler
// replaces the previous registration, so rebinding never produces duplicate
// delivery paths.
func (m *Module) SetHandler(h Handler) {
	m.mu.Lock()
	m.handler = h
	m.mu.Unlock()
}

// State returns the current connection state.
func (m *Module) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Room returns the room ID the session is bound to, or "" when unbound.
func (m *Module) Room() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.roomID
}

// Bind points the session at the given room's topic. Binding to the room the
// session is already bound to is a no-op. Any prior binding is torn down
// before the new transport is opened.
func (m *Module) Bind(roomID string) {
	m.mu.Lock()
	if m.roomID == roomID && m.state != Disconnected {
		m.mu.Unlock()
		return
	}
	sub, conn := m.teardownLocked()
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.roomID = roomID
	m.state = Connecting
	m.mu.Unlock()

	closeTransport(sub, conn)
	go m.run(ctx, gen, roomID)
}

// Unbind tears down the transport and returns the session to Disconnected.
// Safe to call multiple times.
func (m *Module) Unbind() {
	m.mu.Lock()
	sub, conn := m.teardownLocked()
	m.gen++
	m.roomID = ""
	m.mu.Unlock()

	closeTransport(sub, conn)
}

// Send publishes an outgoing chat action. Fire-and-forget: while the session
// is not Connected the payload is dropped, by contract. Delivery
// confirmation is implicit in the server echoing the message back over the
// subscribed topic.
func (m *Module) Send(out OutboundMessage) {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == Connected
	m.mu.Unlock()

	if !connected || conn == nil {
		m.logger.Debug("Dropping send, session not connected", "roomID", out.RoomID)
		return
	}

	body, err := json.Marshal(out)
	if err != nil {
		m.logger.Error("Failed to encode outbound message", "error", err)
		return
	}
	if err := conn.Send(m.cfg.SendDestination, "application/json", body); err != nil {
		m.logger.Warn("Publish failed", "roomID", out.RoomID, "error", err)
	}
}

// teardownLocked cancels the run loop and detaches the transport for the
// caller to close. Callers hold mu.
func (m *Module) teardownLocked() (*stomp.Subscription, *stomp.Conn) {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	sub, conn := m.sub, m.conn
	m.sub = nil
	m.conn = nil
	m.state = Disconnected
	return sub, conn
}

// closeTransport unsubscribes and disconnects. Unsubscribe blocks until the
// broker's receipt arrives, so it must never run under mu.
func closeTransport(sub *stomp.Subscription, conn *stomp.Conn) {
	if sub != nil {
		_ = sub.Unsubscribe()
	}
	if conn != nil {
		conn.MustDisconnect()
	}
}

// run owns the transport for one bind generation: connect, pump, and redial
// with backoff until the context is canceled. The subscription is
// re-established with the same topic and credential after every reconnect.
func (m *Module) run(ctx context.Context, gen uint64, roomID string) {
	delay := m.cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}

	for {
		if ctx.Err() != nil {
			return
		}

		conn, sub, err := m.connect(ctx, roomID)
		if err != nil {
			m.logger.Warn("Socket connect failed", "roomID", roomID, "retryIn", delay, "error", err)
			if !sleepCtx(ctx, delay) {
				return
			}
			delay *= 2
			if m.cfg.MaxReconnectDelay > 0 && delay > m.cfg.MaxReconnectDelay {
				delay = m.cfg.MaxReconnectDelay
			}
			continue
		}

		m.mu.Lock()
		if ctx.Err() != nil || gen != m.gen {
			m.mu.Unlock()
			closeTransport(sub, conn)
			return
		}
		m.conn = conn
		m.sub = sub
		m.state = Connected
		m.mu.Unlock()

		m.logger.Info("Subscribed to room topic", "roomID", roomID)
		delay = m.cfg.ReconnectDelay

		m.pump(ctx, sub)

		m.mu.Lock()
		if gen == m.gen {
			m.conn = nil
			m.sub = nil
			if ctx.Err() == nil {
				m.state = Connecting
			}
		}
		m.mu.Unlock()

		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

// connect dials the WebSocket endpoint, performs the STOMP handshake with
// the bearer credential, and subscribes to the room's topic.
func (m *Module) connect(ctx context.Context, roomID string) (*stomp.Conn, *stomp.Subscription, error) {
	token, err := m.creds.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: credentials: %v", chat.ErrTransport, err)
	}

	ws, err := m.dial(ctx, m.cfg.SocketURL)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: dial: %v", chat.ErrTransport, err)
	}

	opts := []func(*stomp.Conn) error{
		stomp.ConnOpt.Header("Authorization", "Bearer "+token),
		stomp.ConnOpt.UnsubscribeReceiptTimeout(unsubscribeReceiptTimeout),
	}
	if m.cfg.HeartBeat > 0 {
		opts = append(opts, stomp.ConnOpt.HeartBeat(m.cfg.HeartBeat, m.cfg.HeartBeat))
	}

	conn, err := stomp.Connect(NewFrameConn(ws), opts...)
	if err != nil {
		_ = ws.Close()
		return nil, nil, fmt.Errorf("%w: handshake: %v", chat.ErrTransport, err)
	}

	sub, err := conn.Subscribe(fmt.Sprintf(m.cfg.TopicFormat, roomID), stomp.AckAuto)
	if err != nil {
		conn.MustDisconnect()
		return nil, nil, fmt.Errorf("%w: subscribe: %v", chat.ErrTransport, err)
	}

	return conn, sub, nil
}

// pump delivers subscription messages until the subscription or context ends.
func (m *Module) pump(ctx context.Context, sub *stomp.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if msg.Err != nil {
				m.logger.Warn("Subscription closed", "error", msg.Err)
				return
			}
			m.deliver(msg.Body)
		}
	}
}

// deliver parses a frame body and invokes the handler exactly once.
// Malformed frames are dropped without surfacing an error.
func (m *Module) deliver(body []byte) {
	var msg chat.Message
	if err := json.Unmarshal(body, &msg); err != nil || msg.RoomID == "" {
		m.logger.Debug("Dropping malformed frame", "error", chat.ErrMalformedFrame)
		return
	}

	m.mu.Lock()
	handler := m.handler
	m.mu.Unlock()

	if handler != nil {
		handler(msg)
	}
}

// dialWebSocket is the production dialer.
func dialWebSocket(ctx context.Context, url string) (MessageConn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// sleepCtx sleeps for d, returning false if the context ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
