package stubbackend

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/go-stomp/stomp/v3/frame"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"

	"github.com/example/shop-chat-client/domain/chat"
	"github.com/example/shop-chat-client/modules/session"
)

// brokerClient is one connected socket client. Writes are serialized
// through mu because room fan-out happens from other clients' goroutines.
type brokerClient struct {
	mu   sync.Mutex
	wr   *frame.Writer
	user string
	subs map[string]string // subscription id -> destination
}

func (cl *brokerClient) write(f *frame.Frame) error {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	return cl.wr.Write(f)
}

func (cl *brokerClient) destinations() []string {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	dests := make([]string, 0, len(cl.subs))
	for _, dest := range cl.subs {
		dests = append(dests, dest)
	}
	return dests
}

func (cl *brokerClient) subscribe(id, dest string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	cl.subs[id] = dest
}

func (cl *brokerClient) unsubscribe(id string) {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	delete(cl.subs, id)
}

// subscriptionID returns the client's subscription id for the destination,
// or "" when not subscribed.
func (cl *brokerClient) subscriptionID(dest string) string {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	for id, d := range cl.subs {
		if d == dest {
			return id
		}
	}
	return ""
}

// handleSocket runs the STOMP frame loop for one WebSocket connection.
func (b *Backend) handleSocket(ws *websocket.Conn) {
	conn := session.NewFrameConn(ws)
	defer conn.Close()

	cl := &brokerClient{
		wr:   frame.NewWriter(conn),
		subs: make(map[string]string),
	}

	b.mu.Lock()
	b.clients[cl] = struct{}{}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.clients, cl)
		b.mu.Unlock()
	}()

	rd := frame.NewReader(conn)
	for {
		f, err := rd.Read()
		if err != nil {
			return
		}
		if f == nil {
			// heartbeat
			continue
		}

		switch f.Command {
		case frame.CONNECT, frame.STOMP:
			cl.user = strings.TrimPrefix(f.Header.Get("Authorization"), "Bearer ")
			if err := cl.write(frame.New(frame.CONNECTED,
				frame.Version, "1.2",
				frame.HeartBeat, "0,0")); err != nil {
				return
			}

		case frame.SUBSCRIBE:
			id := f.Header.Get(frame.Id)
			dest := f.Header.Get(frame.Destination)
			cl.subscribe(id, dest)
			b.mu.Lock()
			b.subscribed[dest]++
			b.mu.Unlock()

		case frame.UNSUBSCRIBE:
			cl.unsubscribe(f.Header.Get(frame.Id))
			if receipt := f.Header.Get(frame.Receipt); receipt != "" {
				if err := cl.write(frame.New(frame.RECEIPT, frame.ReceiptId, receipt)); err != nil {
					return
				}
			}

		case frame.SEND:
			b.handleSend(cl, f)

		case frame.DISCONNECT:
			if receipt := f.Header.Get(frame.Receipt); receipt != "" {
				_ = cl.write(frame.New(frame.RECEIPT, frame.ReceiptId, receipt))
			}
			return
		}
	}
}

// handleSend stores the message and fans it out to every subscriber of the
// room's topic, including the sender.
func (b *Backend) handleSend(cl *brokerClient, f *frame.Frame) {
	var out session.OutboundMessage
	if err := json.Unmarshal(f.Body, &out); err != nil {
		return
	}

	msg := chat.Message{
		ID:         uuid.New().String(),
		RoomID:     out.RoomID,
		SenderID:   cl.user,
		SenderName: cl.user,
		Type:       out.Type,
		Content:    out.Content,
		FileName:   out.FileName,
		MimeType:   out.MimeType,
		CreatedAt:  time.Now(),
	}

	b.mu.Lock()
	b.history[out.RoomID] = append(b.history[out.RoomID], msg)
	b.mu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.fanOut(topicFor(out.RoomID), body)
}

// Broadcast delivers a message to every subscriber of its room's topic, as
// if another participant had sent it.
func (b *Backend) Broadcast(msg chat.Message) {
	body, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.fanOut(topicFor(msg.RoomID), body)
}

// BroadcastRaw delivers an arbitrary frame body to the room's subscribers.
// Used to exercise malformed-frame tolerance.
func (b *Backend) BroadcastRaw(roomID string, body []byte) {
	b.fanOut(topicFor(roomID), body)
}

func (b *Backend) fanOut(dest string, body []byte) {
	b.mu.Lock()
	clients := make([]*brokerClient, 0, len(b.clients))
	for cl := range b.clients {
		clients = append(clients, cl)
	}
	b.mu.Unlock()

	for _, cl := range clients {
		subID := cl.subscriptionID(dest)
		if subID == "" {
			continue
		}
		f := frame.New(frame.MESSAGE,
			frame.Destination, dest,
			frame.MessageId, uuid.New().String(),
			frame.Subscription, subID,
			frame.ContentType, "application/json")
		f.Body = body
		_ = cl.write(f)
	}
}
