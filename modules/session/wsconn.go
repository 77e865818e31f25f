package session

import (
	"bytes"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// MessageConn is the subset of a WebSocket connection the STOMP layer needs.
// Both gorilla/websocket and gofiber/contrib/websocket connections satisfy it.
type MessageConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
	Close() error
}

// frameConn adapts a message-oriented WebSocket connection into the stream
// net.Conn the STOMP codec reads and writes.
type frameConn struct {
	ws     MessageConn
	reader io.Reader
}

// NewFrameConn wraps a WebSocket connection as a net.Conn. Each Write emits
// one WebSocket text frame; Reads drain buffered frame data before blocking
// on the next frame.
func NewFrameConn(ws MessageConn) net.Conn {
	return &frameConn{ws: ws}
}

func (c *frameConn) Read(p []byte) (int, error) {
	for {
		if c.reader != nil {
			n, err := c.reader.Read(p)
			if n > 0 {
				return n, nil
			}
			if err != io.EOF {
				return 0, err
			}
			c.reader = nil
		}
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return 0, err
		}
		c.reader = bytes.NewReader(data)
	}
}

func (c *frameConn) Write(p []byte) (int, error) {
	if err := c.ws.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *frameConn) Close() error {
	return c.ws.Close()
}

func (c *frameConn) LocalAddr() net.Addr {
	return c.ws.LocalAddr()
}

func (c *frameConn) RemoteAddr() net.Addr {
	return c.ws.RemoteAddr()
}

func (c *frameConn) SetDeadline(t time.Time) error {
	if err := c.ws.SetReadDeadline(t); err != nil {
		return err
	}
	return c.ws.SetWriteDeadline(t)
}

func (c *frameConn) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}

func (c *frameConn) SetWriteDeadline(t time.Time) error {
	return c.ws.SetWriteDeadline(t)
}
