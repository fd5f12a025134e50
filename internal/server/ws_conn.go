package server

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
)

// MaxWebSocketMessageSize bounds a single inbound frame. Generous for JSON
// command payloads, tight enough to keep a malicious client from exhausting
// memory with one oversized message.
const MaxWebSocketMessageSize = 4096

// wsConn wraps one gorilla/websocket connection as a session.Conn: every
// inbound and outbound message is exactly one JSON object, never a
// newline-delimited stream (§6.2).
type wsConn struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	closeMu sync.Mutex
	closed  bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	conn.SetReadLimit(MaxWebSocketMessageSize)
	return &wsConn{conn: conn}
}

// Send marshals frame as JSON and writes it as a single text message.
// Writes are serialized because multiple goroutines (the dispatch loop,
// broadcast fan-out, the takeover forced-close path) can all write to the
// same connection.
func (c *wsConn) Send(frame map[string]any) error {
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	c.closeMu.Lock()
	c.closed = true
	c.closeMu.Unlock()
	return c.conn.Close()
}

func (c *wsConn) IsOpen() bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	return !c.closed
}

func (c *wsConn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// readFrame blocks for the next inbound message and returns its raw bytes,
// one JSON object per WebSocket message.
func (c *wsConn) readFrame() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}
