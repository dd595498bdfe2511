package party

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// wsConn wraps one client socket. The mutex serializes writes; gorilla
// connections allow only a single concurrent writer.
type wsConn struct {
	id     string
	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{id: uuid.NewString(), conn: conn}
}

func (c *wsConn) send(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) sendError(reason, message string) {
	payload := map[string]any{
		"action": actionError,
		"reason": reason,
	}
	if message != "" {
		payload["message"] = message
	}
	if err := c.send(payload); err != nil {
		log.Debug().Err(err).Str("conn", c.id).Str("reason", reason).Msg("error send failed")
	}
}

// close is idempotent.
func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	_ = c.conn.Close()
}

func (c *wsConn) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}
