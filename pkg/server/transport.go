package server

import (
	"sync"

	"github.com/gofiber/contrib/websocket"

	"github.com/voxrelay/voxrelay/pkg/relay"
)

// wsTransport adapts a WebSocket connection to relay.Transport.
// The mutex serializes writes: the relay pipeline and the read loop's
// parse-error replies may send concurrently.
type wsTransport struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSTransport(conn *websocket.Conn) *wsTransport {
	return &wsTransport{conn: conn}
}

// SendJSON implements relay.Transport.
func (t *wsTransport) SendJSON(v any) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteJSON(v)
}

// SendBytes implements relay.Transport.
func (t *wsTransport) SendBytes(b []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conn.WriteMessage(websocket.BinaryMessage, b)
}

// Verify wsTransport implements relay.Transport at compile time.
var _ relay.Transport = (*wsTransport)(nil)
