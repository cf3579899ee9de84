package main

import (
	"sync"

	"github.com/gorilla/websocket"
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, send: make(chan []byte, 64), done: make(chan struct{})}
}

// close leaves send open so a concurrent enqueue never hits a closed channel.
func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *wsClient) enqueue(b []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Hub tracks connected dashboards. A subscriber that cannot keep up is
// dropped rather than allowed to stall the broadcast.
type Hub struct {
	mu   sync.Mutex
	subs map[*wsClient]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*wsClient]struct{})}
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.subs[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.subs, c)
	h.mu.Unlock()
}

func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(b []byte) {
	h.mu.Lock()
	for c := range h.subs {
		if ok := c.enqueue(b); !ok {
			c.close()
			delete(h.subs, c)
		}
	}
	h.mu.Unlock()
}
