// Package feed streams moderation events to connected admin dashboards
// over WebSocket. One goroutine per connection; the hub fans each event
// out to every subscriber and drops connections whose writes fail.
package feed

import (
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/pondworks/comments/internal/metrics"
)

// writeTimeout bounds a single frame write so one stalled dashboard
// cannot block the broadcast loop.
const writeTimeout = 5 * time.Second

// conn is one subscribed admin connection with serialized writes.
type conn struct {
	nc      net.Conn
	writeMu sync.Mutex
}

func (c *conn) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))
	return wsutil.WriteServerMessage(c.nc, ws.OpText, data)
}

// Hub is the admin event feed. Safe for concurrent use.
type Hub struct {
	mu    sync.Mutex
	conns map[*conn]bool
}

func NewHub() *Hub {
	return &Hub{conns: make(map[*conn]bool)}
}

// Upgrade turns an authenticated HTTP request into a feed subscription.
// Auth is the caller's job; the hub trusts every request it is handed.
func (h *Hub) Upgrade(w http.ResponseWriter, r *http.Request) error {
	nc, _, _, err := ws.UpgradeHTTP(r, w)
	if err != nil {
		return err
	}

	c := &conn{nc: nc}
	h.mu.Lock()
	h.conns[c] = true
	n := len(h.conns)
	h.mu.Unlock()
	metrics.FeedConnections.Set(float64(n))
	log.Printf("[feed] admin connected (%d active)", n)

	// Reader goroutine: the feed is write-only, but we must consume
	// control frames (ping, close) and detect disconnects.
	go func() {
		defer h.remove(c)
		for {
			if _, _, err := wsutil.ReadClientData(nc); err != nil {
				return
			}
		}
	}()
	return nil
}

// Broadcast sends one JSON-encoded event to all subscribers. Failed
// writes drop the subscriber.
func (h *Hub) Broadcast(data []byte) {
	h.mu.Lock()
	targets := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.Unlock()

	for _, c := range targets {
		if err := c.write(data); err != nil {
			log.Printf("[feed] write failed, dropping subscriber: %v", err)
			h.remove(c)
		}
	}
}

// Close disconnects all subscribers.
func (h *Hub) Close() {
	h.mu.Lock()
	for c := range h.conns {
		c.nc.Close()
	}
	h.conns = make(map[*conn]bool)
	h.mu.Unlock()
	metrics.FeedConnections.Set(0)
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	if !h.conns[c] {
		h.mu.Unlock()
		return
	}
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()

	c.nc.Close()
	metrics.FeedConnections.Set(float64(n))
	log.Printf("[feed] admin disconnected (%d active)", n)
}
