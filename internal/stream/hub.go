// Package stream fans the latest market snapshot out to WebSocket
// subscribers. Delivery is whole-snapshot on change: each subscriber's
// loop polls the published snapshot and pushes it only when it differs
// from the last value that subscriber received, so a reconnecting client
// gets full state on its first tick and absence of change costs nothing.
package stream

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"upstox-chainwatch/internal/models"
)

// SnapshotSource is the read side the hub polls.
type SnapshotSource interface {
	Latest() *models.MarketSnapshot
}

// HubConfig holds configuration for the broadcast hub.
type HubConfig struct {
	// PollInterval is how often each subscriber loop compares the
	// current snapshot against its last-sent value.
	PollInterval time.Duration
	// WriteTimeout bounds a single snapshot write; an expired write is a
	// disconnect.
	WriteTimeout time.Duration
}

// DefaultHubConfig returns the default hub configuration.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		PollInterval: 500 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
	}
}

// Hub manages subscriber connections and their delivery loops.
type Hub struct {
	cfg    HubConfig
	source SnapshotSource
	logger zerolog.Logger

	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// Metrics
	sent    uint64
	dropped uint64
}

// NewHub creates a broadcast hub.
func NewHub(cfg HubConfig, source SnapshotSource, logger zerolog.Logger) *Hub {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultHubConfig().PollInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultHubConfig().WriteTimeout
	}
	return &Hub{
		cfg:    cfg,
		source: source,
		logger: logger.With().Str("component", "stream").Logger(),
		upgrader: websocket.Upgrader{
			// The dashboard is served cross-origin in development.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
	}
}

// ServeWS upgrades an HTTP request and runs the subscriber until it
// disconnects or a send fails.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.add(conn)
	h.logger.Info().Str("remote", conn.RemoteAddr().String()).Int("subscribers", h.SubscriberCount()).Msg("subscriber connected")

	done := make(chan struct{})
	go h.readUntilClose(conn, done)
	go h.deliver(conn, done)
}

func (h *Hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
	conn.Close()
}

// readUntilClose drains inbound frames. The hub never reads subscriber
// data; the pump exists only to notice the peer going away.
func (h *Hub) readUntilClose(conn *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// deliver is the per-subscriber send loop.
func (h *Hub) deliver(conn *websocket.Conn, done <-chan struct{}) {
	defer func() {
		h.remove(conn)
		h.logger.Info().Str("remote", conn.RemoteAddr().String()).Msg("subscriber disconnected")
	}()

	ticker := time.NewTicker(h.cfg.PollInterval)
	defer ticker.Stop()

	var lastSent *models.MarketSnapshot
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			current := h.source.Latest()
			if current == nil || current.Equal(lastSent) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteJSON(current); err != nil {
				// A failed send is a disconnect.
				h.mu.Lock()
				h.dropped++
				h.mu.Unlock()
				return
			}
			lastSent = current
			h.mu.Lock()
			h.sent++
			h.mu.Unlock()
		}
	}
}

// SubscriberCount returns the number of live connections.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Metrics returns delivery counters.
func (h *Hub) Metrics() (sent, dropped uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sent, h.dropped
}

// Close terminates every subscriber connection.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*websocket.Conn]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
