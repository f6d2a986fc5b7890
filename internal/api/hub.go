package api

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-zigbee/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-zigbee/internal/mgmt"
)

// Hub fans management events out to connected WebSocket clients. Each
// client chooses the event types it receives; WSChannelAll selects all of
// them.
type Hub struct {
	logger *logging.Logger

	readLimit int64
	ping      time.Duration
	pongWait  time.Duration

	mu      sync.RWMutex
	clients map[*WSClient]struct{}
	stopped bool
}

var _ mgmt.Observer = (*Hub)(nil)

// NewHub creates a hub using the websocket section for keepalive timings
// and the inbound message limit.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	ping, pong := wsTimings(cfg)
	return &Hub{
		logger:    logger,
		readLimit: int64(cfg.MaxMessageSize),
		ping:      ping,
		pongWait:  pong,
		clients:   make(map[*WSClient]struct{}),
	}
}

// wsTimings returns the ping interval and pong wait, falling back to 30s
// and 10s when unset.
func wsTimings(cfg config.WebSocketConfig) (ping, pong time.Duration) {
	ping, pong = 30*time.Second, 10*time.Second
	if cfg.PingInterval > 0 {
		ping = time.Duration(cfg.PingInterval) * time.Second
	}
	if cfg.PongTimeout > 0 {
		pong = time.Duration(cfg.PongTimeout) * time.Second
	}
	return ping, pong
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	h.stopped = true
	clients := h.clients
	h.clients = make(map[*WSClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.shutdown()
	}
}

// Register adds a client. A client registered after Run has returned is
// shut down straight away.
func (h *Hub) Register(c *WSClient) {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		c.shutdown()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug("websocket client connected", "user_id", c.userID, "clients", n)
}

// Unregister removes a client and closes its outbound queue.
func (h *Hub) Unregister(c *WSClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.closeQueue()
	h.logger.Debug("websocket client disconnected", "user_id", c.userID, "clients", n)
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notify implements mgmt.Observer. The event is encoded once and queued
// on every client whose filter matches its type; a client with a full
// queue misses the event.
func (h *Hub) Notify(_ context.Context, ev mgmt.Event) {
	at := ev.Time
	if at.IsZero() {
		at = time.Now()
	}
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: ev.Type,
		Timestamp: at.UTC().Format(time.RFC3339),
		Payload:   ev,
	})
	if err != nil {
		h.logger.Error("encoding websocket event", "type", ev.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		if c.filter.matches(ev.Type) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.logger.Debug("websocket client lagging, event dropped", "user_id", c.userID, "type", ev.Type)
		}
	}
}

// eventFilter is the set of event types a client receives.
type eventFilter struct {
	mu    sync.RWMutex
	types map[string]struct{}
}

func (f *eventFilter) update(types []string, on bool) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.types == nil {
		f.types = make(map[string]struct{})
	}
	for _, t := range types {
		if on {
			f.types[t] = struct{}{}
		} else {
			delete(f.types, t)
		}
	}

	active := make([]string, 0, len(f.types))
	for t := range f.types {
		active = append(active, t)
	}
	sort.Strings(active)
	return active
}

func (f *eventFilter) matches(eventType string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.types[WSChannelAll]; ok {
		return true
	}
	_, ok := f.types[eventType]
	return ok
}
