package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/gray-logic-zigbee/internal/auth"
)

// Message types on the event stream.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// WSChannelAll subscribes a client to every management event.
	WSChannelAll = "*"

	wsSendBufferSize = 256
)

// WSMessage is the frame written to clients. Clients send the same shape
// for subscribe, unsubscribe and ping.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload lists event types, e.g. "channel.changed" or "*".
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// wsControl is an inbound frame with its payload left undecoded until the
// type is known.
type wsControl struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are checked by the CORS middleware.
	CheckOrigin: func(*http.Request) bool { return true },
}

// WSClient is one connection on the event stream.
type WSClient struct {
	hub    *Hub
	conn   *websocket.Conn
	filter eventFilter

	userID string
	role   auth.Role

	mu     sync.Mutex
	queue  chan []byte
	closed bool
}

func newWSClient(hub *Hub, conn *websocket.Conn, userID string, role auth.Role) *WSClient {
	return &WSClient{
		hub:    hub,
		conn:   conn,
		userID: userID,
		role:   role,
		queue:  make(chan []byte, wsSendBufferSize),
	}
}

// enqueue hands data to the write loop without blocking. It reports false
// when the queue is full or already closed.
func (c *WSClient) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.queue <- data:
		return true
	default:
		return false
	}
}

// closeQueue ends the write loop. Safe to call more than once.
func (c *WSClient) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.queue)
	}
}

func (c *WSClient) shutdown() {
	c.closeQueue()
	if c.conn != nil {
		c.conn.Close() //nolint:errcheck // Connection is being discarded
	}
}

// handleWebSocket upgrades to the event stream. When auth is enabled the
// caller must present a ticket from POST /auth/ws-ticket, since browsers
// cannot set an Authorization header on the upgrade request.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity := ticketEntry{role: auth.RoleOwner}
	if s.authEnabled() {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" {
			writeProblem(w, r, http.StatusUnauthorized, "ticket query parameter is required")
			return
		}
		entry, ok := s.tickets.consume(ticket)
		if !ok {
			writeProblem(w, r, http.StatusUnauthorized, "invalid or expired ticket")
			return
		}
		identity = entry
	}
	if s.hub == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "event stream not running")
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := newWSClient(s.hub, conn, identity.userID, identity.role)
	s.hub.Register(client)

	go client.writeLoop()
	go client.readLoop()
}

func (c *WSClient) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close() //nolint:errcheck // Connection is being discarded
	}()

	if c.hub.readLimit > 0 {
		c.conn.SetReadLimit(c.hub.readLimit)
	}
	keepalive := func() error {
		return c.conn.SetReadDeadline(time.Now().Add(c.hub.ping + c.hub.pongWait))
	}
	_ = keepalive() //nolint:errcheck // A failed deadline surfaces as a read error
	c.conn.SetPongHandler(func(string) error { return keepalive() })

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "user_id", c.userID, "error", err)
			}
			return
		}
		// Application pings count as liveness for clients that never
		// answer protocol pings.
		_ = keepalive() //nolint:errcheck // A failed deadline surfaces as a read error
		c.handleControl(data)
	}
}

func (c *WSClient) writeLoop() {
	ticker := time.NewTicker(c.hub.ping)
	defer func() {
		ticker.Stop()
		c.conn.Close() //nolint:errcheck // Connection is being discarded
	}()

	for {
		select {
		case data, ok := <-c.queue:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.pongWait)) //nolint:errcheck // Write error is checked below
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck // Peer may already be gone
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "stream closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.pongWait)) //nolint:errcheck // Write error is checked below
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) handleControl(data []byte) {
	var ctl wsControl
	if err := json.Unmarshal(data, &ctl); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch ctl.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		var sub WSSubscribePayload
		if len(ctl.Payload) == 0 || json.Unmarshal(ctl.Payload, &sub) != nil {
			c.reply(ctl.ID, WSTypeError, map[string]string{"message": "invalid " + ctl.Type + " payload"})
			return
		}
		on := ctl.Type == WSTypeSubscribe
		active := c.filter.update(sub.Channels, on)

		key := "subscribed"
		if !on {
			key = "unsubscribed"
		}
		c.hub.logger.Debug("websocket filter updated",
			"user_id", c.userID,
			"role", c.role,
			key, sub.Channels)
		c.reply(ctl.ID, WSTypeResponse, map[string]any{key: sub.Channels, "active": active})

	case WSTypePing:
		c.reply(ctl.ID, WSTypePong, nil)

	default:
		c.reply(ctl.ID, WSTypeError, map[string]string{"message": "unknown message type: " + ctl.Type})
	}
}

func (c *WSClient) reply(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.enqueue(data)
}
