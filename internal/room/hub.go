package room

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	maxMessageSize = 64 * 1024
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
	sendBuffer     = 64
)

// Hub tracks the WebSocket participants of every room on this instance and
// delivers broker events to them.
type Hub struct {
	mu       sync.RWMutex
	rooms    map[string]map[*client]struct{}
	broker   Broker
	upgrader websocket.Upgrader
}

// NewHub returns a hub with no broker bound. Client frames are dropped
// until Bind is called.
func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Bind sets the broker that client events are published through.
func (h *Hub) Bind(b Broker) {
	h.mu.Lock()
	h.broker = b
	h.mu.Unlock()
}

// ServeWS upgrades the request and serves one participant of roomID until
// the connection closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, roomID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "room_id", roomID, "error", err)
		return
	}

	c := &client{
		id:     uuid.NewString(),
		roomID: roomID,
		conn:   conn,
		hub:    h,
		send:   make(chan []byte, sendBuffer),
	}
	h.register(c)
	slog.Debug("room client connected", "room_id", roomID, "client", c.id)

	go c.writePump()
	c.readPump(r.Context())
	h.unregister(c)
	slog.Debug("room client disconnected", "room_id", roomID, "client", c.id)
}

// Deliver sends ev to every participant of roomID connected here.
func (h *Hub) Deliver(roomID string, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal room event failed", "room_id", roomID, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[roomID] {
		c.enqueue(data)
	}
}

// Clients returns the number of participants of roomID on this instance.
func (h *Hub) Clients(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[c.roomID]
	if !ok {
		members = make(map[*client]struct{})
		h.rooms[c.roomID] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[c.roomID]
	if _, ok := members[c]; !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, c.roomID)
	}
	close(c.send)
}

func (h *Hub) publish(ctx context.Context, roomID string, ev Event) {
	h.mu.RLock()
	b := h.broker
	h.mu.RUnlock()

	if b == nil {
		slog.Warn("room event dropped, no broker bound", "room_id", roomID, "type", ev.Type)
		return
	}
	if err := b.Publish(ctx, roomID, ev); err != nil {
		slog.Error("publishing room event failed", "room_id", roomID, "type", ev.Type, "error", err)
	}
}

// client is one WebSocket participant.
type client struct {
	id     string
	roomID string
	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte
}

// enqueue must be called with the hub lock held so send is not closed underneath.
func (c *client) enqueue(data []byte) {
	select {
	case c.send <- data:
	default:
		slog.Warn("room client send buffer full, dropping event", "client", c.id)
	}
}

func (c *client) readPump(ctx context.Context) {
	defer c.conn.Close()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("room websocket read error", "client", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		c.handleFrame(ctx, data)
	}
}

func (c *client) handleFrame(ctx context.Context, data []byte) {
	var ev ClientEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		c.reply(Event{Type: TypeError, Message: "malformed event: " + err.Error()})
		return
	}
	if ev.RoomID != "" && ev.RoomID != c.roomID {
		c.reply(Event{Type: TypeError, Message: "event addressed to another room"})
		return
	}

	out, ok := Respond(ev)
	if !ok {
		c.reply(Event{Type: TypeError, Message: "unknown event type: " + ev.Type})
		return
	}
	c.hub.publish(ctx, c.roomID, out)
}

// reply sends ev to this client only.
func (c *client) reply(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.rooms[c.roomID][c]; ok {
		c.enqueue(data)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
