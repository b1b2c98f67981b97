package broadcast

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcpanel/craftd/internal/event"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client is one WebSocket subscriber attached to a server's event room.
type Client struct {
	ServerID string
	Conn     *websocket.Conn
	Send     chan event.Event
	hub      *Hub
}

// Hub fans server events out to WebSocket subscribers, one room per server.
type Hub struct {
	rooms map[string]map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client
	events     chan event.Event

	log *slog.Logger
	mu  sync.RWMutex
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		events:     make(chan event.Event, 256),
		log:        log.With("component", "broadcast"),
	}
}

// NewClient wires a websocket connection into the hub as a subscriber for
// one server.
func (h *Hub) NewClient(serverID string, conn *websocket.Conn) *Client {
	return &Client{
		ServerID: serverID,
		Conn:     conn,
		Send:     make(chan event.Event, 64),
		hub:      h,
	}
}

// Publish queues an event for fan-out. It never blocks; when the hub is
// backed up the event is dropped.
func (h *Hub) Publish(e event.Event) {
	select {
	case h.events <- e:
	default:
		h.log.Debug("event channel full, dropping", "type", string(e.Type), "server", e.ServerID)
	}
}

// RoomSize reports the subscriber count for one server.
func (h *Hub) RoomSize(serverID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[serverID])
}

// Run owns room membership until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case c := <-h.Register:
			h.add(c)
		case c := <-h.Unregister:
			h.remove(c)
		case e := <-h.events:
			h.fanOut(e)
		case <-ctx.Done():
			h.shutdown()
			return
		}
	}
}

func (h *Hub) add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[c.ServerID] == nil {
		h.rooms[c.ServerID] = make(map[*Client]struct{})
	}
	h.rooms[c.ServerID][c] = struct{}{}
	h.log.Debug("subscriber joined", "server", c.ServerID, "room_size", len(h.rooms[c.ServerID]))
}

func (h *Hub) remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[c.ServerID]
	if !ok {
		return
	}
	if _, ok := room[c]; !ok {
		return
	}
	delete(room, c)
	close(c.Send)
	if len(room) == 0 {
		delete(h.rooms, c.ServerID)
	}
	h.log.Debug("subscriber left", "server", c.ServerID, "room_size", len(room))
}

func (h *Hub) fanOut(e event.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[e.ServerID] {
		select {
		case c.Send <- e:
		default:
			h.log.Debug("subscriber send buffer full, dropping", "server", c.ServerID)
		}
	}
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, room := range h.rooms {
		for c := range room {
			close(c.Send)
			_ = c.Conn.Close()
		}
	}
	h.rooms = make(map[string]map[*Client]struct{})
}

// ReadPump drains the connection to keep pong handling alive. Inbound
// payloads are ignored; the console is driven through the HTTP API.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.Conn.Close()
	}()
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump serializes queued events onto the connection and keeps it alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case e, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
