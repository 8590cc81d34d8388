package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is the envelope pushed to subscribers. Type is an event name such
// as "STANDINGS_UPDATED", "BRACKET_SEEDED" or "MATCH_COMPLETED"; Room is the
// tournament the event belongs to.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	Room    string      `json:"room,omitempty"`
}

// Hub fans standings and bracket events out to websocket subscribers,
// grouped into per-tournament rooms.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	logger *slog.Logger
	rooms  map[string]map[*Client]bool
	mu     sync.RWMutex
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		logger:     logger,
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.room]; !ok {
				h.rooms[client.room] = make(map[*Client]bool)
			}
			h.rooms[client.room][client] = true
			h.mu.Unlock()
			h.logger.Debug("websocket client joined", slog.String("room", client.room))

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.room]; ok {
				if _, registered := clients[client]; registered {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom delivers an event to every subscriber of a room. Slow
// clients are dropped rather than allowed to block the broadcast.
func (h *Hub) BroadcastToRoom(room string, messageType string, payload interface{}) {
	data, err := json.Marshal(Message{Type: messageType, Payload: payload, Room: room})
	if err != nil {
		h.logger.Error("failed to marshal websocket message", slog.Any("error", err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[room] {
		select {
		case client.send <- data:
		default:
			go func(c *Client) { h.Unregister <- c }(client)
		}
	}
}
