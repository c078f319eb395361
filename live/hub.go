package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// Message types pushed to subscribers.
const (
	TypeTournamentUpdated   = "TOURNAMENT_UPDATED"
	TypeRegistrationUpdated = "REGISTRATION_UPDATED"
	TypeLeaderboardUpdated  = "LEADERBOARD_UPDATED"
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

func TournamentRoom(id uuid.UUID) string {
	return "tournament_" + id.String()
}

func LeaderboardRoom(game string) string {
	return "leaderboard_" + game
}

// Hub fans messages out to the websocket clients of a room. Register and Unregister
// are served by Run; BroadcastToRoom may be called from any goroutine.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client
	rooms      map[string]map[*Client]bool
	mu         sync.RWMutex
	logger     *slog.Logger
	done       chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

// Run serves registrations until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			size := len(h.rooms[client.Room])
			h.mu.Unlock()
			h.logger.Debug("websocket client registered", slog.String("room", client.Room), slog.Int("clients", size))

		case client := <-h.Unregister:
			h.mu.Lock()
			h.remove(client)
			h.mu.Unlock()

		case <-ctx.Done():
			h.mu.Lock()
			for _, clients := range h.rooms {
				for client := range clients {
					h.remove(client)
				}
			}
			h.mu.Unlock()
			return
		}
	}
}

// Join subscribes the client. It reports false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Leave unsubscribes the client.
func (h *Hub) Leave(client *Client) {
	select {
	case h.Unregister <- client:
	case <-h.done:
	}
}

// remove must be called with h.mu held.
func (h *Hub) remove(client *Client) {
	clients, ok := h.rooms[client.Room]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}
	client.close()
	delete(clients, client)
	if len(clients) == 0 {
		delete(h.rooms, client.Room)
		h.logger.Debug("websocket room closed", slog.String("room", client.Room))
	}
}

// RoomSize returns the number of clients subscribed to the room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom sends the JSON encoding of message to every client in the room.
// Clients whose send buffer is full miss the message.
func (h *Hub) BroadcastToRoom(roomID string, message interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	roomClients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to marshal websocket message", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range roomClients {
		if !client.trySend(messageBytes) {
			h.logger.Warn("websocket client send buffer full, skipping", slog.String("room", roomID))
		}
	}
}
