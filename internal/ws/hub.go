package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dinein-pos/api/internal/metrics"
	"github.com/google/uuid"
)

// Event types pushed to floor and kitchen screens.
const (
	EventOrderCreated       = "order.created"
	EventOrderUpdated       = "order.updated"
	EventOrderStatusChanged = "order.status_changed"
	EventOrderDeleted       = "order.deleted"
	EventSessionUpdated     = "session.updated"
	EventPaymentRecorded    = "payment.recorded"
)

// Event is the envelope written to every subscribed client.
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ownerEvent struct {
	ownerID uuid.UUID
	event   Event
}

// Hub fans events out to the clients of one restaurant owner. Rooms are keyed
// by owner ID; staff connections join their owner's room.
type Hub struct {
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	broadcast  chan ownerEvent

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan ownerEvent, 256),
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// closes every client's send channel.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.ownerID] == nil {
				h.rooms[client.ownerID] = make(map[*Client]bool)
			}
			h.rooms[client.ownerID][client] = true
			h.mu.Unlock()
			metrics.WSClients.Inc()

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeLocked(client)
			h.mu.Unlock()

		case ev := <-h.broadcast:
			message, err := json.Marshal(ev.event)
			if err != nil {
				slog.Error("marshal ws event", "type", ev.event.Type, "error", err)
				continue
			}
			h.mu.Lock()
			for client := range h.rooms[ev.ownerID] {
				select {
				case client.send <- message:
				default:
					// slow consumer
					h.removeLocked(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	clients, ok := h.rooms[client.ownerID]
	if !ok {
		return
	}
	if _, exists := clients[client]; !exists {
		return
	}
	delete(clients, client)
	close(client.send)
	metrics.WSClients.Dec()
	if len(clients) == 0 {
		delete(h.rooms, client.ownerID)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.removeLocked(client)
		}
	}
}

// ClientCount returns the number of clients in an owner's room.
func (h *Hub) ClientCount(ownerID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[ownerID])
}

// BroadcastToOwner queues an event for every client of ownerID. It never
// blocks the caller: when the queue is full the event is dropped.
func (h *Hub) BroadcastToOwner(ownerID uuid.UUID, eventType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws payload", "type", eventType, "error", err)
		return
	}
	select {
	case h.broadcast <- ownerEvent{ownerID: ownerID, event: Event{Type: eventType, Payload: raw}}:
	default:
		slog.Warn("ws broadcast queue full, dropping event", "type", eventType, "owner_id", ownerID)
	}
}
