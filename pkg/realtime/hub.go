// Package realtime delivers named events to websocket clients grouped into
// rooms. Every frame on the wire is an Envelope.
package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func NewEnvelope(event string, data interface{}) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: event, Data: raw})
}

// Publisher emits an event to every member of a room.
type Publisher interface {
	Publish(ctx context.Context, room, event string, data interface{}) error
}

// Hub tracks connected clients and their room memberships. Safe for
// concurrent use.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	all   map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		all:   make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[client] = struct{}{}
}

// Unregister drops the client from every room and closes its send queue.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	for room := range client.rooms {
		h.removeLocked(room, client)
	}
	client.rooms = nil
	delete(h.all, client)
	close(client.send)
}

func (h *Hub) Join(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][client] = struct{}{}
	if client.rooms == nil {
		client.rooms = make(map[string]struct{})
	}
	client.rooms[room] = struct{}{}
}

func (h *Hub) Leave(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.removeLocked(room, client)
	delete(client.rooms, room)
}

func (h *Hub) removeLocked(room string, client *Client) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// BroadcastRaw queues an encoded frame for every member of room. Clients
// whose queue is full miss the frame.
func (h *Hub) BroadcastRaw(room string, frame []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[room] {
		select {
		case client.send <- frame:
		default:
			log.Warn().Str("client_id", client.ID).Str("room", room).Msg("Dropping realtime frame for slow client")
		}
	}
}

// Publish delivers to local members only.
func (h *Hub) Publish(_ context.Context, room, event string, data interface{}) error {
	frame, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}
	h.BroadcastRaw(room, frame)
	return nil
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

func (h *Hub) RoomCount(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
