package registry

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"gridarena/internal/protocol"
)

// Client is one live connection's delivery endpoint. The transport layer
// owns the websocket and drains Send; the registry only writes to it.
type Client struct {
	PlayerID string
	Send     chan []byte
}

// Registry tracks which connections are alive and which rooms each one
// belongs to, and routes outbound events accordingly. It reads membership
// to deliver; it never mutates queue, lobby, or session state.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]struct{}
	log     *zap.Logger
}

func New(log *zap.Logger) *Registry {
	return &Registry{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]struct{}),
		log:     log,
	}
}

// Register adds a client, replacing any previous connection under the
// same participant id. The replaced client's Send channel is closed so
// its write pump exits.
func (r *Registry) Register(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.clients[c.PlayerID]; ok {
		close(prev.Send)
	}
	r.clients[c.PlayerID] = c
}

// Unregister removes the client and every room membership it held. The
// removal is keyed to the client instance, not the participant id: when a
// replacement connection has already registered under the same id, the
// stale connection's unregister reports false and leaves the fresh client
// and its memberships untouched.
func (r *Registry) Unregister(c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.clients[c.PlayerID]
	if !ok || cur != c {
		return false
	}
	close(c.Send)
	delete(r.clients, c.PlayerID)
	for roomID, members := range r.rooms {
		delete(members, c.PlayerID)
		if len(members) == 0 {
			delete(r.rooms, roomID)
		}
	}
	return true
}

func (r *Registry) JoinRoom(roomID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[playerID] = struct{}{}
}

func (r *Registry) LeaveRoom(roomID, playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, playerID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// ToParticipant delivers one event to one connection. Unknown ids are
// ignored: delivery legitimately races with disconnects.
func (r *Registry) ToParticipant(playerID string, msg protocol.ServerMessage) {
	data, ok := r.encode(msg)
	if !ok {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	r.deliver(playerID, data)
}

// ToRoom delivers one event to every member of a room.
func (r *Registry) ToRoom(roomID string, msg protocol.ServerMessage) {
	data, ok := r.encode(msg)
	if !ok {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.rooms[roomID] {
		r.deliver(id, data)
	}
}

// ToRoomExcept delivers to every room member except senderID.
func (r *Registry) ToRoomExcept(roomID, senderID string, msg protocol.ServerMessage) {
	data, ok := r.encode(msg)
	if !ok {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id := range r.rooms[roomID] {
		if id == senderID {
			continue
		}
		r.deliver(id, data)
	}
}

func (r *Registry) encode(msg protocol.ServerMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		r.log.Error("marshal server message", zap.String("type", msg.Type), zap.Error(err))
		return nil, false
	}
	return data, true
}

// deliver is non-blocking: a client whose outbox is full has stopped
// draining and loses the event rather than stalling the room.
func (r *Registry) deliver(playerID string, data []byte) {
	c, ok := r.clients[playerID]
	if !ok {
		return
	}
	select {
	case c.Send <- data:
	default:
		r.log.Warn("dropping event for slow client", zap.String("playerId", playerID))
	}
}
