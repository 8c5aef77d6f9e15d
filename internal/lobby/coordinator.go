package lobby

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"gridarena/internal/metrics"
	"gridarena/internal/protocol"
)

// Sender delivers events to room members and maintains the broadcast
// groups the registry routes by.
type Sender interface {
	ToParticipant(playerID string, msg protocol.ServerMessage)
	ToRoom(roomID string, msg protocol.ServerMessage)
	ToRoomExcept(roomID, senderID string, msg protocol.ServerMessage)
	JoinRoom(roomID, playerID string)
	LeaveRoom(roomID, playerID string)
}

// SessionStarter receives a full, all-ready room's participant list.
type SessionStarter interface {
	Initialize(roomID string, participantIDs []string)
}

type seat struct {
	ready bool
}

type room struct {
	id        string
	max       int
	createdAt time.Time
	seats     map[string]*seat
	order     []string
	starting  bool
}

func (r *room) roster() []string {
	ids := make([]string, 0, len(r.seats))
	for _, id := range r.order {
		if _, present := r.seats[id]; present {
			ids = append(ids, id)
		}
	}
	return ids
}

// Coordinator owns every pre-match room: membership, readiness, and the
// chat/typing relay. When a room fills and every seat is ready it
// transitions to starting exactly once and hands the roster to the
// session store.
type Coordinator struct {
	mu       sync.Mutex
	rooms    map[string]*room
	sender   Sender
	sessions SessionStarter
	met      *metrics.Metrics
	log      *zap.Logger
}

func NewCoordinator(sender Sender, sessions SessionStarter, met *metrics.Metrics, log *zap.Logger) *Coordinator {
	return &Coordinator{
		rooms:    make(map[string]*room),
		sender:   sender,
		sessions: sessions,
		met:      met,
		log:      log,
	}
}

// CreateRoom registers an empty room. The caller (matchmaking) generates
// the id and guarantees its uniqueness.
func (c *Coordinator) CreateRoom(roomID string, maxParticipants int) {
	c.mu.Lock()
	c.rooms[roomID] = &room{
		id:        roomID,
		max:       maxParticipants,
		createdAt: time.Now(),
		seats:     make(map[string]*seat),
	}
	c.mu.Unlock()

	c.met.OpenRooms.Inc()
	c.log.Info("room created", zap.String("roomId", roomID), zap.Int("maxParticipants", maxParticipants))
}

// AddParticipant seats a participant in the room. It fails on unknown or
// full rooms and otherwise joins the broadcast group and announces the
// join to the whole room.
//
// All room broadcasts happen under c.mu: delivery is non-blocking, and
// holding the lock keeps per-room event order identical to mutation
// order.
func (c *Coordinator) AddParticipant(roomID, participantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok || len(rm.seats) >= rm.max {
		return false
	}
	rm.seats[participantID] = &seat{}
	rm.order = append(rm.order, participantID)
	c.sender.JoinRoom(roomID, participantID)
	c.sender.ToRoom(roomID, protocol.ServerMessage{
		Type:     protocol.EvtParticipantJoined,
		PlayerID: participantID,
	})
	return true
}

// SetReady marks the participant ready and, when the room is full and
// every seat is ready, starts the match. The starting transition happens
// at most once per room; redundant ready calls after it are harmless.
func (c *Coordinator) SetReady(roomID, participantID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok {
		return false
	}
	st, present := rm.seats[participantID]
	if !present {
		return false
	}
	st.ready = true

	c.sender.ToRoom(roomID, protocol.ServerMessage{
		Type:     protocol.EvtParticipantReady,
		PlayerID: participantID,
		Ready:    true,
	})

	if rm.starting || len(rm.seats) != rm.max {
		return true
	}
	for _, s := range rm.seats {
		if !s.ready {
			return true
		}
	}
	rm.starting = true

	c.log.Info("all participants ready", zap.String("roomId", roomID))
	c.sender.ToRoom(roomID, protocol.ServerMessage{
		Type:   protocol.EvtSessionStarting,
		RoomID: roomID,
	})
	c.sessions.Initialize(roomID, rm.roster())
	return true
}

// RemoveParticipant unseats a participant. It is idempotent; removing the
// last participant destroys the room.
func (c *Coordinator) RemoveParticipant(roomID, participantID string) {
	c.mu.Lock()
	rm, ok := c.rooms[roomID]
	if !ok {
		c.mu.Unlock()
		return
	}
	if _, present := rm.seats[participantID]; !present {
		c.mu.Unlock()
		return
	}
	delete(rm.seats, participantID)
	for i, id := range rm.order {
		if id == participantID {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}
	c.sender.LeaveRoom(roomID, participantID)
	c.sender.ToRoom(roomID, protocol.ServerMessage{
		Type:     protocol.EvtParticipantLeft,
		PlayerID: participantID,
	})
	empty := len(rm.seats) == 0
	if empty {
		delete(c.rooms, roomID)
	}
	c.mu.Unlock()

	if empty {
		c.met.OpenRooms.Dec()
		c.log.Info("room destroyed", zap.String("roomId", roomID))
	}
}

// Participants returns a join-ordered snapshot of the room's seats. An
// unknown room yields an empty slice: absence is a valid state for a room
// that was never created or is already gone.
func (c *Coordinator) Participants(roomID string) []protocol.PlayerSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	rm, ok := c.rooms[roomID]
	if !ok {
		return []protocol.PlayerSummary{}
	}
	players := make([]protocol.PlayerSummary, 0, len(rm.seats))
	for _, id := range rm.roster() {
		players = append(players, protocol.PlayerSummary{ID: id, Ready: rm.seats[id].ready})
	}
	return players
}

// RoomsOf lists every room the participant is currently seated in.
func (c *Coordinator) RoomsOf(participantID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var ids []string
	for id, rm := range c.rooms {
		if _, present := rm.seats[participantID]; present {
			ids = append(ids, id)
		}
	}
	return ids
}

// RelayMessage forwards a chat message to the room. A message always
// supersedes a stale typing signal, so the sender's typing indicator is
// cleared for the others first.
func (c *Coordinator) RelayMessage(roomID, participantID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[roomID]; !ok {
		return
	}
	c.sender.ToRoomExcept(roomID, participantID, protocol.ServerMessage{
		Type:     protocol.EvtLobbyTyping,
		PlayerID: participantID,
		IsTyping: false,
	})
	c.sender.ToRoom(roomID, protocol.ServerMessage{
		Type:     protocol.EvtLobbyMessage,
		PlayerID: participantID,
		Text:     text,
	})
}

// RelayTyping forwards a typing-state change to the other members.
func (c *Coordinator) RelayTyping(roomID, participantID string, isTyping bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rooms[roomID]; !ok {
		return
	}
	c.sender.ToRoomExcept(roomID, participantID, protocol.ServerMessage{
		Type:     protocol.EvtLobbyTyping,
		PlayerID: participantID,
		IsTyping: isTyping,
	})
}
