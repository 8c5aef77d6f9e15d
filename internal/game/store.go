package game

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"gridarena/internal/metrics"
	"gridarena/internal/protocol"
)

// Phase of a running session. The store owns the container and the
// broadcast machinery; an external gameplay module drives transitions
// through SetPhase.
type Phase string

const (
	PhasePreparation Phase = "preparation"
	PhaseCombat      Phase = "combat"
	PhaseVictory     Phase = "victory"
)

// Sender delivers events to individual participants. Snapshots differ per
// participant, so the store never uses room-level delivery.
type Sender interface {
	ToParticipant(playerID string, msg protocol.ServerMessage)
}

const (
	startingGold   = 10
	startingHealth = 100
)

type session struct {
	roomID  string
	phase   Phase
	players map[string]*protocol.PlayerResources
	order   []string
}

// Store holds the authoritative state of every running session. All
// mutation goes through its methods; operations on unknown rooms are
// logged no-ops because they legitimately race with disconnect cleanup.
type Store struct {
	mu          sync.Mutex
	sessions    map[string]*session
	settleDelay time.Duration
	sender      Sender
	met         *metrics.Metrics
	log         *zap.Logger
}

func NewStore(sender Sender, settleDelay time.Duration, met *metrics.Metrics, log *zap.Logger) *Store {
	return &Store{
		sessions:    make(map[string]*session),
		settleDelay: settleDelay,
		sender:      sender,
		met:         met,
		log:         log,
	}
}

// Initialize creates the session in the preparation phase with fresh
// resources for every participant. The first snapshot is broadcast after
// the settle delay, a grace period for the clients' match-start
// transition; zero is valid and broadcasts immediately.
func (s *Store) Initialize(roomID string, participantIDs []string) {
	s.mu.Lock()
	if _, exists := s.sessions[roomID]; exists {
		s.mu.Unlock()
		s.log.Warn("session already initialized", zap.String("roomId", roomID))
		return
	}
	sess := &session{
		roomID:  roomID,
		phase:   PhasePreparation,
		players: make(map[string]*protocol.PlayerResources),
	}
	for _, id := range participantIDs {
		sess.players[id] = freshResources()
		sess.order = append(sess.order, id)
	}
	s.sessions[roomID] = sess
	s.mu.Unlock()

	s.met.ActiveSessions.Inc()
	s.log.Info("session initialized",
		zap.String("roomId", roomID),
		zap.Strings("participants", participantIDs))

	if s.settleDelay <= 0 {
		s.Broadcast(roomID)
		return
	}
	time.AfterFunc(s.settleDelay, func() { s.Broadcast(roomID) })
}

// AddParticipant joins a participant to an already-running session, for
// reconnects into a live match. Already-present participants keep their
// resources.
func (s *Store) AddParticipant(roomID, participantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[roomID]
	if !ok {
		s.log.Debug("join for unknown session", zap.String("roomId", roomID))
		return
	}
	if _, present := sess.players[participantID]; present {
		return
	}
	sess.players[participantID] = freshResources()
	sess.order = append(sess.order, participantID)
}

// RemoveParticipant drops a participant's resources. An emptied session is
// destroyed; otherwise the remaining participants get an updated snapshot.
func (s *Store) RemoveParticipant(roomID, participantID string) {
	s.mu.Lock()
	sess, ok := s.sessions[roomID]
	if !ok {
		s.mu.Unlock()
		return
	}
	if _, present := sess.players[participantID]; !present {
		s.mu.Unlock()
		return
	}
	delete(sess.players, participantID)
	for i, id := range sess.order {
		if id == participantID {
			sess.order = append(sess.order[:i], sess.order[i+1:]...)
			break
		}
	}
	empty := len(sess.players) == 0
	if empty {
		delete(s.sessions, roomID)
	}
	s.mu.Unlock()

	if empty {
		s.met.ActiveSessions.Dec()
		s.log.Info("session destroyed", zap.String("roomId", roomID))
		return
	}
	s.Broadcast(roomID)
}

// SetPhase is the mutation entry point for the gameplay module.
func (s *Store) SetPhase(roomID string, phase Phase) {
	s.mu.Lock()
	sess, ok := s.sessions[roomID]
	if !ok {
		s.mu.Unlock()
		s.log.Debug("phase change for unknown session", zap.String("roomId", roomID))
		return
	}
	sess.phase = phase
	s.mu.Unlock()

	s.Broadcast(roomID)
}

// RoomsOf lists every session the participant currently holds resources
// in. Disconnect cleanup uses it to find sessions whose lobby room is
// already gone.
func (s *Store) RoomsOf(participantID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, sess := range s.sessions {
		if _, present := sess.players[participantID]; present {
			ids = append(ids, id)
		}
	}
	return ids
}

// CurrentPhase reports the session's phase; false for unknown rooms.
func (s *Store) CurrentPhase(roomID string) (Phase, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[roomID]
	if !ok {
		return "", false
	}
	return sess.phase, true
}

// Broadcast sends every remaining participant its own projection. Each
// participant sees the shared phase and roster plus only its own
// resources, so this is per-participant delivery, never a shared room
// payload.
func (s *Store) Broadcast(roomID string) {
	s.mu.Lock()
	sess, ok := s.sessions[roomID]
	if !ok {
		s.mu.Unlock()
		s.log.Debug("broadcast for unknown session", zap.String("roomId", roomID))
		return
	}
	type outbound struct {
		id    string
		state *protocol.PlayerGameState
	}
	var batch []outbound
	roster := make([]string, 0, len(sess.players))
	for _, id := range sess.order {
		if _, present := sess.players[id]; present {
			roster = append(roster, id)
		}
	}
	for _, id := range roster {
		batch = append(batch, outbound{id: id, state: &protocol.PlayerGameState{
			RoomID: roomID,
			Phase:  string(sess.phase),
			Roster: roster,
			You:    *sess.players[id],
		}})
	}
	s.mu.Unlock()

	for _, out := range batch {
		s.sender.ToParticipant(out.id, protocol.ServerMessage{
			Type:  protocol.EvtSessionState,
			State: out.state,
		})
	}
}

func freshResources() *protocol.PlayerResources {
	return &protocol.PlayerResources{
		Gold:   startingGold,
		Health: startingHealth,
		Level:  1,
		Board:  []protocol.BoardUnit{},
	}
}
