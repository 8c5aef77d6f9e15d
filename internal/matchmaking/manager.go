package matchmaking

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gridarena/internal/metrics"
	"gridarena/internal/protocol"
)

// DefaultMatchSize is the fallback queue size when the manager is built
// without a configured one.
const DefaultMatchSize = 2

// DefaultTimeout is how long an entry may wait before it expires.
const DefaultTimeout = 30 * time.Second

// Sender delivers matchmaking events to individual participants. Queued
// participants are not in any room yet, so there is no room delivery here.
type Sender interface {
	ToParticipant(playerID string, msg protocol.ServerMessage)
}

// Lobby is the slice of the lobby coordinator needed to stand up a formed
// match.
type Lobby interface {
	CreateRoom(roomID string, maxParticipants int)
	AddParticipant(roomID, participantID string) bool
}

type entry struct {
	participantID string
	size          int
	joinedAt      time.Time
	timer         *time.Timer
}

// Manager keeps one FIFO queue per requested match size. A participant
// holds at most one entry across all queues; joining again evicts the
// previous entry. Entries expire independently after the configured
// timeout unless matched or cancelled first.
type Manager struct {
	mu          sync.Mutex
	queues      map[int][]*entry
	timeout     time.Duration
	defaultSize int
	sender      Sender
	lobbies     Lobby
	met         *metrics.Metrics
	log         *zap.Logger
}

func NewManager(sender Sender, lobbies Lobby, timeout time.Duration, defaultSize int, met *metrics.Metrics, log *zap.Logger) *Manager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if defaultSize < 2 {
		defaultSize = DefaultMatchSize
	}
	return &Manager{
		queues:      make(map[int][]*entry),
		timeout:     timeout,
		defaultSize: defaultSize,
		sender:      sender,
		lobbies:     lobbies,
		met:         met,
		log:         log,
	}
}

// Enqueue places the participant in the queue for the requested size,
// evicting any entry it already holds, and attempts match formation.
func (m *Manager) Enqueue(participantID string, size int) {
	if size <= 0 {
		size = m.defaultSize
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removeLocked(participantID) {
		m.sender.ToParticipant(participantID, protocol.ServerMessage{
			Type:   protocol.EvtMatchmakingStatus,
			Status: protocol.StatusCancelled,
		})
	}

	e := &entry{
		participantID: participantID,
		size:          size,
		joinedAt:      time.Now(),
	}
	e.timer = time.AfterFunc(m.timeout, func() { m.expire(e) })
	m.queues[size] = append(m.queues[size], e)
	m.met.QueuedPlayers.Inc()

	m.sender.ToParticipant(participantID, protocol.ServerMessage{
		Type:   protocol.EvtMatchmakingStatus,
		Status: protocol.StatusSearching,
	})
	m.log.Info("participant queued",
		zap.String("playerId", participantID),
		zap.Int("matchSize", size))

	m.formMatches(size)
}

// Dequeue removes the participant's entry if one exists and reports the
// cancellation. Unqueued participants are a silent no-op.
func (m *Manager) Dequeue(participantID string) {
	m.mu.Lock()
	removed := m.removeLocked(participantID)
	m.mu.Unlock()

	if removed {
		m.sender.ToParticipant(participantID, protocol.ServerMessage{
			Type:   protocol.EvtMatchmakingStatus,
			Status: protocol.StatusCancelled,
		})
	}
}

// Queued reports whether the participant currently holds an entry.
func (m *Manager) Queued(participantID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, q := range m.queues {
		for _, e := range q {
			if e.participantID == participantID {
				return true
			}
		}
	}
	return false
}

// QueueLen reports how many participants wait for the given match size.
func (m *Manager) QueueLen(size int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[size])
}

// removeLocked evicts the participant's entry from whichever queue holds
// it and stops its timer. Callers hold m.mu.
func (m *Manager) removeLocked(participantID string) bool {
	for size, q := range m.queues {
		for i, e := range q {
			if e.participantID != participantID {
				continue
			}
			e.timer.Stop()
			m.queues[size] = append(q[:i], q[i+1:]...)
			m.met.QueuedPlayers.Dec()
			return true
		}
	}
	return false
}

// expire fires when an entry's timer elapses. The entry is matched by
// identity, not participant id: if this exact instance is no longer
// queued (matched, cancelled, or replaced by a re-enqueue) the firing is
// a no-op.
func (m *Manager) expire(e *entry) {
	m.mu.Lock()
	q := m.queues[e.size]
	idx := -1
	for i, cand := range q {
		if cand == e {
			idx = i
			break
		}
	}
	if idx == -1 {
		m.mu.Unlock()
		return
	}
	m.queues[e.size] = append(q[:idx], q[idx+1:]...)
	m.met.QueuedPlayers.Dec()
	m.met.QueueTimeouts.Inc()
	m.mu.Unlock()

	m.log.Info("queue entry expired", zap.String("playerId", e.participantID))
	m.sender.ToParticipant(e.participantID, protocol.ServerMessage{
		Type:   protocol.EvtMatchmakingStatus,
		Status: protocol.StatusTimeout,
	})
}

// formMatches pops the N oldest entries off the size-N queue while it
// holds at least N, forming one match per pass. Composition is strictly
// arrival-ordered. Callers hold m.mu.
func (m *Manager) formMatches(size int) {
	for len(m.queues[size]) >= size {
		matched := m.queues[size][:size]
		m.queues[size] = m.queues[size][size:]

		ids := make([]string, 0, size)
		for _, e := range matched {
			e.timer.Stop()
			ids = append(ids, e.participantID)
		}
		m.met.QueuedPlayers.Sub(float64(size))
		m.met.MatchesFormed.Inc()

		roomID := "game_" + uuid.NewString()
		m.lobbies.CreateRoom(roomID, size)

		seated := make([]string, 0, size)
		for _, id := range ids {
			if !m.lobbies.AddParticipant(roomID, id) {
				// Reported, non-fatal: the participant retries explicitly.
				m.log.Warn("failed to seat matched participant",
					zap.String("roomId", roomID),
					zap.String("playerId", id))
				m.sender.ToParticipant(id, protocol.ServerMessage{
					Type:  protocol.EvtSessionError,
					Error: "failed to join lobby",
				})
				continue
			}
			seated = append(seated, id)
		}

		m.log.Info("match formed",
			zap.String("roomId", roomID),
			zap.Strings("participants", ids))

		for _, id := range seated {
			m.sender.ToParticipant(id, protocol.ServerMessage{
				Type:       protocol.EvtMatchmakingFound,
				RoomID:     roomID,
				OpponentID: firstOther(ids, id),
			})
		}
	}
}

func firstOther(ids []string, self string) string {
	for _, id := range ids {
		if id != self {
			return id
		}
	}
	return ""
}
