package protocol

// Command names accepted from clients.
const (
	CmdMatchmakingJoin  = "matchmaking.join"
	CmdMatchmakingLeave = "matchmaking.leave"
	CmdLobbyReady       = "lobby.ready"
	CmdLobbyLeave       = "lobby.leave"
	CmdLobbyMessage     = "lobby.message"
	CmdLobbyTyping      = "lobby.typing"
	CmdLobbyList        = "lobby.listParticipants"
	CmdGameJoin         = "game.join"
)

// Event names sent to clients.
const (
	EvtMatchmakingStatus = "matchmaking.status"
	EvtMatchmakingFound  = "matchmaking.found"
	EvtParticipantJoined = "lobby.participantJoined"
	EvtParticipantLeft   = "lobby.participantLeft"
	EvtParticipantReady  = "lobby.participantReady"
	EvtLobbyMessage      = "lobby.message"
	EvtLobbyTyping       = "lobby.typing"
	EvtLobbyPlayers      = "lobby.players"
	EvtSessionStarting   = "session.starting"
	EvtSessionState      = "session.state"
	EvtSessionError      = "session.error"
)

// Matchmaking status values carried by EvtMatchmakingStatus.
const (
	StatusSearching = "searching"
	StatusCancelled = "cancelled"
	StatusTimeout   = "timeout"
	StatusIdle      = "idle"
)

type ClientMessage struct {
	Type      string `json:"type"`
	MatchSize int    `json:"matchSize,omitempty"`
	RoomID    string `json:"roomId,omitempty"`
	Text      string `json:"text,omitempty"`
	IsTyping  bool   `json:"isTyping,omitempty"`
}

type ServerMessage struct {
	Type       string           `json:"type"`
	Status     string           `json:"status,omitempty"`
	RoomID     string           `json:"roomId,omitempty"`
	OpponentID string           `json:"opponentId,omitempty"`
	PlayerID   string           `json:"playerId,omitempty"`
	Ready      bool             `json:"ready,omitempty"`
	Text       string           `json:"text,omitempty"`
	IsTyping   bool             `json:"isTyping,omitempty"`
	Players    []PlayerSummary  `json:"players,omitempty"`
	State      *PlayerGameState `json:"state,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// PlayerSummary is the roster entry sent in lobby.players snapshots.
type PlayerSummary struct {
	ID    string `json:"id"`
	Ready bool   `json:"ready"`
}

// BoardUnit is a unit placed on a participant's side of the board. Unit
// stats and behavior belong to the gameplay module; the session core only
// carries the placement.
type BoardUnit struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slot int    `json:"slot"`
}

// PlayerResources is the private per-participant session state.
type PlayerResources struct {
	Gold   int         `json:"gold"`
	Health int         `json:"health"`
	Level  int         `json:"level"`
	Board  []BoardUnit `json:"board"`
}

// PlayerGameState is the per-participant projection of a session. It is
// sent only to the participant it was built for: Roster and Phase are
// shared, You is private.
type PlayerGameState struct {
	RoomID string          `json:"roomId"`
	Phase  string          `json:"phase"`
	Roster []string        `json:"roster"`
	You    PlayerResources `json:"you"`
}
