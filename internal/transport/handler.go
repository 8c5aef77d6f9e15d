package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"gridarena/internal/game"
	"gridarena/internal/lobby"
	"gridarena/internal/matchmaking"
	"gridarena/internal/metrics"
	"gridarena/internal/protocol"
	"gridarena/internal/registry"
)

const writeTimeout = 3 * time.Second

// Deps is everything the websocket boundary dispatches into.
type Deps struct {
	Registry    *registry.Registry
	Matchmaking *matchmaking.Manager
	Lobby       *lobby.Coordinator
	Sessions    *game.Store
	Metrics     *metrics.Metrics
	Log         *zap.Logger
}

// Handler upgrades the connection, binds it to the client-supplied
// participant id, and pumps messages both ways. A connection without an
// id gets an error event and is closed.
func Handler(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{})
		if err != nil {
			return
		}

		playerID := r.URL.Query().Get("playerId")
		if playerID == "" {
			writeOne(r.Context(), conn, protocol.ServerMessage{
				Type:  protocol.EvtSessionError,
				Error: "missing player id",
			})
			conn.Close(websocket.StatusPolicyViolation, "missing player id")
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		d.Metrics.Connections.Inc()
		d.Log.Info("participant connected", zap.String("playerId", playerID))

		client := &registry.Client{PlayerID: playerID, Send: make(chan []byte, 16)}
		d.Registry.Register(client)
		defer d.cleanup(client)

		writeCtx, writeCancel := context.WithCancel(context.Background())
		defer writeCancel()
		go func() {
			for data := range client.Send {
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				_ = conn.Write(ctx, websocket.MessageText, data)
				cancel()
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					d.Log.Debug("read ended", zap.String("playerId", playerID), zap.Error(err))
				}
				return
			}

			var cm protocol.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeOne(r.Context(), conn, protocol.ServerMessage{
					Type:  protocol.EvtSessionError,
					Error: "bad json",
				})
				continue
			}
			d.dispatch(r.Context(), playerID, cm, conn)
		}
	}
}

func (d Deps) dispatch(ctx context.Context, playerID string, cm protocol.ClientMessage, conn *websocket.Conn) {
	switch cm.Type {
	case protocol.CmdMatchmakingJoin:
		d.Matchmaking.Enqueue(playerID, cm.MatchSize)

	case protocol.CmdMatchmakingLeave:
		d.Matchmaking.Dequeue(playerID)

	case protocol.CmdLobbyReady:
		d.Lobby.SetReady(cm.RoomID, playerID)

	case protocol.CmdLobbyLeave:
		d.Registry.ToRoomExcept(cm.RoomID, playerID, protocol.ServerMessage{
			Type:     protocol.EvtLobbyTyping,
			PlayerID: playerID,
			IsTyping: false,
		})
		d.Lobby.RemoveParticipant(cm.RoomID, playerID)
		d.Registry.ToParticipant(playerID, protocol.ServerMessage{
			Type:   protocol.EvtMatchmakingStatus,
			Status: protocol.StatusIdle,
		})

	case protocol.CmdLobbyMessage:
		d.Lobby.RelayMessage(cm.RoomID, playerID, cm.Text)

	case protocol.CmdLobbyTyping:
		d.Lobby.RelayTyping(cm.RoomID, playerID, cm.IsTyping)

	case protocol.CmdLobbyList:
		d.Registry.ToParticipant(playerID, protocol.ServerMessage{
			Type:    protocol.EvtLobbyPlayers,
			Players: d.Lobby.Participants(cm.RoomID),
		})

	case protocol.CmdGameJoin:
		d.Registry.JoinRoom(cm.RoomID, playerID)
		d.Sessions.AddParticipant(cm.RoomID, playerID)

	default:
		writeOne(ctx, conn, protocol.ServerMessage{
			Type:  protocol.EvtSessionError,
			Error: "unknown command",
		})
	}
}

// cleanup tears down everything the participant was part of: typing
// indicators are cleared for the rooms that saw them, lobby and session
// membership is released, and any queue entry is dropped. Teardown is
// keyed to the connection instance: if a replacement connection has
// already taken over this participant id, the stale connection's exit
// must not evict the participant from anything.
func (d Deps) cleanup(c *registry.Client) {
	playerID := c.PlayerID
	if !d.Registry.Unregister(c) {
		d.Log.Info("stale connection closed", zap.String("playerId", playerID))
		return
	}

	rooms := make(map[string]struct{})
	for _, roomID := range d.Lobby.RoomsOf(playerID) {
		rooms[roomID] = struct{}{}
	}
	for _, roomID := range d.Sessions.RoomsOf(playerID) {
		rooms[roomID] = struct{}{}
	}
	for roomID := range rooms {
		d.Registry.ToRoomExcept(roomID, playerID, protocol.ServerMessage{
			Type:     protocol.EvtLobbyTyping,
			PlayerID: playerID,
			IsTyping: false,
		})
		d.Lobby.RemoveParticipant(roomID, playerID)
		d.Sessions.RemoveParticipant(roomID, playerID)
	}
	d.Matchmaking.Dequeue(playerID)
	d.Log.Info("participant disconnected", zap.String("playerId", playerID))
}

func writeOne(ctx context.Context, conn *websocket.Conn, msg protocol.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	_ = conn.Write(wctx, websocket.MessageText, payload)
}
