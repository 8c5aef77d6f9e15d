package registry

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"gridarena/internal/protocol"
)

func recvMsg(t *testing.T, ch <-chan []byte, within time.Duration) protocol.ServerMessage {
	t.Helper()
	select {
	case data, ok := <-ch:
		if !ok {
			t.Fatalf("send channel closed unexpectedly")
		}
		var msg protocol.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	case <-time.After(within):
		t.Fatalf("timed out waiting for message")
		return protocol.ServerMessage{} // unreachable
	}
}

func recvNothing(t *testing.T, ch <-chan []byte) {
	t.Helper()
	select {
	case data := <-ch:
		t.Fatalf("expected no message, got %s", data)
	default:
	}
}

func TestToRoom_DeliversToMembersOnly(t *testing.T) {
	r := New(zap.NewNop())

	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 4)}
	c3 := &Client{PlayerID: "p3", Send: make(chan []byte, 4)}
	r.Register(c1)
	r.Register(c2)
	r.Register(c3)
	r.JoinRoom("room1", "p1")
	r.JoinRoom("room1", "p2")

	r.ToRoom("room1", protocol.ServerMessage{Type: protocol.EvtParticipantJoined, PlayerID: "p2"})

	got := recvMsg(t, c1.Send, 100*time.Millisecond)
	if got.Type != protocol.EvtParticipantJoined || got.PlayerID != "p2" {
		t.Fatalf("unexpected message: %+v", got)
	}
	recvMsg(t, c2.Send, 100*time.Millisecond)
	recvNothing(t, c3.Send)
}

func TestToRoomExcept_SkipsSender(t *testing.T) {
	r := New(zap.NewNop())

	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 4)}
	r.Register(c1)
	r.Register(c2)
	r.JoinRoom("room1", "p1")
	r.JoinRoom("room1", "p2")

	r.ToRoomExcept("room1", "p1", protocol.ServerMessage{Type: protocol.EvtLobbyTyping, PlayerID: "p1", IsTyping: true})

	got := recvMsg(t, c2.Send, 100*time.Millisecond)
	if !got.IsTyping {
		t.Fatalf("expected typing event, got %+v", got)
	}
	recvNothing(t, c1.Send)
}

func TestToParticipant_UnknownIsNoop(t *testing.T) {
	r := New(zap.NewNop())
	r.ToParticipant("ghost", protocol.ServerMessage{Type: protocol.EvtSessionError})
}

func TestUnregister_ClosesSendAndLeavesRooms(t *testing.T) {
	r := New(zap.NewNop())

	c1 := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	c2 := &Client{PlayerID: "p2", Send: make(chan []byte, 4)}
	r.Register(c1)
	r.Register(c2)
	r.JoinRoom("room1", "p1")
	r.JoinRoom("room1", "p2")

	if !r.Unregister(c1) {
		t.Fatalf("unregistering the live client should succeed")
	}

	if _, ok := <-c1.Send; ok {
		t.Fatalf("send channel should be closed")
	}

	r.ToRoom("room1", protocol.ServerMessage{Type: protocol.EvtLobbyMessage, Text: "hi"})
	recvMsg(t, c2.Send, 100*time.Millisecond)

	// Double unregister is a no-op.
	if r.Unregister(c1) {
		t.Fatalf("second unregister should report false")
	}
}

func TestRegister_ReplacesPreviousConnection(t *testing.T) {
	r := New(zap.NewNop())

	old := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	r.Register(old)
	fresh := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	r.Register(fresh)

	if _, ok := <-old.Send; ok {
		t.Fatalf("replaced connection's channel should be closed")
	}

	r.ToParticipant("p1", protocol.ServerMessage{Type: protocol.EvtLobbyMessage, Text: "hi"})
	recvMsg(t, fresh.Send, 100*time.Millisecond)
}

func TestUnregister_StaleClientLeavesReplacementIntact(t *testing.T) {
	r := New(zap.NewNop())

	stale := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	r.Register(stale)
	r.JoinRoom("room1", "p1")
	fresh := &Client{PlayerID: "p1", Send: make(chan []byte, 4)}
	r.Register(fresh)

	if r.Unregister(stale) {
		t.Fatalf("stale client's unregister must report false")
	}

	r.ToRoom("room1", protocol.ServerMessage{Type: protocol.EvtLobbyMessage, Text: "hi"})
	got := recvMsg(t, fresh.Send, 100*time.Millisecond)
	if got.Text != "hi" {
		t.Fatalf("fresh client should keep its room membership, got %+v", got)
	}
}

func TestDeliver_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	r := New(zap.NewNop())

	c := &Client{PlayerID: "p1", Send: make(chan []byte)} // no buffer, never drained
	r.Register(c)

	done := make(chan struct{})
	go func() {
		r.ToParticipant("p1", protocol.ServerMessage{Type: protocol.EvtLobbyMessage})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatalf("delivery blocked on a slow client")
	}
}
