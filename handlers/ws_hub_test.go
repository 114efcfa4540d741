package handlers

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/typerush/typerush/typerush-backend/models"
)

func newTestConnection(id, userID string) *Connection {
	return &Connection{
		send:     make(chan []byte, 8),
		id:       id,
		userID:   userID,
		username: "player-" + id,
	}
}

func drain(t *testing.T, c *Connection) []models.WsMessage {
	t.Helper()
	var out []models.WsMessage
	for {
		select {
		case payload := <-c.send:
			var msg models.WsMessage
			require.NoError(t, json.Unmarshal(payload, &msg))
			out = append(out, msg)
		default:
			return out
		}
	}
}

func TestBroadcastReachesRoomMembersOnly(t *testing.T) {
	hub := NewHub()
	a := newTestConnection("A", "")
	b := newTestConnection("B", "")
	c := newTestConnection("C", "")
	for _, conn := range []*Connection{a, b, c} {
		hub.register(conn)
	}
	hub.moveToRoom("A", "r1")
	hub.moveToRoom("B", "r1")
	hub.moveToRoom("C", "r2")

	hub.Broadcast("r1", models.WsMessage{Type: "countdown", Data: 3})

	require.Len(t, drain(t, a), 1)
	require.Len(t, drain(t, b), 1)
	assert.Empty(t, drain(t, c))
}

func TestSendTargetsOneConnection(t *testing.T) {
	hub := NewHub()
	a := newTestConnection("A", "")
	b := newTestConnection("B", "")
	hub.register(a)
	hub.register(b)

	hub.Send("A", models.WsMessage{Type: "roomJoined", Data: models.RoomJoined{RoomID: "r1"}})

	msgs := drain(t, a)
	require.Len(t, msgs, 1)
	assert.Equal(t, "roomJoined", msgs[0].Type)
	assert.Empty(t, drain(t, b))
}

func TestMoveToRoomDropsPreviousAssociation(t *testing.T) {
	hub := NewHub()
	a := newTestConnection("A", "")
	hub.register(a)

	hub.moveToRoom("A", "r1")
	hub.moveToRoom("A", "r2")

	hub.Broadcast("r1", models.WsMessage{Type: "room_state"})
	assert.Empty(t, drain(t, a))

	hub.Broadcast("r2", models.WsMessage{Type: "room_state"})
	assert.Len(t, drain(t, a), 1)
}

func TestUnregisterRemovesFromRoom(t *testing.T) {
	hub := NewHub()
	a := newTestConnection("A", "")
	hub.register(a)
	hub.moveToRoom("A", "r1")

	hub.unregister(a)
	hub.Broadcast("r1", models.WsMessage{Type: "room_state"})

	// The send channel is closed and nothing more is queued.
	_, open := <-a.send
	assert.False(t, open)
}

func TestFullSendBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	a := &Connection{send: make(chan []byte, 1), id: "A"}
	hub.register(a)
	hub.moveToRoom("A", "r1")

	hub.Broadcast("r1", models.WsMessage{Type: "room_state"})
	done := make(chan struct{})
	go func() {
		hub.Broadcast("r1", models.WsMessage{Type: "room_state"})
		close(done)
	}()
	<-done // must not deadlock with a full buffer

	assert.Len(t, a.send, 1)
}

func TestUserForResolvesIdentity(t *testing.T) {
	hub := NewHub()
	hub.register(newTestConnection("A", "42"))
	hub.register(newTestConnection("B", ""))

	assert.Equal(t, "42", hub.userFor("A"))
	assert.Equal(t, "", hub.userFor("B"))
	assert.Equal(t, "", hub.userFor("ghost"))
}
