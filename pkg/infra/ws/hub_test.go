package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubClient(hub *Hub, connID, userID string) *Client {
	return &Client{
		id:     connID,
		userID: userID,
		hub:    hub,
		send:   make(chan []byte, sendBuffer),
	}
}

func TestHubBindUnbindLifecycle(t *testing.T) {
	hub := NewHub()
	c1 := newHubClient(hub, "conn-1", "alice")
	c2 := newHubClient(hub, "conn-2", "alice")

	hub.Bind(c1)
	hub.Bind(c2)
	assert.True(t, hub.IsOnline("alice"))

	// closing one of two connections is not a disconnect
	hub.Unbind(c1)
	assert.True(t, hub.IsOnline("alice"))
	select {
	case userID := <-hub.Closed():
		t.Fatalf("premature close event for %s", userID)
	default:
	}

	hub.Unbind(c2)
	assert.False(t, hub.IsOnline("alice"))
	select {
	case userID := <-hub.Closed():
		assert.Equal(t, "alice", userID)
	default:
		t.Fatal("expected close event for last connection")
	}
}

func TestHubUnbindUnknownConnectionIsNoOp(t *testing.T) {
	hub := NewHub()
	c := newHubClient(hub, "conn-1", "ghost")

	hub.Unbind(c)

	select {
	case userID := <-hub.Closed():
		t.Fatalf("close event for never-bound connection %s", userID)
	default:
	}
}

func TestHubEmitToUserReachesEveryConnection(t *testing.T) {
	hub := NewHub()
	c1 := newHubClient(hub, "conn-1", "alice")
	c2 := newHubClient(hub, "conn-2", "alice")
	other := newHubClient(hub, "conn-3", "bob")
	hub.Bind(c1)
	hub.Bind(c2)
	hub.Bind(other)

	hub.EmitToUser("alice", "pvp:queue_status", map[string]any{"queueSize": 3})

	for _, c := range []*Client{c1, c2} {
		select {
		case raw := <-c.send:
			var f struct {
				Event string         `json:"event"`
				Data  map[string]any `json:"data"`
			}
			require.NoError(t, json.Unmarshal(raw, &f))
			assert.Equal(t, "pvp:queue_status", f.Event)
			assert.Equal(t, float64(3), f.Data["queueSize"])
		default:
			t.Fatalf("connection %s missed the emit", c.id)
		}
	}
	select {
	case <-other.send:
		t.Fatal("emit leaked to another user")
	default:
	}

	// emitting to an offline user is a silent no-op
	hub.EmitToUser("nobody", "pvp:queue_status", map[string]any{})
}

func TestHubRoomMembershipFollowsUnbind(t *testing.T) {
	hub := NewHub()
	c := newHubClient(hub, "conn-1", "alice")
	hub.Bind(c)
	hub.JoinRoom(c, "match:m-1")

	hub.EmitToRoom("match:m-1", "ping", map[string]any{})
	require.Len(t, c.send, 1)
	<-c.send

	hub.Unbind(c)
	hub.EmitToRoom("match:m-1", "ping", map[string]any{})
	assert.Empty(t, c.send)
}

func TestHubLeaveRoom(t *testing.T) {
	hub := NewHub()
	c := newHubClient(hub, "conn-1", "alice")
	hub.Bind(c)
	hub.JoinRoom(c, "match:m-1")
	hub.LeaveRoom(c, "match:m-1")

	hub.EmitToRoom("match:m-1", "ping", map[string]any{})
	assert.Empty(t, c.send)
}
