// Package ws implements the realtime transport: the session registry
// binding live connections to authenticated users, and the inbound event
// router.
package ws

import (
	"log/slog"
	"sync"

	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
	"github.com/keyduel/keyduel-api/pkg/metrics"
)

// Hub is the session registry. It maps authenticated users to their live
// connections (a user may hold several) and tracks logical room
// membership for match-scoped broadcasts. Emits are best-effort: a closed
// connection or a full send buffer drops the frame, never errors.
//
// The hub is one-way: it routes outbound events and never calls into the
// domain. Connection-close events reach the coordinator through the
// Closed channel.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[*Client]bool
	rooms map[string]map[*Client]bool

	closed chan string
}

// NewHub creates an empty session registry.
func NewHub() *Hub {
	return &Hub{
		users:  make(map[string]map[*Client]bool),
		rooms:  make(map[string]map[*Client]bool),
		closed: make(chan string, 64),
	}
}

// Closed delivers the user id of each connection close where it was the
// user's last live connection. Consumed by the coordinator's disconnect
// watcher.
func (h *Hub) Closed() <-chan string { return h.closed }

// Bind registers an authenticated connection.
func (h *Hub) Bind(c *Client) {
	h.mu.Lock()
	if h.users[c.userID] == nil {
		h.users[c.userID] = make(map[*Client]bool)
	}
	h.users[c.userID][c] = true
	h.mu.Unlock()

	metrics.Connections.Inc()
	slog.Info("connection bound", "user_id", c.userID, "conn_id", c.id)
}

// Unbind removes a connection from the registry and every room. When it
// was the user's last connection the user id is pushed to the lifecycle
// channel.
func (h *Hub) Unbind(c *Client) {
	h.mu.Lock()
	conns, ok := h.users[c.userID]
	if ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.users, c.userID)
		}
	}
	for roomID, members := range h.rooms {
		if members[c] {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
	last := !h.hasConnLocked(c.userID)
	h.mu.Unlock()

	if !ok {
		return
	}
	metrics.Connections.Dec()
	slog.Info("connection unbound", "user_id", c.userID, "conn_id", c.id)

	if last {
		select {
		case h.closed <- c.userID:
		default:
			slog.Warn("lifecycle channel full, dropping close event", "user_id", c.userID)
		}
	}
}

// JoinRoom adds the connection to a logical room.
func (h *Hub) JoinRoom(c *Client, roomID string) {
	h.mu.Lock()
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][c] = true
	h.mu.Unlock()
}

// LeaveRoom removes the connection from a logical room.
func (h *Hub) LeaveRoom(c *Client, roomID string) {
	h.mu.Lock()
	if members, ok := h.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, roomID)
		}
	}
	h.mu.Unlock()
}

// EmitToUser sends the event to every live connection bound to userID.
// Silent no-op when the user is offline.
func (h *Hub) EmitToUser(userID, event string, payload any) {
	data, err := encodeOutbound(event, payload)
	if err != nil {
		slog.Error("failed to encode outbound event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.users[userID]))
	for c := range h.users[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// EmitToRoom sends the event to every connection joined to the room.
func (h *Hub) EmitToRoom(roomID, event string, payload any) {
	data, err := encodeOutbound(event, payload)
	if err != nil {
		slog.Error("failed to encode outbound event", "event", event, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.rooms[roomID]))
	for c := range h.rooms[roomID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.enqueue(data)
	}
}

// IsOnline reports whether at least one connection is bound to userID.
func (h *Hub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hasConnLocked(userID)
}

func (h *Hub) hasConnLocked(userID string) bool {
	return len(h.users[userID]) > 0
}

var _ pvp_out.SessionGateway = (*Hub)(nil)
