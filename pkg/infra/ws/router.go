package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_in "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/in"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
)

// MatchEvents is the slice of the coordinator the router drives.
type MatchEvents interface {
	StartMatch(ctx context.Context, matchID, userID string) error
	Progress(ctx context.Context, matchID, userID string, wpm, accuracy float64) error
	Complete(ctx context.Context, matchID, userID string, wpm, accuracy float64) error
	Forfeit(ctx context.Context, matchID, userID string) error
	Reconnect(ctx context.Context, matchID, userID string) error
}

// Router dispatches inbound wire events to the queue handlers and the
// match coordinator. Malformed or unknown events yield a discrete error
// frame without dropping the connection.
type Router struct {
	hub        *Hub
	joinQueue  pvp_in.JoinQueueCommandHandler
	leaveQueue pvp_in.LeaveQueueCommandHandler
	matches    MatchEvents
}

// NewRouter creates the event router.
func NewRouter(hub *Hub, joinQueue pvp_in.JoinQueueCommandHandler, leaveQueue pvp_in.LeaveQueueCommandHandler, matches MatchEvents) *Router {
	return &Router{
		hub:        hub,
		joinQueue:  joinQueue,
		leaveQueue: leaveQueue,
		matches:    matches,
	}
}

// Dispatch decodes one inbound frame and routes it. Identity always comes
// from the bound connection, never from the payload.
func (rt *Router) Dispatch(c *Client, raw []byte) {
	if c.userID == "" {
		rt.emitError(c, "Authentication failed")
		return
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Event == "" {
		rt.emitError(c, "malformed event")
		return
	}

	ctx := domain.WithUser(context.Background(), domain.User{ID: c.userID, Username: c.username})

	switch env.Event {
	case EventJoinQueue:
		rt.handleJoinQueue(ctx, c)
	case EventLeaveQueue:
		rt.handleLeaveQueue(ctx, c)
	case EventAcceptMatch, aliasAcceptMatch:
		rt.handleAcceptMatch(ctx, c, env.Data)
	case EventMatchProgress, aliasMatchProgress:
		rt.handleProgress(ctx, c, env.Data)
	case EventMatchComplete, aliasMatchComplete:
		rt.handleComplete(ctx, c, env.Data)
	case EventForfeit, aliasForfeit:
		rt.handleForfeit(ctx, c, env.Data)
	case EventReconnect, aliasReconnect:
		rt.handleReconnect(ctx, c, env.Data)
	default:
		slog.WarnContext(ctx, "unknown event", "event", env.Event, "user_id", c.userID)
		rt.emitError(c, "unknown event: "+env.Event)
	}
}

func (rt *Router) handleJoinQueue(ctx context.Context, c *Client) {
	status, err := rt.joinQueue.Exec(ctx, pvp_in.JoinQueueCommand{
		UserID:   c.userID,
		Username: c.username,
		ConnID:   c.id,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyInQueue) {
			rt.emitError(c, "Already in queue")
			return
		}
		slog.ErrorContext(ctx, "join queue failed", "user_id", c.userID, "error", err)
		rt.emitError(c, "Failed to join queue")
		return
	}
	rt.emit(c, pvp_out.EventQueueJoined, map[string]any{
		"queueSize": status.QueueSize,
		"message":   "Searching for an opponent...",
	})
}

func (rt *Router) handleLeaveQueue(ctx context.Context, c *Client) {
	if err := rt.leaveQueue.Exec(ctx, pvp_in.LeaveQueueCommand{UserID: c.userID}); err != nil {
		if errors.Is(err, domain.ErrNotInQueue) {
			rt.emitError(c, "Not in queue")
			return
		}
		slog.ErrorContext(ctx, "leave queue failed", "user_id", c.userID, "error", err)
		rt.emitError(c, "Failed to leave queue")
		return
	}
	rt.emit(c, pvp_out.EventQueueLeft, map[string]any{"message": "Left the queue"})
}

func (rt *Router) handleAcceptMatch(ctx context.Context, c *Client, data json.RawMessage) {
	var p matchPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MatchID == "" {
		rt.emitError(c, "matchId is required")
		return
	}
	// room membership is granted only to accepted parties
	if err := rt.matches.StartMatch(ctx, p.MatchID, c.userID); err != nil {
		slog.WarnContext(ctx, "start match rejected", "match_id", p.MatchID, "user_id", c.userID, "error", err)
		rt.emitError(c, "Unable to start match")
		return
	}
	rt.hub.JoinRoom(c, pvp_out.MatchRoom(p.MatchID))
}

func (rt *Router) handleProgress(ctx context.Context, c *Client, data json.RawMessage) {
	var p progressPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MatchID == "" {
		rt.emitError(c, "matchId is required")
		return
	}
	if err := rt.matches.Progress(ctx, p.MatchID, c.userID, p.Wpm, p.Accuracy); err != nil {
		slog.WarnContext(ctx, "progress rejected", "match_id", p.MatchID, "user_id", c.userID, "error", err)
	}
}

func (rt *Router) handleComplete(ctx context.Context, c *Client, data json.RawMessage) {
	var p progressPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MatchID == "" {
		rt.emitError(c, "matchId is required")
		return
	}
	if err := rt.matches.Complete(ctx, p.MatchID, c.userID, p.Wpm, p.Accuracy); err != nil {
		slog.WarnContext(ctx, "completion rejected", "match_id", p.MatchID, "user_id", c.userID, "error", err)
	}
}

func (rt *Router) handleForfeit(ctx context.Context, c *Client, data json.RawMessage) {
	var p matchPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MatchID == "" {
		rt.emitError(c, "matchId is required")
		return
	}
	if err := rt.matches.Forfeit(ctx, p.MatchID, c.userID); err != nil {
		slog.WarnContext(ctx, "forfeit rejected", "match_id", p.MatchID, "user_id", c.userID, "error", err)
		rt.emitError(c, "Unable to forfeit match")
	}
}

func (rt *Router) handleReconnect(ctx context.Context, c *Client, data json.RawMessage) {
	var p matchPayload
	if err := json.Unmarshal(data, &p); err != nil || p.MatchID == "" {
		rt.emitError(c, "matchId is required")
		return
	}
	if err := rt.matches.Reconnect(ctx, p.MatchID, c.userID); err != nil {
		slog.WarnContext(ctx, "reconnect rejected", "match_id", p.MatchID, "user_id", c.userID, "error", err)
		rt.emitError(c, "Unable to reconnect")
		return
	}
	room := pvp_out.MatchRoom(p.MatchID)
	rt.hub.JoinRoom(c, room)
	rt.hub.EmitToRoom(room, pvp_out.EventOpponentReconnected, map[string]any{"matchId": p.MatchID})
}

func (rt *Router) emit(c *Client, event string, payload any) {
	data, err := encodeOutbound(event, payload)
	if err != nil {
		slog.Error("failed to encode reply", "event", event, "error", err)
		return
	}
	c.enqueue(data)
}

func (rt *Router) emitError(c *Client, message string) {
	rt.emit(c, pvp_out.EventError, map[string]any{"message": message})
}
