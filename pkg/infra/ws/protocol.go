package ws

import (
	"encoding/json"
	"time"
)

// Client-to-server event names. The pvp: namespace is canonical; the
// uppercase forms are accepted as aliases for older clients.
const (
	EventJoinQueue  = "pvp:join_queue"
	EventLeaveQueue = "pvp:leave_queue"

	EventAcceptMatch   = "ACCEPT_MATCH"
	EventMatchProgress = "MATCH_PROGRESS"
	EventMatchComplete = "MATCH_COMPLETE"
	EventForfeit       = "FORFEIT"
	EventReconnect     = "RECONNECT"

	aliasAcceptMatch   = "pvp:accept_match"
	aliasMatchProgress = "pvp:match_progress"
	aliasMatchComplete = "pvp:match_complete"
	aliasForfeit       = "pvp:forfeit"
	aliasReconnect     = "pvp:reconnect"
)

// envelope is the wire frame: a discriminated event name plus an object
// payload.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// outbound is the server-to-client frame.
type outbound struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

func encodeOutbound(event string, payload any) ([]byte, error) {
	return json.Marshal(outbound{
		Event:     event,
		Data:      payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

// matchPayload covers ACCEPT_MATCH, FORFEIT and RECONNECT.
type matchPayload struct {
	MatchID string `json:"matchId"`
}

// progressPayload covers MATCH_PROGRESS and MATCH_COMPLETE.
type progressPayload struct {
	MatchID  string  `json:"matchId"`
	Wpm      float64 `json:"wpm"`
	Accuracy float64 `json:"acc"`
}
