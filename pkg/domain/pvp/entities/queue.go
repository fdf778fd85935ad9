package pvp_entities

import "time"

// QueueEntry is a transient, in-memory matchmaking queue slot. It is
// destroyed on leave, on pair-off, or on staleness eviction.
type QueueEntry struct {
	UserID   string
	Username string
	// ConnID is optional transport metadata; queueing keys on UserID only.
	ConnID   string
	JoinedAt time.Time
}

// LiveProgress is the last reported in-race state for one participant of
// an active match. Kept in memory per (matchId, userId) and cleared when
// the match finalizes.
type LiveProgress struct {
	Wpm       float64
	Accuracy  float64
	Timestamp time.Time
}
