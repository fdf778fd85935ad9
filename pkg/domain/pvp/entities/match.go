package pvp_entities

import "time"

// MatchStatus is the persisted lifecycle state of a match.
type MatchStatus string

const (
	MatchStatusActive    MatchStatus = "active"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusCancelled MatchStatus = "cancelled"
)

// Match is the persistent record of a 1v1 typing race. Created active by
// queue pair-off, mutated exclusively by the match coordinator, and moved
// to completed or cancelled exactly once.
type Match struct {
	MatchID          string      `bson:"match_id" json:"matchId"`
	Player1ID        string      `bson:"player1_id" json:"player1Id"`
	Player1Username  string      `bson:"player1_username" json:"player1Username"`
	Player2ID        string      `bson:"player2_id" json:"player2Id"`
	Player2Username  string      `bson:"player2_username" json:"player2Username"`
	Player1Wpm       float64     `bson:"player1_wpm" json:"player1Wpm"`
	Player1Accuracy  float64     `bson:"player1_accuracy" json:"player1Accuracy"`
	Player2Wpm       float64     `bson:"player2_wpm" json:"player2Wpm"`
	Player2Accuracy  float64     `bson:"player2_accuracy" json:"player2Accuracy"`
	WinnerID         *string     `bson:"winner_id,omitempty" json:"winnerId"`
	WinnerName       string      `bson:"winner_name,omitempty" json:"winnerName"`
	Player1EloChange int         `bson:"player1_elo_change" json:"player1EloChange"`
	Player2EloChange int         `bson:"player2_elo_change" json:"player2EloChange"`
	MatchDuration    int         `bson:"match_duration" json:"matchDuration"`
	Status           MatchStatus `bson:"status" json:"status"`
	CreatedAt        time.Time   `bson:"created_at" json:"createdAt"`
	CompletedAt      *time.Time  `bson:"completed_at,omitempty" json:"completedAt"`
}

// HasPlayer reports whether userID is one of the two parties.
func (m *Match) HasPlayer(userID string) bool {
	return m.Player1ID == userID || m.Player2ID == userID
}

// OpponentOf returns the other party's id, or "" if userID is not a party.
func (m *Match) OpponentOf(userID string) string {
	switch userID {
	case m.Player1ID:
		return m.Player2ID
	case m.Player2ID:
		return m.Player1ID
	}
	return ""
}

// MatchPatch is a partial update to a match document. Nil fields are left
// untouched, so live progress writes do not clobber finalization fields.
type MatchPatch struct {
	Player1Wpm       *float64     `bson:"player1_wpm,omitempty"`
	Player1Accuracy  *float64     `bson:"player1_accuracy,omitempty"`
	Player2Wpm       *float64     `bson:"player2_wpm,omitempty"`
	Player2Accuracy  *float64     `bson:"player2_accuracy,omitempty"`
	WinnerID         *string      `bson:"winner_id,omitempty"`
	WinnerName       *string      `bson:"winner_name,omitempty"`
	Player1EloChange *int         `bson:"player1_elo_change,omitempty"`
	Player2EloChange *int         `bson:"player2_elo_change,omitempty"`
	MatchDuration    *int         `bson:"match_duration,omitempty"`
	Status           *MatchStatus `bson:"status,omitempty"`
	CompletedAt      *time.Time   `bson:"completed_at,omitempty"`
}
