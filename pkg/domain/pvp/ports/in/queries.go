package pvp_in

import (
	"context"
	"time"

	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
)

// --- Query Definitions ---

// GetRankingQuery retrieves a single player's ladder record.
type GetRankingQuery struct {
	UserID string
}

func (q *GetRankingQuery) Validate() error {
	if q.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	return nil
}

// GetLeaderboardQuery retrieves a ranked page of the ladder.
type GetLeaderboardQuery struct {
	Limit  int
	Offset int
}

// GetMatchHistoryQuery retrieves a player's completed matches, newest first.
type GetMatchHistoryQuery struct {
	UserID string
	Limit  int
	Offset int
}

func (q *GetMatchHistoryQuery) Validate() error {
	if q.UserID == "" {
		return &ValidationError{Field: "user_id", Message: "user_id is required"}
	}
	return nil
}

// --- DTOs ---

// RankingDTO is a ladder record for external use.
type RankingDTO struct {
	UserID      string     `json:"userId"`
	Username    string     `json:"username"`
	Elo         int        `json:"elo"`
	Wins        int        `json:"wins"`
	Losses      int        `json:"losses"`
	Matches     int        `json:"matches"`
	LastMatchAt *time.Time `json:"lastMatchAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// LeaderboardResult is a paginated slice of the ladder.
type LeaderboardResult struct {
	Leaderboard []RankingDTO `json:"leaderboard"`
	Total       int64        `json:"total"`
}

// MatchDTO is a completed match for external use.
type MatchDTO struct {
	MatchID          string     `json:"matchId"`
	Player1ID        string     `json:"player1Id"`
	Player1Username  string     `json:"player1Username"`
	Player2ID        string     `json:"player2Id"`
	Player2Username  string     `json:"player2Username"`
	Player1Wpm       float64    `json:"player1Wpm"`
	Player1Accuracy  float64    `json:"player1Accuracy"`
	Player2Wpm       float64    `json:"player2Wpm"`
	Player2Accuracy  float64    `json:"player2Accuracy"`
	WinnerID         *string    `json:"winnerId"`
	WinnerName       string     `json:"winnerName"`
	Player1EloChange int        `json:"player1EloChange"`
	Player2EloChange int        `json:"player2EloChange"`
	MatchDuration    int        `json:"matchDuration"`
	Status           string     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
}

// MatchHistoryResult is a paginated slice of completed matches.
type MatchHistoryResult struct {
	Matches []MatchDTO `json:"matches"`
	Total   int64      `json:"total"`
}

// --- Query Interfaces ---

// RankingQuery defines the read operations over the ladder and history.
type RankingQuery interface {
	GetRanking(ctx context.Context, query GetRankingQuery) (*RankingDTO, error)
	GetLeaderboard(ctx context.Context, query GetLeaderboardQuery) (*LeaderboardResult, error)
	GetMatchHistory(ctx context.Context, query GetMatchHistoryQuery) (*MatchHistoryResult, error)
}

// --- Helpers ---

// RankingToDTO converts a Ranking entity to its DTO.
func RankingToDTO(r *pvp_entities.Ranking) RankingDTO {
	return RankingDTO{
		UserID:      r.UserID,
		Username:    r.Username,
		Elo:         r.Elo,
		Wins:        r.Wins,
		Losses:      r.Losses,
		Matches:     r.Matches,
		LastMatchAt: r.LastMatchAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// MatchToDTO converts a Match entity to its DTO.
func MatchToDTO(m *pvp_entities.Match) MatchDTO {
	return MatchDTO{
		MatchID:          m.MatchID,
		Player1ID:        m.Player1ID,
		Player1Username:  m.Player1Username,
		Player2ID:        m.Player2ID,
		Player2Username:  m.Player2Username,
		Player1Wpm:       m.Player1Wpm,
		Player1Accuracy:  m.Player1Accuracy,
		Player2Wpm:       m.Player2Wpm,
		Player2Accuracy:  m.Player2Accuracy,
		WinnerID:         m.WinnerID,
		WinnerName:       m.WinnerName,
		Player1EloChange: m.Player1EloChange,
		Player2EloChange: m.Player2EloChange,
		MatchDuration:    m.MatchDuration,
		Status:           string(m.Status),
		CreatedAt:        m.CreatedAt,
		CompletedAt:      m.CompletedAt,
	}
}

// ValidateLeaderboardQuery clamps paging to sane bounds.
func ValidateLeaderboardQuery(q *GetLeaderboardQuery) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// ValidateHistoryQuery clamps paging to sane bounds.
func ValidateHistoryQuery(q *GetMatchHistoryQuery) {
	if q.Limit <= 0 {
		q.Limit = 20
	}
	if q.Limit > 100 {
		q.Limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}
