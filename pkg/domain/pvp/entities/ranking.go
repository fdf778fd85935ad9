package pvp_entities

import "time"

// DefaultElo is the rating assigned when a ranking is created lazily on a
// player's first match.
const DefaultElo = 1000

// Ranking is a player's persistent ladder record, keyed uniquely by UserID.
// It is created lazily on first match and mutated only by the match
// coordinator at finalization.
type Ranking struct {
	UserID      string     `bson:"user_id" json:"userId"`
	Username    string     `bson:"username" json:"username"`
	Elo         int        `bson:"elo" json:"elo"`
	Wins        int        `bson:"wins" json:"wins"`
	Losses      int        `bson:"losses" json:"losses"`
	Matches     int        `bson:"matches" json:"matches"`
	LastMatchAt *time.Time `bson:"last_match_at,omitempty" json:"lastMatchAt,omitempty"`
	CreatedAt   time.Time  `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updatedAt"`
}

// NewRanking returns a fresh ranking at the default rating.
func NewRanking(userID, username string) *Ranking {
	now := time.Now().UTC()
	return &Ranking{
		UserID:    userID,
		Username:  username,
		Elo:       DefaultElo,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// RankingPatch is a partial update applied by the coordinator at
// finalization. Nil fields are left untouched.
type RankingPatch struct {
	Elo         *int       `bson:"elo,omitempty"`
	Wins        *int       `bson:"wins,omitempty"`
	Losses      *int       `bson:"losses,omitempty"`
	Matches     *int       `bson:"matches,omitempty"`
	LastMatchAt *time.Time `bson:"last_match_at,omitempty"`
}
