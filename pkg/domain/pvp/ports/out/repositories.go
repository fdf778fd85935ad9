// Package pvp_out defines the outbound ports of the pvp context:
// persistence, session routing and the result stream.
package pvp_out

import (
	"context"

	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
)

// RankingRepository handles persistence of ladder records in the
// pvp_rankings collection. Lookups that find nothing return (nil, nil);
// transport failures return a domain.StorageError.
type RankingRepository interface {
	// Get retrieves a ranking by user id, or nil if absent.
	Get(ctx context.Context, userID string) (*pvp_entities.Ranking, error)

	// Create inserts a ranking. On a uniqueness violation on user_id the
	// existing record is returned instead of an error, so two concurrent
	// first-match creations cannot collide.
	Create(ctx context.Context, r *pvp_entities.Ranking) (*pvp_entities.Ranking, error)

	// Update applies a partial update and stamps updated_at. Returns the
	// post-image, or nil if the user vanished.
	Update(ctx context.Context, userID string, patch pvp_entities.RankingPatch) (*pvp_entities.Ranking, error)

	// Leaderboard returns a ranked slice ordered by elo descending (ties
	// broken by updated_at ascending) plus the total count.
	Leaderboard(ctx context.Context, limit, offset int) ([]*pvp_entities.Ranking, int64, error)
}

// MatchRepository handles persistence of match documents in the
// pvp_matches collection.
type MatchRepository interface {
	Create(ctx context.Context, m *pvp_entities.Match) error
	Get(ctx context.Context, matchID string) (*pvp_entities.Match, error)
	Update(ctx context.Context, matchID string, patch pvp_entities.MatchPatch) (*pvp_entities.Match, error)

	// History returns a player's completed matches ordered by created_at
	// descending, plus the total count.
	History(ctx context.Context, userID string, limit, offset int) ([]*pvp_entities.Match, int64, error)
}
