package pvp_usecases

import (
	"context"
	"fmt"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_in "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/in"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
)

// RankingQueryService implements the paginated read models over the ladder
// and match history.
type RankingQueryService struct {
	rankings pvp_out.RankingRepository
	matches  pvp_out.MatchRepository
}

// NewRankingQueryService creates the read-model service.
func NewRankingQueryService(rankings pvp_out.RankingRepository, matches pvp_out.MatchRepository) pvp_in.RankingQuery {
	return &RankingQueryService{rankings: rankings, matches: matches}
}

// GetRanking returns a player's ladder record, or domain.ErrNotFound.
func (s *RankingQueryService) GetRanking(ctx context.Context, query pvp_in.GetRankingQuery) (*pvp_in.RankingDTO, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	r, err := s.rankings.Get(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("get ranking: %w", err)
	}
	if r == nil {
		return nil, domain.ErrNotFound
	}
	dto := pvp_in.RankingToDTO(r)
	return &dto, nil
}

// GetLeaderboard returns a ranked page of the ladder plus the total count.
func (s *RankingQueryService) GetLeaderboard(ctx context.Context, query pvp_in.GetLeaderboardQuery) (*pvp_in.LeaderboardResult, error) {
	pvp_in.ValidateLeaderboardQuery(&query)
	rankings, total, err := s.rankings.Leaderboard(ctx, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}
	out := make([]pvp_in.RankingDTO, len(rankings))
	for i, r := range rankings {
		out[i] = pvp_in.RankingToDTO(r)
	}
	return &pvp_in.LeaderboardResult{Leaderboard: out, Total: total}, nil
}

// GetMatchHistory returns a player's completed matches, newest first.
func (s *RankingQueryService) GetMatchHistory(ctx context.Context, query pvp_in.GetMatchHistoryQuery) (*pvp_in.MatchHistoryResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}
	pvp_in.ValidateHistoryQuery(&query)
	matches, total, err := s.matches.History(ctx, query.UserID, query.Limit, query.Offset)
	if err != nil {
		return nil, fmt.Errorf("get match history: %w", err)
	}
	out := make([]pvp_in.MatchDTO, len(matches))
	for i, m := range matches {
		out[i] = pvp_in.MatchToDTO(m)
	}
	return &pvp_in.MatchHistoryResult{Matches: out, Total: total}, nil
}

var _ pvp_in.RankingQuery = (*RankingQueryService)(nil)
