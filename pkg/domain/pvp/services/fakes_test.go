package pvp_services

import (
	"context"
	"errors"
	"sync"

	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
)

// fakeGateway records every emit for assertions.
type fakeGateway struct {
	mu      sync.Mutex
	emits   []recordedEmit
	offline map[string]bool
}

type recordedEmit struct {
	userID  string
	roomID  string
	event   string
	payload map[string]any
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{offline: make(map[string]bool)}
}

func (g *fakeGateway) EmitToUser(userID, event string, payload any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, _ := payload.(map[string]any)
	g.emits = append(g.emits, recordedEmit{userID: userID, event: event, payload: p})
}

func (g *fakeGateway) EmitToRoom(roomID, event string, payload any) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, _ := payload.(map[string]any)
	g.emits = append(g.emits, recordedEmit{roomID: roomID, event: event, payload: p})
}

func (g *fakeGateway) IsOnline(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.offline[userID]
}

func (g *fakeGateway) setOffline(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.offline[userID] = true
}

func (g *fakeGateway) eventsFor(userID, event string) []recordedEmit {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []recordedEmit
	for _, e := range g.emits {
		if e.userID == userID && e.event == event {
			out = append(out, e)
		}
	}
	return out
}

func (g *fakeGateway) roomEvents(roomID, event string) []recordedEmit {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []recordedEmit
	for _, e := range g.emits {
		if e.roomID == roomID && e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// fakeRankingRepo is an in-memory ranking store with fault injection.
type fakeRankingRepo struct {
	mu          sync.Mutex
	rankings    map[string]*pvp_entities.Ranking
	failGets    int
	failUpdates int
}

func newFakeRankingRepo() *fakeRankingRepo {
	return &fakeRankingRepo{rankings: make(map[string]*pvp_entities.Ranking)}
}

func (r *fakeRankingRepo) Get(_ context.Context, userID string) (*pvp_entities.Ranking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failGets > 0 {
		r.failGets--
		return nil, errors.New("injected get failure")
	}
	if ranking, ok := r.rankings[userID]; ok {
		cp := *ranking
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRankingRepo) Create(_ context.Context, ranking *pvp_entities.Ranking) (*pvp_entities.Ranking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.rankings[ranking.UserID]; ok {
		cp := *existing
		return &cp, nil
	}
	cp := *ranking
	r.rankings[ranking.UserID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeRankingRepo) Update(_ context.Context, userID string, patch pvp_entities.RankingPatch) (*pvp_entities.Ranking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdates > 0 {
		r.failUpdates--
		return nil, errors.New("injected update failure")
	}
	ranking, ok := r.rankings[userID]
	if !ok {
		return nil, nil
	}
	if patch.Elo != nil {
		ranking.Elo = *patch.Elo
	}
	if patch.Wins != nil {
		ranking.Wins = *patch.Wins
	}
	if patch.Losses != nil {
		ranking.Losses = *patch.Losses
	}
	if patch.Matches != nil {
		ranking.Matches = *patch.Matches
	}
	if patch.LastMatchAt != nil {
		ranking.LastMatchAt = patch.LastMatchAt
	}
	cp := *ranking
	return &cp, nil
}

func (r *fakeRankingRepo) Leaderboard(context.Context, int, int) ([]*pvp_entities.Ranking, int64, error) {
	return nil, 0, nil
}

func (r *fakeRankingRepo) get(userID string) *pvp_entities.Ranking {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rankings[userID]
}

func (r *fakeRankingRepo) seed(userID, username string, elo int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ranking := pvp_entities.NewRanking(userID, username)
	ranking.Elo = elo
	r.rankings[userID] = ranking
}

// fakeMatchRepo is an in-memory match store with fault injection.
type fakeMatchRepo struct {
	mu          sync.Mutex
	matches     map[string]*pvp_entities.Match
	failCreates int
}

func newFakeMatchRepo() *fakeMatchRepo {
	return &fakeMatchRepo{matches: make(map[string]*pvp_entities.Match)}
}

func (r *fakeMatchRepo) Create(_ context.Context, m *pvp_entities.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreates > 0 {
		r.failCreates--
		return errors.New("injected create failure")
	}
	cp := *m
	r.matches[m.MatchID] = &cp
	return nil
}

func (r *fakeMatchRepo) Get(_ context.Context, matchID string) (*pvp_entities.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.matches[matchID]; ok {
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeMatchRepo) Update(_ context.Context, matchID string, patch pvp_entities.MatchPatch) (*pvp_entities.Match, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.matches[matchID]
	if !ok {
		return nil, nil
	}
	if patch.Player1Wpm != nil {
		m.Player1Wpm = *patch.Player1Wpm
	}
	if patch.Player1Accuracy != nil {
		m.Player1Accuracy = *patch.Player1Accuracy
	}
	if patch.Player2Wpm != nil {
		m.Player2Wpm = *patch.Player2Wpm
	}
	if patch.Player2Accuracy != nil {
		m.Player2Accuracy = *patch.Player2Accuracy
	}
	if patch.WinnerID != nil {
		m.WinnerID = patch.WinnerID
	}
	if patch.WinnerName != nil {
		m.WinnerName = *patch.WinnerName
	}
	if patch.Player1EloChange != nil {
		m.Player1EloChange = *patch.Player1EloChange
	}
	if patch.Player2EloChange != nil {
		m.Player2EloChange = *patch.Player2EloChange
	}
	if patch.MatchDuration != nil {
		m.MatchDuration = *patch.MatchDuration
	}
	if patch.Status != nil {
		m.Status = *patch.Status
	}
	if patch.CompletedAt != nil {
		m.CompletedAt = patch.CompletedAt
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMatchRepo) History(context.Context, string, int, int) ([]*pvp_entities.Match, int64, error) {
	return nil, 0, nil
}

func (r *fakeMatchRepo) only() *pvp_entities.Match {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.matches {
		return m
	}
	return nil
}

// fakeCreator stands in for the coordinator on queue tests.
type fakeCreator struct {
	mu    sync.Mutex
	err   error
	pairs [][2]string
}

func (f *fakeCreator) CreateMatch(_ context.Context, p1, p2 *pvp_entities.QueueEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.pairs = append(f.pairs, [2]string{p1.UserID, p2.UserID})
	return nil
}

func (f *fakeCreator) pairCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pairs)
}
