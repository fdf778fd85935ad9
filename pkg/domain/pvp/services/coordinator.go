package pvp_services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
	"github.com/keyduel/keyduel-api/pkg/metrics"
)

// MatchConfig holds the per-match timing knobs.
type MatchConfig struct {
	// TestDuration is the typing test length announced in game_start.
	TestDuration time.Duration
	// MatchTimeout is the hard cap from game_start to forced completion.
	MatchTimeout time.Duration
}

// DefaultMatchConfig returns the production timings.
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		TestDuration: 60 * time.Second,
		MatchTimeout: 120 * time.Second,
	}
}

type matchPhase string

const (
	phasePending   matchPhase = "pending"
	phaseActive    matchPhase = "active"
	phaseCompleted matchPhase = "completed"
	phaseCancelled matchPhase = "cancelled"
)

type finalStats struct {
	wpm      float64
	accuracy float64
	reported bool
}

// counted reports whether the stats release the completion barrier. An
// all-zero report means the player never actually raced and does not
// count; the match falls through to the timeout instead.
func (f finalStats) counted() bool {
	return f.reported && (f.wpm > 0 || f.accuracy > 0)
}

// matchState is the in-memory record of one live match. Events for a match
// serialize through its mutex; different matches proceed in parallel.
type matchState struct {
	mu sync.Mutex

	id        string
	player1   pvp_entities.QueueEntry
	player2   pvp_entities.QueueEntry
	phase     matchPhase
	createdAt time.Time
	startedAt time.Time

	timer    *time.Timer
	progress map[string]*pvp_entities.LiveProgress
	finals   map[string]finalStats
}

func (st *matchState) slotOf(userID string) int {
	switch userID {
	case st.player1.UserID:
		return 1
	case st.player2.UserID:
		return 2
	}
	return 0
}

func (st *matchState) opponentOf(userID string) *pvp_entities.QueueEntry {
	if userID == st.player1.UserID {
		return &st.player2
	}
	return &st.player1
}

// MatchCoordinator drives the per-match state machine: pair-off intake,
// start barrier, progress fan-out, completion barrier, finalization, Elo
// application and persistence.
type MatchCoordinator struct {
	mu      sync.RWMutex
	matches map[string]*matchState
	byUser  map[string]string // userID -> live matchID

	rankings  pvp_out.RankingRepository
	matchRepo pvp_out.MatchRepository
	gateway   pvp_out.SessionGateway
	publisher pvp_out.ResultPublisher
	cfg       MatchConfig

	now func() time.Time
}

// NewMatchCoordinator creates a coordinator.
func NewMatchCoordinator(
	rankings pvp_out.RankingRepository,
	matchRepo pvp_out.MatchRepository,
	gateway pvp_out.SessionGateway,
	publisher pvp_out.ResultPublisher,
	cfg MatchConfig,
) *MatchCoordinator {
	return &MatchCoordinator{
		matches:   make(map[string]*matchState),
		byUser:    make(map[string]string),
		rankings:  rankings,
		matchRepo: matchRepo,
		gateway:   gateway,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CreateMatch binds a paired couple to a new pending match: persists the
// match row, ensures both rankings exist, and emits match_found to each
// player with opponent info including current Elo. A returned error makes
// the queue roll the pair back.
func (c *MatchCoordinator) CreateMatch(ctx context.Context, p1, p2 *pvp_entities.QueueEntry) error {
	if p1.UserID == p2.UserID {
		return fmt.Errorf("cannot match player %s against themselves", p1.UserID)
	}

	c.mu.Lock()
	if id, busy := c.byUser[p1.UserID]; busy {
		c.mu.Unlock()
		return fmt.Errorf("player %s already in match %s", p1.UserID, id)
	}
	if id, busy := c.byUser[p2.UserID]; busy {
		c.mu.Unlock()
		return fmt.Errorf("player %s already in match %s", p2.UserID, id)
	}
	matchID := uuid.NewString()
	c.byUser[p1.UserID] = matchID
	c.byUser[p2.UserID] = matchID
	c.mu.Unlock()

	rollback := func() {
		c.mu.Lock()
		delete(c.byUser, p1.UserID)
		delete(c.byUser, p2.UserID)
		delete(c.matches, matchID)
		c.mu.Unlock()
	}

	r1, err := c.ensureRanking(ctx, p1.UserID, p1.Username)
	if err != nil {
		rollback()
		return err
	}
	r2, err := c.ensureRanking(ctx, p2.UserID, p2.Username)
	if err != nil {
		rollback()
		return err
	}

	now := c.now().UTC()
	m := &pvp_entities.Match{
		MatchID:         matchID,
		Player1ID:       p1.UserID,
		Player1Username: p1.Username,
		Player2ID:       p2.UserID,
		Player2Username: p2.Username,
		Status:          pvp_entities.MatchStatusActive,
		CreatedAt:       now,
	}
	if err := c.matchRepo.Create(ctx, m); err != nil {
		rollback()
		return fmt.Errorf("create match: %w", err)
	}

	st := &matchState{
		id:        matchID,
		player1:   *p1,
		player2:   *p2,
		phase:     phasePending,
		createdAt: now,
		progress:  make(map[string]*pvp_entities.LiveProgress),
		finals:    make(map[string]finalStats),
	}
	c.mu.Lock()
	c.matches[matchID] = st
	c.mu.Unlock()
	metrics.ActiveMatches.Inc()

	slog.InfoContext(ctx, "match created",
		"match_id", matchID, "player1_id", p1.UserID, "player2_id", p2.UserID)

	c.gateway.EmitToUser(p1.UserID, pvp_out.EventMatchFound, map[string]any{
		"matchId":  matchID,
		"opponent": map[string]any{"id": p2.UserID, "username": p2.Username, "elo": r2.Elo},
	})
	c.gateway.EmitToUser(p2.UserID, pvp_out.EventMatchFound, map[string]any{
		"matchId":  matchID,
		"opponent": map[string]any{"id": p1.UserID, "username": p1.Username, "elo": r1.Elo},
	})
	return nil
}

// StartMatch moves a pending match to active on the first start request,
// emits game_start and arms the match timeout. The second player's request
// is a no-op.
func (c *MatchCoordinator) StartMatch(ctx context.Context, matchID, userID string) error {
	st := c.lookup(matchID)
	if st == nil {
		return &domain.MatchStateError{MatchID: matchID, State: "unknown", Event: "start"}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.slotOf(userID) == 0 {
		return fmt.Errorf("user %s is not a party to match %s", userID, matchID)
	}

	switch st.phase {
	case phaseActive:
		return nil // the other player already started it
	case phaseCompleted, phaseCancelled:
		return &domain.MatchStateError{MatchID: matchID, State: string(st.phase), Event: "start"}
	}

	st.phase = phaseActive
	st.startedAt = c.now().UTC()
	st.timer = time.AfterFunc(c.cfg.MatchTimeout, func() {
		c.handleTimeout(context.Background(), matchID)
	})

	payload := map[string]any{
		"matchId":      matchID,
		"player1":      map[string]any{"id": st.player1.UserID, "username": st.player1.Username},
		"player2":      map[string]any{"id": st.player2.UserID, "username": st.player2.Username},
		"startTime":    st.startedAt.UnixMilli(),
		"testDuration": int(c.cfg.TestDuration.Seconds()),
	}
	c.gateway.EmitToUser(st.player1.UserID, pvp_out.EventGameStart, payload)
	c.gateway.EmitToUser(st.player2.UserID, pvp_out.EventGameStart, payload)

	slog.InfoContext(ctx, "match started", "match_id", matchID, "started_by", userID)
	return nil
}

// Progress records a live progress report, persists the partial stats and
// fans the update out to the opponent. Reports for non-active matches are
// discarded with a warning.
func (c *MatchCoordinator) Progress(ctx context.Context, matchID, userID string, wpm, accuracy float64) error {
	st := c.lookup(matchID)
	if st == nil {
		slog.WarnContext(ctx, "progress for unknown match discarded", "match_id", matchID, "user_id", userID)
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	slot := st.slotOf(userID)
	if slot == 0 || st.phase != phaseActive {
		slog.WarnContext(ctx, "progress discarded",
			"match_id", matchID, "user_id", userID, "phase", string(st.phase))
		return nil
	}

	ts := c.now().UTC()
	st.progress[userID] = &pvp_entities.LiveProgress{Wpm: wpm, Accuracy: accuracy, Timestamp: ts}

	if _, err := c.matchRepo.Update(ctx, matchID, statsPatch(slot, wpm, accuracy)); err != nil {
		slog.ErrorContext(ctx, "failed to persist live progress", "match_id", matchID, "error", err)
	}

	opponent := st.opponentOf(userID)
	c.gateway.EmitToUser(opponent.UserID, pvp_out.EventOpponentProgress, map[string]any{
		"matchId":          matchID,
		"opponentWpm":      wpm,
		"opponentAccuracy": accuracy,
		"timestamp":        ts.UnixMilli(),
	})
	return nil
}

// Complete records a player's final stats. The completion barrier releases
// once both players hold non-zero finals; an all-zero report is recorded
// but does not release the barrier.
func (c *MatchCoordinator) Complete(ctx context.Context, matchID, userID string, wpm, accuracy float64) error {
	st := c.lookup(matchID)
	if st == nil {
		slog.WarnContext(ctx, "completion for unknown match discarded", "match_id", matchID, "user_id", userID)
		return nil
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	slot := st.slotOf(userID)
	if slot == 0 || st.phase != phaseActive {
		slog.WarnContext(ctx, "completion discarded",
			"match_id", matchID, "user_id", userID, "phase", string(st.phase))
		return nil
	}

	st.finals[userID] = finalStats{wpm: wpm, accuracy: accuracy, reported: true}
	if _, err := c.matchRepo.Update(ctx, matchID, statsPatch(slot, wpm, accuracy)); err != nil {
		slog.ErrorContext(ctx, "failed to persist final stats", "match_id", matchID, "error", err)
	}

	c.gateway.EmitToRoom(pvp_out.MatchRoom(matchID), pvp_out.EventOpponentFinished, map[string]any{
		"matchId": matchID,
		"wpm":     wpm,
		"acc":     accuracy,
	})

	f1, f2 := st.finals[st.player1.UserID], st.finals[st.player2.UserID]
	if f1.counted() && f2.counted() {
		c.settleLocked(ctx, st, scoreWinner(f1, f2), f1, f2, "")
	}
	return nil
}

// Forfeit declares the opponent the winner and finalizes with Elo applied
// at 1/0.
func (c *MatchCoordinator) Forfeit(ctx context.Context, matchID, userID string) error {
	st := c.lookup(matchID)
	if st == nil {
		return &domain.MatchStateError{MatchID: matchID, State: "unknown", Event: "forfeit"}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	slot := st.slotOf(userID)
	if slot == 0 {
		return fmt.Errorf("user %s is not a party to match %s", userID, matchID)
	}
	if st.phase != phaseActive {
		return &domain.MatchStateError{MatchID: matchID, State: string(st.phase), Event: "forfeit"}
	}

	c.gateway.EmitToRoom(pvp_out.MatchRoom(matchID), pvp_out.EventOpponentForfeited, map[string]any{
		"matchId": matchID,
	})

	winnerSlot := 1
	if slot == 1 {
		winnerSlot = 2
	}
	f1 := st.mergedStats(st.player1.UserID)
	f2 := st.mergedStats(st.player2.UserID)
	slog.InfoContext(ctx, "match forfeited", "match_id", matchID, "forfeited_by", userID)
	c.settleLocked(ctx, st, winnerSlot, f1, f2, metrics.OutcomeForfeit)
	return nil
}

// Reconnect verifies that userID is a party to a live match before the
// transport re-admits them to the match room.
func (c *MatchCoordinator) Reconnect(ctx context.Context, matchID, userID string) error {
	st := c.lookup(matchID)
	if st == nil {
		return &domain.MatchStateError{MatchID: matchID, State: "unknown", Event: "reconnect"}
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.slotOf(userID) == 0 {
		return fmt.Errorf("user %s is not a party to match %s", userID, matchID)
	}
	if st.phase != phasePending && st.phase != phaseActive {
		return &domain.MatchStateError{MatchID: matchID, State: string(st.phase), Event: "reconnect"}
	}
	slog.InfoContext(ctx, "player reconnected", "match_id", matchID, "user_id", userID)
	return nil
}

// HandleDisconnect cancels a live match once both parties have gone offline
// with no completion reported. Single-party disconnects rely on the match
// timeout.
func (c *MatchCoordinator) HandleDisconnect(ctx context.Context, userID string) {
	c.mu.RLock()
	matchID, ok := c.byUser[userID]
	c.mu.RUnlock()
	if !ok {
		return
	}
	st := c.lookup(matchID)
	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.phase != phasePending && st.phase != phaseActive {
		return
	}
	if len(st.finals) > 0 {
		return
	}
	if c.gateway.IsOnline(st.player1.UserID) || c.gateway.IsOnline(st.player2.UserID) {
		return
	}

	slog.InfoContext(ctx, "both players disconnected, cancelling match", "match_id", matchID)
	st.phase = phaseCancelled
	status := pvp_entities.MatchStatusCancelled
	completedAt := c.now().UTC()
	if _, err := c.matchRepo.Update(ctx, matchID, pvp_entities.MatchPatch{
		Status:      &status,
		CompletedAt: &completedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to persist match cancellation", "match_id", matchID, "error", err)
	}
	c.teardownLocked(st)
	metrics.MatchesFinished.WithLabelValues(metrics.OutcomeCancelled).Inc()
}

// RunDisconnectWatcher consumes connection-close notifications from the
// session layer until ctx is done. The registry never calls the coordinator
// directly; this channel is the only path in.
func (c *MatchCoordinator) RunDisconnectWatcher(ctx context.Context, closed <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case userID, ok := <-closed:
			if !ok {
				return
			}
			c.HandleDisconnect(ctx, userID)
		}
	}
}

// Shutdown cancels every pending match timer.
func (c *MatchCoordinator) Shutdown() {
	c.mu.RLock()
	states := make([]*matchState, 0, len(c.matches))
	for _, st := range c.matches {
		states = append(states, st)
	}
	c.mu.RUnlock()

	for _, st := range states {
		st.mu.Lock()
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		st.mu.Unlock()
	}
}

// handleTimeout force-completes a match that hit the hard cap. No Elo is
// applied on a pure timeout, even if one side reported finals. Firing for
// an already-terminal match is a no-op.
func (c *MatchCoordinator) handleTimeout(ctx context.Context, matchID string) {
	st := c.lookup(matchID)
	if st == nil {
		return
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.phase != phaseActive {
		return
	}

	slog.WarnContext(ctx, "match timed out", "match_id", matchID)
	st.phase = phaseCompleted
	status := pvp_entities.MatchStatusCompleted
	completedAt := c.now().UTC()
	duration := int(completedAt.Sub(st.createdAt).Seconds())
	if _, err := c.matchRepo.Update(ctx, matchID, pvp_entities.MatchPatch{
		Status:        &status,
		CompletedAt:   &completedAt,
		MatchDuration: &duration,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to persist match timeout", "match_id", matchID, "error", err)
	}

	payload := map[string]any{
		"matchId": matchID,
		"message": "Match timed out",
	}
	c.gateway.EmitToUser(st.player1.UserID, pvp_out.EventMatchTimeout, payload)
	c.gateway.EmitToUser(st.player2.UserID, pvp_out.EventMatchTimeout, payload)

	c.teardownLocked(st)
	metrics.MatchesFinished.WithLabelValues(metrics.OutcomeTimeout).Inc()
}

// settleLocked finalizes the match: snapshots pre-match ratings, applies
// Elo, persists the result, updates both rankings and emits match_result
// symmetrically. Storage failures are retried once; on repeat failure the
// match stays active and the barrier re-attempts on the next inbound event.
// Caller holds st.mu.
func (c *MatchCoordinator) settleLocked(ctx context.Context, st *matchState, winnerSlot int, f1, f2 finalStats, outcome string) {
	r1, err := c.rankings.Get(ctx, st.player1.UserID)
	if err == nil && r1 == nil {
		err = fmt.Errorf("ranking for %s vanished", st.player1.UserID)
	}
	var r2 *pvp_entities.Ranking
	if err == nil {
		r2, err = c.rankings.Get(ctx, st.player2.UserID)
		if err == nil && r2 == nil {
			err = fmt.Errorf("ranking for %s vanished", st.player2.UserID)
		}
	}
	if err != nil {
		slog.ErrorContext(ctx, "finalization aborted, ratings unavailable",
			"match_id", st.id, "error", err)
		return
	}

	var result1 float64
	var winnerID *string
	var winnerName string
	switch winnerSlot {
	case 1:
		result1 = ResultWin
		winnerID, winnerName = &st.player1.UserID, st.player1.Username
	case 2:
		result1 = ResultLoss
		winnerID, winnerName = &st.player2.UserID, st.player2.Username
	default:
		result1 = ResultDraw
	}

	delta1 := EloDelta(r1.Elo, r2.Elo, result1)
	delta2 := EloDelta(r2.Elo, r1.Elo, 1-result1)

	completedAt := c.now().UTC()
	duration := int(completedAt.Sub(st.createdAt).Seconds())

	persist := func() error {
		status := pvp_entities.MatchStatusCompleted
		patch := pvp_entities.MatchPatch{
			Player1Wpm:       &f1.wpm,
			Player1Accuracy:  &f1.accuracy,
			Player2Wpm:       &f2.wpm,
			Player2Accuracy:  &f2.accuracy,
			WinnerID:         winnerID,
			WinnerName:       &winnerName,
			Player1EloChange: &delta1,
			Player2EloChange: &delta2,
			MatchDuration:    &duration,
			Status:           &status,
			CompletedAt:      &completedAt,
		}
		if _, err := c.matchRepo.Update(ctx, st.id, patch); err != nil {
			return fmt.Errorf("persist match result: %w", err)
		}
		if _, err := c.rankings.Update(ctx, st.player1.UserID, rankingPatch(r1, delta1, winnerSlot == 1, winnerSlot == 2, completedAt)); err != nil {
			return fmt.Errorf("update player1 ranking: %w", err)
		}
		if _, err := c.rankings.Update(ctx, st.player2.UserID, rankingPatch(r2, delta2, winnerSlot == 2, winnerSlot == 1, completedAt)); err != nil {
			return fmt.Errorf("update player2 ranking: %w", err)
		}
		return nil
	}

	if err := persist(); err != nil {
		slog.WarnContext(ctx, "finalization persist failed, retrying once", "match_id", st.id, "error", err)
		if err = persist(); err != nil {
			slog.ErrorContext(ctx, "finalization persist failed twice, leaving match active",
				"match_id", st.id, "error", err)
			return
		}
	}

	st.phase = phaseCompleted

	payload := map[string]any{
		"matchId":          st.id,
		"winnerId":         winnerID,
		"winnerName":       winnerName,
		"player1Id":        st.player1.UserID,
		"player1Name":      st.player1.Username,
		"player1Wpm":       f1.wpm,
		"player1Accuracy":  f1.accuracy,
		"player1EloChange": delta1,
		"player2Id":        st.player2.UserID,
		"player2Name":      st.player2.Username,
		"player2Wpm":       f2.wpm,
		"player2Accuracy":  f2.accuracy,
		"player2EloChange": delta2,
		"matchDuration":    duration,
	}
	c.gateway.EmitToUser(st.player1.UserID, pvp_out.EventMatchResult, payload)
	c.gateway.EmitToUser(st.player2.UserID, pvp_out.EventMatchResult, payload)

	c.teardownLocked(st)

	if outcome == "" {
		outcome = metrics.OutcomeWin
		if winnerSlot == 0 {
			outcome = metrics.OutcomeDraw
		}
	}
	metrics.MatchesFinished.WithLabelValues(outcome).Inc()

	slog.InfoContext(ctx, "match finalized",
		"match_id", st.id, "winner_name", winnerName,
		"player1_elo_change", delta1, "player2_elo_change", delta2,
		"duration_seconds", duration)

	if c.publisher != nil {
		if m, err := c.matchRepo.Get(ctx, st.id); err == nil && m != nil {
			if err := c.publisher.PublishResult(ctx, m); err != nil {
				slog.WarnContext(ctx, "result publish failed", "match_id", st.id, "error", err)
			}
		}
	}
}

// teardownLocked cancels the timeout timer, clears live progress and frees
// the user registrations. The timer is cancelled before the match is
// cleared so an in-flight fire sees a terminal phase. Caller holds st.mu.
func (c *MatchCoordinator) teardownLocked(st *matchState) {
	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}
	st.progress = make(map[string]*pvp_entities.LiveProgress)

	c.mu.Lock()
	delete(c.byUser, st.player1.UserID)
	delete(c.byUser, st.player2.UserID)
	delete(c.matches, st.id)
	c.mu.Unlock()
	metrics.ActiveMatches.Dec()
}

func (c *MatchCoordinator) lookup(matchID string) *matchState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.matches[matchID]
}

// mergedStats returns the best known stats for a player: the final report
// if present, otherwise the last live progress, otherwise zeros.
func (st *matchState) mergedStats(userID string) finalStats {
	if f, ok := st.finals[userID]; ok {
		return f
	}
	if p, ok := st.progress[userID]; ok {
		return finalStats{wpm: p.Wpm, accuracy: p.Accuracy}
	}
	return finalStats{}
}

func (c *MatchCoordinator) ensureRanking(ctx context.Context, userID, username string) (*pvp_entities.Ranking, error) {
	r, err := c.rankings.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get ranking: %w", err)
	}
	if r != nil {
		return r, nil
	}
	r, err = c.rankings.Create(ctx, pvp_entities.NewRanking(userID, username))
	if err != nil {
		return nil, fmt.Errorf("create ranking: %w", err)
	}
	return r, nil
}

// scoreWinner applies the composite score 0.8*wpm + 0.2*accuracy and
// returns the winning slot, 0 on an exact tie.
func scoreWinner(f1, f2 finalStats) int {
	s1 := 0.8*f1.wpm + 0.2*f1.accuracy
	s2 := 0.8*f2.wpm + 0.2*f2.accuracy
	switch {
	case s1 > s2:
		return 1
	case s2 > s1:
		return 2
	}
	return 0
}

func statsPatch(slot int, wpm, accuracy float64) pvp_entities.MatchPatch {
	if slot == 1 {
		return pvp_entities.MatchPatch{Player1Wpm: &wpm, Player1Accuracy: &accuracy}
	}
	return pvp_entities.MatchPatch{Player2Wpm: &wpm, Player2Accuracy: &accuracy}
}

func rankingPatch(r *pvp_entities.Ranking, delta int, won, lost bool, at time.Time) pvp_entities.RankingPatch {
	elo := ApplyEloDelta(r.Elo, delta)
	matches := r.Matches + 1
	patch := pvp_entities.RankingPatch{
		Elo:         &elo,
		Matches:     &matches,
		LastMatchAt: &at,
	}
	if won {
		wins := r.Wins + 1
		patch.Wins = &wins
	}
	if lost {
		losses := r.Losses + 1
		patch.Losses = &losses
	}
	return patch
}
