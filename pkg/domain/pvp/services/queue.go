package pvp_services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pvp_entities "github.com/keyduel/keyduel-api/pkg/domain/pvp/entities"
	pvp_out "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/out"
	"github.com/keyduel/keyduel-api/pkg/metrics"
)

// MatchCreator is how the queue hands a paired couple to the coordinator.
// A returned error rolls the pair back into the queue head.
type MatchCreator interface {
	CreateMatch(ctx context.Context, p1, p2 *pvp_entities.QueueEntry) error
}

// QueueConfig holds the queue timing knobs.
type QueueConfig struct {
	// Timeout is the maximum age of an entry before staleness eviction.
	Timeout time.Duration
	// CleanupInterval is the eviction scan period.
	CleanupInterval time.Duration
}

// DefaultQueueConfig returns the production timings.
func DefaultQueueConfig() QueueConfig {
	return QueueConfig{
		Timeout:         30 * time.Second,
		CleanupInterval: 5 * time.Second,
	}
}

// MatchQueue is the FIFO matchmaking queue. All mutations serialize through
// one lock; the companion member set gives O(1) duplicate detection. The
// critical section never performs I/O: match creation and emits happen with
// entries already removed from the queue, and a failed pair-off reinserts
// them under the lock again.
type MatchQueue struct {
	mu      sync.Mutex
	entries []*pvp_entities.QueueEntry
	members map[string]struct{}

	creator MatchCreator
	gateway pvp_out.SessionGateway
	cfg     QueueConfig

	now func() time.Time
}

// NewMatchQueue creates a matchmaking queue.
func NewMatchQueue(creator MatchCreator, gateway pvp_out.SessionGateway, cfg QueueConfig) *MatchQueue {
	return &MatchQueue{
		members: make(map[string]struct{}),
		creator: creator,
		gateway: gateway,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Join appends the player to the queue and triggers pair-off. If the player
// already holds an entry this is a no-op returning the current size; the
// REST layer surfaces the conflict one level up via IsInQueue.
func (q *MatchQueue) Join(ctx context.Context, userID, username, connID string) int {
	q.mu.Lock()
	if _, dup := q.members[userID]; dup {
		size := len(q.entries)
		q.mu.Unlock()
		return size
	}
	q.entries = append(q.entries, &pvp_entities.QueueEntry{
		UserID:   userID,
		Username: username,
		ConnID:   connID,
		JoinedAt: q.now(),
	})
	q.members[userID] = struct{}{}
	size := len(q.entries)
	waiting := q.memberIDsLocked()
	q.mu.Unlock()

	metrics.QueueSize.Set(float64(size))
	slog.InfoContext(ctx, "player joined queue", "user_id", userID, "queue_size", size)
	q.broadcastStatus(waiting, size)
	q.pairOff(ctx)
	return size
}

// Leave removes the player's entry. Returns false if no entry exists.
func (q *MatchQueue) Leave(ctx context.Context, userID string) bool {
	q.mu.Lock()
	if _, ok := q.members[userID]; !ok {
		q.mu.Unlock()
		return false
	}
	for i, e := range q.entries {
		if e.UserID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	delete(q.members, userID)
	size := len(q.entries)
	waiting := q.memberIDsLocked()
	q.mu.Unlock()

	metrics.QueueSize.Set(float64(size))
	slog.InfoContext(ctx, "player left queue", "user_id", userID, "queue_size", size)
	q.broadcastStatus(waiting, size)
	return true
}

// Size returns the current queue depth.
func (q *MatchQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// IsInQueue reports whether the player currently holds an entry.
func (q *MatchQueue) IsInQueue(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.members[userID]
	return ok
}

// RunCleanup evicts stale entries every CleanupInterval until ctx is done.
func (q *MatchQueue) RunCleanup(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.EvictStale(ctx)
		}
	}
}

// EvictStale removes entries older than the queue timeout and notifies the
// evicted players. Entries at exactly the timeout age remain.
func (q *MatchQueue) EvictStale(ctx context.Context) {
	now := q.now()
	q.mu.Lock()
	var kept []*pvp_entities.QueueEntry
	var evicted []*pvp_entities.QueueEntry
	for _, e := range q.entries {
		if now.Sub(e.JoinedAt) > q.cfg.Timeout {
			evicted = append(evicted, e)
			delete(q.members, e.UserID)
			continue
		}
		kept = append(kept, e)
	}
	if len(evicted) == 0 {
		q.mu.Unlock()
		return
	}
	q.entries = kept
	size := len(q.entries)
	waiting := q.memberIDsLocked()
	q.mu.Unlock()

	metrics.QueueSize.Set(float64(size))
	for _, e := range evicted {
		metrics.QueueEvictions.Inc()
		slog.InfoContext(ctx, "queue entry evicted", "user_id", e.UserID, "waited", now.Sub(e.JoinedAt))
		q.gateway.EmitToUser(e.UserID, pvp_out.EventQueueTimeout, map[string]any{
			"message": "Queue timeout: no opponent found",
		})
	}
	q.broadcastStatus(waiting, size)
}

// pairOff pops pairs of oldest entries and asks the coordinator to bind
// them to a match. Match creation runs outside the lock; on failure the
// pair is reinserted at the head in original order, skipping anyone who
// rejoined in the meantime, and pair-off stops for this round.
func (q *MatchQueue) pairOff(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.entries) < 2 {
			q.mu.Unlock()
			return
		}
		p1, p2 := q.entries[0], q.entries[1]
		q.entries = q.entries[2:]
		delete(q.members, p1.UserID)
		delete(q.members, p2.UserID)
		size := len(q.entries)
		waiting := q.memberIDsLocked()
		q.mu.Unlock()

		if err := q.creator.CreateMatch(ctx, p1, p2); err != nil {
			slog.ErrorContext(ctx, "pair-off failed, rolling back queue entries",
				"player1_id", p1.UserID, "player2_id", p2.UserID, "error", err)
			q.mu.Lock()
			restored := make([]*pvp_entities.QueueEntry, 0, 2)
			for _, e := range []*pvp_entities.QueueEntry{p1, p2} {
				// the player may have rejoined while the create was in
				// flight; their newer entry wins
				if _, present := q.members[e.UserID]; present {
					continue
				}
				restored = append(restored, e)
				q.members[e.UserID] = struct{}{}
			}
			q.entries = append(restored, q.entries...)
			size = len(q.entries)
			q.mu.Unlock()
			metrics.QueueSize.Set(float64(size))
			return
		}

		metrics.QueueSize.Set(float64(size))
		slog.InfoContext(ctx, "pair-off created match",
			"player1_id", p1.UserID, "player2_id", p2.UserID, "queue_size", size)
		q.broadcastStatus(waiting, size)
	}
}

// broadcastStatus pushes the current queue size to everyone still waiting.
func (q *MatchQueue) broadcastStatus(waiting []string, size int) {
	payload := map[string]any{"queueSize": size}
	for _, userID := range waiting {
		q.gateway.EmitToUser(userID, pvp_out.EventQueueStatus, payload)
	}
}

func (q *MatchQueue) memberIDsLocked() []string {
	ids := make([]string, 0, len(q.entries))
	for _, e := range q.entries {
		ids = append(ids, e.UserID)
	}
	return ids
}
