// Package pvp_usecases wires the inbound ports to the queue and the read
// models.
package pvp_usecases

import (
	"context"
	"log/slog"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_in "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/in"
	pvp_services "github.com/keyduel/keyduel-api/pkg/domain/pvp/services"
)

// JoinQueueUseCase admits an authenticated player into the matchmaking
// queue.
//
// Flow:
//  1. Authentication verification - context must carry a verified user
//  2. Input validation
//  3. Duplicate check - a player holds at most one queue entry
//  4. Queue admission - triggers pair-off when two or more players wait
type JoinQueueUseCase struct {
	queue *pvp_services.MatchQueue
}

// NewJoinQueueUseCase creates a new join queue usecase.
func NewJoinQueueUseCase(queue *pvp_services.MatchQueue) pvp_in.JoinQueueCommandHandler {
	return &JoinQueueUseCase{queue: queue}
}

// Exec executes the join queue command.
func (uc *JoinQueueUseCase) Exec(ctx context.Context, cmd pvp_in.JoinQueueCommand) (*pvp_in.QueueStatusDTO, error) {
	if _, ok := domain.GetUser(ctx); !ok {
		return nil, domain.NewErrUnauthorized()
	}
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if uc.queue.IsInQueue(cmd.UserID) {
		return nil, domain.ErrAlreadyInQueue
	}

	size := uc.queue.Join(ctx, cmd.UserID, cmd.Username, cmd.ConnID)
	slog.InfoContext(ctx, "queue join accepted", "user_id", cmd.UserID, "queue_size", size)
	return &pvp_in.QueueStatusDTO{QueueID: cmd.UserID, QueueSize: size}, nil
}

var _ pvp_in.JoinQueueCommandHandler = (*JoinQueueUseCase)(nil)
