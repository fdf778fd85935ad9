package pvp_usecases

import (
	"context"

	domain "github.com/keyduel/keyduel-api/pkg/domain"
	pvp_in "github.com/keyduel/keyduel-api/pkg/domain/pvp/ports/in"
	pvp_services "github.com/keyduel/keyduel-api/pkg/domain/pvp/services"
)

// LeaveQueueUseCase removes an authenticated player from the matchmaking
// queue.
type LeaveQueueUseCase struct {
	queue *pvp_services.MatchQueue
}

// NewLeaveQueueUseCase creates a new leave queue usecase.
func NewLeaveQueueUseCase(queue *pvp_services.MatchQueue) pvp_in.LeaveQueueCommandHandler {
	return &LeaveQueueUseCase{queue: queue}
}

// Exec executes the leave queue command.
func (uc *LeaveQueueUseCase) Exec(ctx context.Context, cmd pvp_in.LeaveQueueCommand) error {
	if _, ok := domain.GetUser(ctx); !ok {
		return domain.NewErrUnauthorized()
	}
	if err := cmd.Validate(); err != nil {
		return err
	}
	if !uc.queue.Leave(ctx, cmd.UserID) {
		return domain.ErrNotInQueue
	}
	return nil
}

var _ pvp_in.LeaveQueueCommandHandler = (*LeaveQueueUseCase)(nil)
